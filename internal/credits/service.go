package credits

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
	"carbonchain/internal/notifications"
	"carbonchain/pkg/pdf"
)

var (
	ErrAlreadyRetired = errors.New("credit is already retired")
	ErrNotOwner       = errors.New("caller does not own this credit")
)

// RetireResult carries the outcome of a retirement
type RetireResult struct {
	Credit          *CarbonCredit `json:"credit"`
	TransactionHash string        `json:"transaction_hash"`
	Certificate     []byte        `json:"-"`
}

type Service struct {
	repo         Repository
	chainClient  chain.Client
	hub          *notifications.Hub
	projectTitle func(ctx context.Context, id uuid.UUID) (string, error)
	logger       *zap.Logger
}

// NewService wires the credit mirror store. projectTitle resolves a project
// id for certificate rendering; it keeps this package off the projects
// package to avoid a dependency cycle through issuance.
func NewService(
	repo Repository,
	chainClient chain.Client,
	hub *notifications.Hub,
	projectTitle func(ctx context.Context, id uuid.UUID) (string, error),
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:         repo,
		chainClient:  chainClient,
		hub:          hub,
		projectTitle: projectTitle,
		logger:       logger,
	}
}

func (s *Service) List(ctx context.Context, filter CreditFilter) ([]CarbonCredit, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CarbonCredit, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOnChain lists a credit for sale at the given MATIC price.
func (s *Service) ListOnChain(ctx context.Context, id uuid.UUID, priceMatic float64) (*CarbonCredit, string, error) {
	credit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if credit.Status == StatusRetired {
		return nil, "", ErrAlreadyRetired
	}
	if priceMatic <= 0 {
		return nil, "", fmt.Errorf("price must be positive")
	}

	txHash, err := s.chainClient.ListCredit(ctx, credit.TokenID, chain.MaticToWei(priceMatic))
	if err != nil {
		return nil, "", fmt.Errorf("failed to list credit on chain: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, credit.ID, StatusListed); err != nil {
		s.logger.Error("credit listed on chain but mirror update failed",
			zap.String("credit_id", credit.ID.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
	}
	credit.Status = StatusListed
	return credit, txHash, nil
}

// Retire burns the credit on chain, marks the mirror row and renders a
// retirement certificate.
func (s *Service) Retire(ctx context.Context, callerID uuid.UUID, id uuid.UUID, retiredBy string) (*RetireResult, error) {
	credit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if credit.Status == StatusRetired {
		return nil, ErrAlreadyRetired
	}
	if credit.OwnerID != nil && *credit.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	txHash, err := s.chainClient.RetireCredit(ctx, credit.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to retire credit on chain: %w", err)
	}

	if err := s.repo.MarkRetired(ctx, credit.ID, txHash); err != nil {
		// the burn went through; the mirror row is repairable
		s.logger.Error("credit retired on chain but mirror update failed",
			zap.String("credit_id", credit.ID.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
	}
	credit.Status = StatusRetired
	credit.RetirementTxHash = &txHash

	title := ""
	if s.projectTitle != nil {
		if t, err := s.projectTitle(ctx, credit.ProjectID); err == nil {
			title = t
		}
	}

	cert, err := pdf.RetirementCertificate(pdf.CertificateData{
		CertificateID: fmt.Sprintf("RET-%d-%s", time.Now().Year(), credit.ID.String()[:8]),
		ProjectTitle:  title,
		TokenID:       credit.TokenID,
		AmountTons:    credit.AmountTons,
		RetiredBy:     retiredBy,
		RetiredAt:     time.Now(),
		TxHash:        txHash,
	})
	if err != nil {
		s.logger.Warn("failed to render retirement certificate", zap.Error(err))
	}

	s.hub.Publish(notifications.EventCreditRetired, map[string]interface{}{
		"credit_id": credit.ID,
		"token_id":  credit.TokenID,
		"tx_hash":   txHash,
	})

	s.logger.Info("credit retired",
		zap.String("credit_id", credit.ID.String()),
		zap.String("token_id", credit.TokenID),
		zap.String("tx_hash", txHash))

	return &RetireResult{Credit: credit, TransactionHash: txHash, Certificate: cert}, nil
}

// ListingPrice reads the current on-chain listing price in wei.
func (s *Service) ListingPrice(ctx context.Context, id uuid.UUID) (*big.Int, error) {
	credit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.chainClient.GetListingPrice(ctx, credit.TokenID)
}

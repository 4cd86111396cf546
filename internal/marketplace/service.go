package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
	"carbonchain/internal/config"
	"carbonchain/internal/notifications"
	"carbonchain/internal/projects"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientFunds = errors.New("wallet balance does not cover the purchase")
	ErrNotPurchasable    = errors.New("project has no purchasable credits")
)

// PurchaseResult reports a settled purchase
type PurchaseResult struct {
	Transaction     *Transaction `json:"transaction"`
	TransactionHash string       `json:"transaction_hash"`
	TotalMatic      float64      `json:"total_matic"`
	TotalUSD        float64      `json:"total_usd"`
}

// Service settles credit purchases against a project's inventory
type Service struct {
	repo        Repository
	projectRepo projects.Repository
	chainClient chain.Client
	cfg         config.ChainConfig
	hub         *notifications.Hub
	logger      *zap.Logger
}

func NewService(
	repo Repository,
	projectRepo projects.Repository,
	chainClient chain.Client,
	cfg config.ChainConfig,
	hub *notifications.Hub,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:        repo,
		projectRepo: projectRepo,
		chainClient: chainClient,
		cfg:         cfg,
		hub:         hub,
		logger:      logger,
	}
}

// Purchase settles a buy of quantity credits from the project's inventory.
// All preconditions are checked before any value moves. Once the payment
// confirms, the purchase record stands even if the inventory decrement
// fails afterwards; the decrement failure is logged for repair.
func (s *Service) Purchase(ctx context.Context, buyerID uuid.UUID, projectID uuid.UUID, quantity int64, buyerWallet string) (*PurchaseResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !chain.IsValidAddress(buyerWallet) {
		return nil, chain.ErrInvalidAddress
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != projects.StatusVerified && project.Status != projects.StatusTokenized {
		return nil, ErrNotPurchasable
	}
	if project.EffectiveAvailable() < quantity {
		return nil, fmt.Errorf("%w: requested %d, available %d",
			projects.ErrInsufficientCredits, quantity, project.EffectiveAvailable())
	}

	totalMatic := float64(quantity) * s.cfg.UnitPriceMatic
	totalWei := chain.MaticToWei(totalMatic)

	balance, err := s.chainClient.NativeBalance(ctx, buyerWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet balance: %w", err)
	}
	if balance.Cmp(totalWei) < 0 {
		return nil, fmt.Errorf("%w: need %f MATIC", ErrInsufficientFunds, totalMatic)
	}

	txHash, err := s.chainClient.SendPayment(ctx, s.cfg.FeeRecipient, totalWei)
	if err != nil {
		return nil, fmt.Errorf("payment failed: %w", err)
	}

	pricePerTonUSD := s.cfg.UnitPriceMatic * s.cfg.MaticToUSD
	sellerID := project.SubmittedBy
	record := &Transaction{
		BuyerID:         buyerID,
		SellerID:        &sellerID,
		ProjectID:       &project.ID,
		AmountTons:      quantity,
		PricePerTon:     pricePerTonUSD,
		TotalAmount:     float64(quantity) * pricePerTonUSD,
		TransactionHash: txHash,
		Status:          StatusCompleted,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// payment went through; surface the hash so the purchase is traceable
		return nil, fmt.Errorf("payment %s confirmed but transaction record failed: %w", txHash, err)
	}

	if err := s.projectRepo.DecrementAvailableCredits(ctx, project.ID, quantity); err != nil {
		s.logger.Error("purchase settled but inventory decrement failed",
			zap.String("project_id", project.ID.String()),
			zap.String("tx_hash", txHash),
			zap.Int64("quantity", quantity),
			zap.Error(err))
	}

	s.hub.Publish(notifications.EventCreditPurchased, map[string]interface{}{
		"project_id": project.ID,
		"buyer_id":   buyerID,
		"quantity":   quantity,
		"tx_hash":    txHash,
	})

	s.logger.Info("purchase settled",
		zap.String("project_id", project.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.Int64("quantity", quantity),
		zap.String("tx_hash", txHash))

	return &PurchaseResult{
		Transaction:     record,
		TransactionHash: txHash,
		TotalMatic:      totalMatic,
		TotalUSD:        record.TotalAmount,
	}, nil
}

// Listings returns projects that currently have credits for sale.
func (s *Service) Listings(ctx context.Context) ([]projects.Project, error) {
	list, err := s.projectRepo.List(ctx, projects.ProjectFilter{
		Statuses: []string{projects.StatusVerified, projects.StatusTokenized},
	})
	if err != nil {
		return nil, err
	}
	purchasable := list[:0]
	for _, p := range list {
		if p.EffectiveAvailable() > 0 {
			purchasable = append(purchasable, p)
		}
	}
	return purchasable, nil
}

package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
	"carbonchain/internal/marketplace"
	"carbonchain/pkg/cache"
)

// ErrTransferUnsupported is returned for direct token transfers. Credits
// change hands through the marketplace only.
var ErrTransferUnsupported = errors.New("direct credit transfers are not supported, use the marketplace")

const balanceTTL = 30 * time.Second

// Portfolio is the buyer-facing aggregate over settled purchases
type Portfolio struct {
	Summary      *marketplace.PortfolioSummary        `json:"summary"`
	Transactions []marketplace.TransactionWithProject `json:"transactions"`
}

// Service aggregates wallet holdings from the transaction ledger and the
// chain.
type Service struct {
	transactions marketplace.Repository
	chainClient  chain.Client
	cache        *cache.Cache
	logger       *zap.Logger
}

func NewService(transactions marketplace.Repository, chainClient chain.Client, c *cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		transactions: transactions,
		chainClient:  chainClient,
		cache:        c,
		logger:       logger,
	}
}

// Portfolio returns the buyer's purchase aggregates with recent transactions.
func (s *Service) Portfolio(ctx context.Context, buyerID uuid.UUID) (*Portfolio, error) {
	summary, err := s.transactions.Summarize(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize portfolio: %w", err)
	}
	transactions, err := s.transactions.ListByBuyer(ctx, buyerID, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &Portfolio{Summary: summary, Transactions: transactions}, nil
}

// TokenBalance reads the wallet's credit NFT balance, served from cache when
// fresh.
func (s *Service) TokenBalance(ctx context.Context, address string) (int64, error) {
	if !chain.IsValidAddress(address) {
		return 0, chain.ErrInvalidAddress
	}

	key := "wallet:balance:" + address
	if cached, err := s.cache.Get(ctx, key); err == nil {
		if balance, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return balance, nil
		}
	}

	balance, err := s.chainClient.BalanceOf(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := s.cache.Set(ctx, key, strconv.FormatInt(balance, 10), balanceTTL); err != nil {
		s.logger.Debug("failed to cache balance", zap.String("address", address), zap.Error(err))
	}
	return balance, nil
}

// Transfer always fails: ownership moves through marketplace settlement.
func (s *Service) Transfer(ctx context.Context, from, to string, tokenID string) error {
	if !chain.IsValidAddress(from) || !chain.IsValidAddress(to) {
		return chain.ErrInvalidAddress
	}
	if tokenID == "" {
		return chain.ErrInvalidTokenID
	}
	return ErrTransferUnsupported
}

// ExportTransactions renders the buyer's transaction history as an xlsx
// workbook.
func (s *Service) ExportTransactions(ctx context.Context, buyerID uuid.UUID) ([]byte, error) {
	transactions, err := s.transactions.ListByBuyer(ctx, buyerID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Project", "Credits (t)", "Price/t (USD)", "Total (USD)", "Status", "Tx Hash"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, tx := range transactions {
		values := []interface{}{
			tx.CreatedAt.Format("2006-01-02 15:04"),
			tx.ProjectTitle,
			tx.AmountTons,
			tx.PricePerTon,
			tx.TotalAmount,
			tx.Status,
			tx.TransactionHash,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

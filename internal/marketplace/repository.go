package marketplace

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// PortfolioSummary aggregates a buyer's settled purchases
type PortfolioSummary struct {
	TotalCredits     int64   `json:"total_credits"`
	TotalSpent       float64 `json:"total_spent"`
	TransactionCount int64   `json:"transaction_count"`
}

// TransactionWithProject joins a transaction to its project title for
// portfolio listings
type TransactionWithProject struct {
	Transaction
	ProjectTitle string `json:"project_title"`
}

type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]TransactionWithProject, error)
	Summarize(ctx context.Context, buyerID uuid.UUID) (*PortfolioSummary, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, tx *Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *gormRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]TransactionWithProject, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []TransactionWithProject
	err := r.db.WithContext(ctx).
		Table("transactions").
		Select("transactions.*, COALESCE(projects.title, '') AS project_title").
		Joins("LEFT JOIN projects ON projects.id = transactions.project_id").
		Where("transactions.buyer_id = ?", buyerID).
		Order("transactions.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) Summarize(ctx context.Context, buyerID uuid.UUID) (*PortfolioSummary, error) {
	var summary PortfolioSummary
	err := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("COALESCE(SUM(amount_tons), 0) AS total_credits, COALESCE(SUM(total_amount), 0) AS total_spent, COUNT(*) AS transaction_count").
		Where("buyer_id = ? AND status = ?", buyerID, StatusCompleted).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

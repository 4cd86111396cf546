package credits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("credit not found")

type CreditFilter struct {
	ProjectID *uuid.UUID
	OwnerID   *uuid.UUID
	Statuses  []string
	Limit     int
}

type Repository interface {
	Create(ctx context.Context, credit *CarbonCredit) error
	GetByID(ctx context.Context, id uuid.UUID) (*CarbonCredit, error)
	GetByTokenID(ctx context.Context, tokenID string) (*CarbonCredit, error)
	List(ctx context.Context, filter CreditFilter) ([]CarbonCredit, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkRetired(ctx context.Context, id uuid.UUID, txHash string) error
	ExistsForProject(ctx context.Context, projectID uuid.UUID) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, credit *CarbonCredit) error {
	return r.db.WithContext(ctx).Create(credit).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*CarbonCredit, error) {
	var credit CarbonCredit
	err := r.db.WithContext(ctx).First(&credit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *gormRepository) GetByTokenID(ctx context.Context, tokenID string) (*CarbonCredit, error) {
	var credit CarbonCredit
	err := r.db.WithContext(ctx).First(&credit, "token_id = ?", tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *gormRepository) List(ctx context.Context, filter CreditFilter) ([]CarbonCredit, error) {
	query := r.db.WithContext(ctx).Model(&CarbonCredit{}).Order("created_at DESC")
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var list []CarbonCredit
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&CarbonCredit{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) MarkRetired(ctx context.Context, id uuid.UUID, txHash string) error {
	res := r.db.WithContext(ctx).Model(&CarbonCredit{}).
		Where("id = ? AND status <> ?", id, StatusRetired).
		Updates(map[string]interface{}{
			"status":             StatusRetired,
			"retirement_tx_hash": txHash,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) ExistsForProject(ctx context.Context, projectID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&CarbonCredit{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count > 0, err
}

package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("project not found")
	ErrInsufficientCredits = errors.New("not enough credits available")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// ProjectFilter narrows List queries
type ProjectFilter struct {
	Statuses    []string
	SubmittedBy *uuid.UUID
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]Project, error)
	Update(ctx context.Context, project *Project) error
	MarkVerified(ctx context.Context, id uuid.UUID, notes string, availableCredits int64, verifiedBy uuid.UUID) error
	MarkRejected(ctx context.Context, id uuid.UUID, notes string) error
	MarkTokenized(ctx context.Context, id uuid.UUID, txHash string) error
	DecrementAvailableCredits(ctx context.Context, id uuid.UUID, amount int64) error
	AddMedia(ctx context.Context, media []ProjectMedia) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.WithContext(ctx).Preload("Media").First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *gormRepository) List(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	query := r.db.WithContext(ctx).Model(&Project{}).Order("created_at DESC")
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.SubmittedBy != nil {
		query = query.Where("submitted_by = ?", *filter.SubmittedBy)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var projects []Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *gormRepository) Update(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *gormRepository) MarkVerified(ctx context.Context, id uuid.UUID, notes string, availableCredits int64, verifiedBy uuid.UUID) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":             StatusVerified,
		"verification_date":  now,
		"verification_notes": notes,
		"available_credits":  availableCredits,
	}
	if verifiedBy != uuid.Nil {
		updates["verified_by"] = verifiedBy
	}
	res := r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %s is not pending", ErrInvalidTransition, id)
	}
	return nil
}

func (r *gormRepository) MarkRejected(ctx context.Context, id uuid.UUID, notes string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":             StatusRejected,
			"verification_date":  now,
			"verification_notes": notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %s is not pending", ErrInvalidTransition, id)
	}
	return nil
}

func (r *gormRepository) MarkTokenized(ctx context.Context, id uuid.UUID, txHash string) error {
	res := r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND status = ?", id, StatusVerified).
		Updates(map[string]interface{}{
			"status":          StatusTokenized,
			"blockchain_hash": txHash,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %s is not verified", ErrInvalidTransition, id)
	}
	return nil
}

// DecrementAvailableCredits atomically reduces the sellable inventory. The
// conditional update carries the whole correctness burden for racing buyers:
// it only applies when the remaining inventory covers the amount, so the
// counter can never go negative. available_credits falls back to the
// estimate when it has never been initialized.
func (r *gormRepository) DecrementAvailableCredits(ctx context.Context, id uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("decrement amount must be positive, got %d", amount)
	}

	res := r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND COALESCE(available_credits, estimated_co2_tons) >= ?", id, amount).
		UpdateColumn("available_credits",
			gorm.Expr("COALESCE(available_credits, estimated_co2_tons) - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %s, requested %d", ErrInsufficientCredits, id, amount)
	}
	return nil
}

func (r *gormRepository) AddMedia(ctx context.Context, media []ProjectMedia) error {
	if len(media) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&media).Error
}

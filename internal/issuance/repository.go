package issuance

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrOutboxNotFound = errors.New("outbox entry not found")

type OutboxRepository interface {
	Create(ctx context.Context, entry *IssuanceOutbox) error
	GetByIdempotencyKey(ctx context.Context, key string) (*IssuanceOutbox, error)
	Update(ctx context.Context, entry *IssuanceOutbox) error
	ListStuck(ctx context.Context, now time.Time, limit int) ([]IssuanceOutbox, error)
}

type gormOutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &gormOutboxRepository{db: db}
}

func (r *gormOutboxRepository) Create(ctx context.Context, entry *IssuanceOutbox) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormOutboxRepository) GetByIdempotencyKey(ctx context.Context, key string) (*IssuanceOutbox, error) {
	var entry IssuanceOutbox
	err := r.db.WithContext(ctx).First(&entry, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOutboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormOutboxRepository) Update(ctx context.Context, entry *IssuanceOutbox) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// ListStuck returns entries whose mint is confirmed on chain but whose
// database mirror writes have not completed, and that are due for a retry.
func (r *gormOutboxRepository) ListStuck(ctx context.Context, now time.Time, limit int) ([]IssuanceOutbox, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []IssuanceOutbox
	err := r.db.WithContext(ctx).
		Where("step IN ?", []string{StepMintConfirmed, StepMirrorRecorded}).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

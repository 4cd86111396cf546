package issuance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox steps, in order of progress through the issuance bridge
const (
	StepMetadataUploaded = "metadata_uploaded"
	StepMintSubmitted    = "mint_submitted"
	StepMintConfirmed    = "mint_confirmed"
	StepMirrorRecorded   = "mirror_recorded"
	StepCompleted        = "completed"
	StepFailed           = "failed"
)

// IssuanceOutbox records the progress of one issuance through its chain and
// database steps. The chain write is irreversible, so the row is what makes
// the trailing database writes recoverable.
type IssuanceOutbox struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	OwnerID        uuid.UUID  `gorm:"type:uuid" json:"owner_id"`
	IdempotencyKey string     `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	Step           string     `gorm:"not null;index" json:"step"`
	Recipient      string     `json:"recipient"`
	AmountTons     int64      `json:"amount_tons"`
	MetadataURI    string     `json:"metadata_uri"`
	TokenID        string     `json:"token_id"`
	TxHash         string     `json:"tx_hash"`
	Attempts       int        `json:"attempts"`
	LastError      string     `json:"last_error"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (o *IssuanceOutbox) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

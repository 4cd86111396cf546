package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Transaction records a settled credit purchase
type Transaction struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID        *uuid.UUID `gorm:"type:uuid;index" json:"seller_id,omitempty"`
	ProjectID       *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	CreditID        *uuid.UUID `gorm:"type:uuid" json:"credit_id,omitempty"`
	AmountTons      int64      `gorm:"not null" json:"amount_tons"`
	PricePerTon     float64    `json:"price_per_ton"`
	TotalAmount     float64    `json:"total_amount"`
	TransactionHash string     `json:"transaction_hash"`
	Status          string     `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

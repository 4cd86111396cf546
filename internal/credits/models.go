package credits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credit statuses
const (
	StatusAvailable = "available"
	StatusListed    = "listed"
	StatusSold      = "sold"
	StatusRetired   = "retired"
)

// CarbonCredit mirrors an on-chain credit NFT for fast queries. The chain
// remains the source of truth for ownership.
type CarbonCredit struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	TokenID           string     `gorm:"not null;index" json:"token_id"`
	AmountTons        int64      `gorm:"not null" json:"amount_tons"`
	PricePerTon       float64    `json:"price_per_ton"`
	TotalValue        float64    `json:"total_value"`
	Status            string     `gorm:"not null;default:'available';index" json:"status"`
	OwnerID           *uuid.UUID `gorm:"type:uuid" json:"owner_id,omitempty"`
	BlockchainAddress string     `json:"blockchain_address"`
	MintTxHash        string     `json:"mint_tx_hash"`
	RetirementTxHash  *string    `json:"retirement_tx_hash,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (c *CarbonCredit) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

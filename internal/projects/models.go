package projects

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project statuses
const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusRejected  = "rejected"
	StatusTokenized = "tokenized"
)

// Project represents an NGO-submitted carbon project
type Project struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title               string         `gorm:"not null" json:"title"`
	ProjectType         string         `gorm:"not null" json:"project_type"`
	Description         string         `json:"description"`
	PlantingDate        *time.Time     `json:"planting_date,omitempty"`
	LocationName        string         `json:"location_name"`
	Latitude            float64        `json:"latitude"`
	Longitude           float64        `json:"longitude"`
	AreaHectares        float64        `json:"area_hectares"`
	PlantedAreaHectares float64        `json:"planted_area_hectares"`
	TreeSpecies         datatypes.JSON `json:"tree_species"`
	Status              string         `gorm:"not null;default:'pending';index" json:"status"`
	EstimatedCO2Tons    int64          `json:"estimated_co2_tons"`
	AvailableCredits    *int64         `json:"available_credits,omitempty"`
	SubmittedBy         uuid.UUID      `gorm:"type:uuid;not null;index" json:"submitted_by"`
	VerificationDate    *time.Time     `json:"verification_date,omitempty"`
	VerificationNotes   string         `json:"verification_notes"`
	VerifiedBy          *uuid.UUID     `gorm:"type:uuid" json:"verified_by,omitempty"`
	BlockchainHash      *string        `json:"blockchain_hash,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	Media []ProjectMedia `gorm:"foreignKey:ProjectID" json:"media,omitempty"`
}

// EffectiveAvailable returns the sellable inventory. available_credits is
// lazily initialized to the estimate until the first decrement.
func (p *Project) EffectiveAvailable() int64 {
	if p.AvailableCredits != nil {
		return *p.AvailableCredits
	}
	return p.EstimatedCO2Tons
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProjectMedia is an uploaded file attached to a project
type ProjectMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	FileURL   string    `gorm:"not null" json:"file_url"`
	FileName  string    `json:"file_name"`
	MediaType string    `json:"media_type"` // image, video or document
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *ProjectMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

package monitoring

import (
	"time"

	"github.com/google/uuid"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SatelliteObservation is one remote-sensing data point for a project site
type SatelliteObservation struct {
	ProjectID      uuid.UUID `json:"project_id"`
	CapturedAt     time.Time `json:"captured_at"`
	NDVI           float64   `json:"ndvi"`
	CanopyCoverPct float64   `json:"canopy_cover_pct"`
	CloudCoverPct  float64   `json:"cloud_cover_pct"`
	Source         string    `json:"source"`
}

// GISAnalysis summarizes site health derived from recent observations
type GISAnalysis struct {
	ProjectID             uuid.UUID `json:"project_id"`
	VegetationHealthIndex float64   `json:"vegetation_health_index"`
	CanopyTrendPct        float64   `json:"canopy_trend_pct"`
	DeforestationDetected bool      `json:"deforestation_detected"`
	AnalyzedAt            time.Time `json:"analyzed_at"`
	Summary               string    `json:"summary"`
}

// Alert flags a site condition that needs attention
type Alert struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggered_at"`
	Active      bool      `json:"active"`
}

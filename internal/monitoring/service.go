package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/notifications"
)

// Service serves site monitoring data: satellite series, GIS analysis and
// alerts.
type Service struct {
	provider Provider
	archive  *Archive
	hub      *notifications.Hub
	logger   *zap.Logger
}

func NewService(provider Provider, archive *Archive, hub *notifications.Hub, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		archive:  archive,
		hub:      hub,
		logger:   logger,
	}
}

// Satellite returns the recent observation series for a project site.
func (s *Service) Satellite(ctx context.Context, projectID uuid.UUID, months int) ([]SatelliteObservation, error) {
	observations, err := s.provider.Observations(ctx, projectID, months)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}

	if err := s.archive.Store(ctx, "satellite", observations); err != nil {
		s.logger.Warn("failed to archive satellite payload",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}
	return observations, nil
}

// Analyze derives a GIS health summary from the observation series.
func (s *Service) Analyze(ctx context.Context, projectID uuid.UUID) (*GISAnalysis, error) {
	observations, err := s.provider.Observations(ctx, projectID, 6)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations available for project %s", projectID)
	}

	first := observations[0]
	latest := observations[len(observations)-1]

	var ndviSum float64
	for _, o := range observations {
		ndviSum += o.NDVI
	}
	health := ndviSum / float64(len(observations))
	canopyTrend := latest.CanopyCoverPct - first.CanopyCoverPct
	deforestation := canopyTrend < -15

	summary := "vegetation stable"
	switch {
	case deforestation:
		summary = "significant canopy loss detected"
	case canopyTrend > 5:
		summary = "canopy expanding"
	}

	analysis := &GISAnalysis{
		ProjectID:             projectID,
		VegetationHealthIndex: round2(health),
		CanopyTrendPct:        round2(canopyTrend),
		DeforestationDetected: deforestation,
		AnalyzedAt:            time.Now().UTC(),
		Summary:               summary,
	}

	if err := s.archive.Store(ctx, "gis_analysis", analysis); err != nil {
		s.logger.Warn("failed to archive analysis",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}

	if deforestation {
		s.hub.Publish(notifications.EventAlertTriggered, map[string]interface{}{
			"project_id": projectID,
			"type":       "deforestation",
			"severity":   SeverityCritical,
		})
	}
	return analysis, nil
}

// Alerts returns the active alerts for a project site.
func (s *Service) Alerts(ctx context.Context, projectID uuid.UUID) ([]Alert, error) {
	observations, err := s.provider.Observations(ctx, projectID, 6)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}
	alerts := deriveAlerts(projectID, observations)
	if alerts == nil {
		alerts = []Alert{}
	}
	return alerts, nil
}

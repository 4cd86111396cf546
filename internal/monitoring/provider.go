package monitoring

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// Provider supplies remote-sensing observations for a project site.
type Provider interface {
	Observations(ctx context.Context, projectID uuid.UUID, months int) ([]SatelliteObservation, error)
}

// SimulatedProvider derives observations deterministically from the project
// id, so the same site always reports the same series. It stands in for a
// real satellite data feed.
type SimulatedProvider struct{}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{}
}

func (p *SimulatedProvider) Observations(ctx context.Context, projectID uuid.UUID, months int) ([]SatelliteObservation, error) {
	if months <= 0 {
		months = 6
	}
	seed := seedFor(projectID)
	now := time.Now().UTC().Truncate(24 * time.Hour)

	observations := make([]SatelliteObservation, 0, months)
	for i := months - 1; i >= 0; i-- {
		step := seed + uint64(i)*2654435761
		// NDVI drifts upward over time for healthy sites, between 0.2 and 0.9
		ndvi := 0.2 + 0.5*frac(step) + 0.02*float64(months-1-i)
		if ndvi > 0.9 {
			ndvi = 0.9
		}
		observations = append(observations, SatelliteObservation{
			ProjectID:      projectID,
			CapturedAt:     now.AddDate(0, -i, 0),
			NDVI:           round2(ndvi),
			CanopyCoverPct: round2(30 + 60*frac(step>>8)),
			CloudCoverPct:  round2(40 * frac(step>>16)),
			Source:         "sentinel-2-sim",
		})
	}
	return observations, nil
}

func seedFor(projectID uuid.UUID) uint64 {
	h := fnv.New64a()
	h.Write(projectID[:])
	return h.Sum64()
}

// frac maps a hash step onto [0, 1)
func frac(v uint64) float64 {
	return float64(v%10000) / 10000
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}

// deriveAlerts inspects the series and flags conditions worth raising.
func deriveAlerts(projectID uuid.UUID, observations []SatelliteObservation) []Alert {
	var alerts []Alert
	if len(observations) < 2 {
		return alerts
	}

	latest := observations[len(observations)-1]
	previous := observations[len(observations)-2]

	if latest.NDVI < 0.3 {
		alerts = append(alerts, Alert{
			ID:          uuid.New(),
			ProjectID:   projectID,
			Type:        "low_vegetation",
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("NDVI %0.2f is below the healthy threshold", latest.NDVI),
			TriggeredAt: latest.CapturedAt,
			Active:      true,
		})
	}
	if drop := previous.CanopyCoverPct - latest.CanopyCoverPct; drop > 15 {
		alerts = append(alerts, Alert{
			ID:          uuid.New(),
			ProjectID:   projectID,
			Type:        "canopy_loss",
			Severity:    SeverityCritical,
			Message:     fmt.Sprintf("canopy cover dropped %0.1f%% since the previous pass", drop),
			TriggeredAt: latest.CapturedAt,
			Active:      true,
		})
	}
	return alerts
}

package monitoring

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(NewSimulatedProvider(), nil, nil, zap.NewNop())
}

func TestSatellite_SeriesIsDeterministic(t *testing.T) {
	svc := newTestService()
	projectID := uuid.New()

	first, err := svc.Satellite(context.Background(), projectID, 6)
	require.NoError(t, err)
	require.Len(t, first, 6)

	second, err := svc.Satellite(context.Background(), projectID, 6)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same site must report the same series")

	other, err := svc.Satellite(context.Background(), uuid.New(), 6)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].NDVI, other[0].NDVI, "different sites should differ")
}

func TestSatellite_ValuesInRange(t *testing.T) {
	svc := newTestService()

	observations, err := svc.Satellite(context.Background(), uuid.New(), 12)
	require.NoError(t, err)
	require.Len(t, observations, 12)

	for _, o := range observations {
		assert.GreaterOrEqual(t, o.NDVI, 0.0)
		assert.LessOrEqual(t, o.NDVI, 1.0)
		assert.GreaterOrEqual(t, o.CanopyCoverPct, 0.0)
		assert.LessOrEqual(t, o.CanopyCoverPct, 100.0)
	}

	// series is oldest first
	assert.True(t, observations[0].CapturedAt.Before(observations[11].CapturedAt))
}

func TestAnalyze_ProducesSummary(t *testing.T) {
	svc := newTestService()

	analysis, err := svc.Analyze(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, analysis.VegetationHealthIndex, 0.0)
	assert.LessOrEqual(t, analysis.VegetationHealthIndex, 1.0)
	assert.NotEmpty(t, analysis.Summary)
	assert.False(t, analysis.AnalyzedAt.IsZero())
}

func TestAlerts_NeverNil(t *testing.T) {
	svc := newTestService()

	alerts, err := svc.Alerts(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	for _, a := range alerts {
		assert.True(t, a.Active)
		assert.NotEmpty(t, a.Type)
		assert.NotEmpty(t, a.Severity)
	}
}

func TestDeriveAlerts_FlagsCanopyLoss(t *testing.T) {
	projectID := uuid.New()
	observations := []SatelliteObservation{
		{ProjectID: projectID, CanopyCoverPct: 80, NDVI: 0.6},
		{ProjectID: projectID, CanopyCoverPct: 50, NDVI: 0.6},
	}

	alerts := deriveAlerts(projectID, observations)
	require.Len(t, alerts, 1)
	assert.Equal(t, "canopy_loss", alerts[0].Type)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
}

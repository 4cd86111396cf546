package projects

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	repo := NewRepository(setupTestDB(t))
	return NewService(repo, nil, 20, zap.NewNop()), repo
}

func TestEstimateCredits(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, int64(400), svc.EstimateCredits(20))
	assert.Equal(t, int64(0), svc.EstimateCredits(0))
	assert.Equal(t, int64(10), svc.EstimateCredits(0.5))
	assert.Equal(t, int64(31), svc.EstimateCredits(1.55)) // rounds, not truncates
}

func TestSubmit_ComputesEstimateAndStartsPending(t *testing.T) {
	svc, _ := newTestService(t)

	project, err := svc.Submit(context.Background(), uuid.New(), SubmitProjectInput{
		Title:               "Coastal Mangroves",
		ProjectType:         "reforestation",
		AreaHectares:        30,
		PlantedAreaHectares: 20,
		Latitude:            6.92,
		Longitude:           79.86,
		TreeSpecies:         []string{"Rhizophora", "Avicennia"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, project.Status)
	assert.Equal(t, int64(400), project.EstimatedCO2Tons)
	assert.Nil(t, project.AvailableCredits)
	assert.Equal(t, int64(400), project.EffectiveAvailable())
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	cases := []struct {
		name  string
		input SubmitProjectInput
	}{
		{"missing title", SubmitProjectInput{AreaHectares: 10, PlantedAreaHectares: 5}},
		{"zero area", SubmitProjectInput{Title: "x", ProjectType: "reforestation", PlantedAreaHectares: 5}},
		{"planted exceeds total", SubmitProjectInput{Title: "x", ProjectType: "reforestation", AreaHectares: 5, PlantedAreaHectares: 10}},
		{"latitude out of range", SubmitProjectInput{Title: "x", ProjectType: "reforestation", AreaHectares: 10, PlantedAreaHectares: 5, Latitude: 91}},
		{"longitude out of range", SubmitProjectInput{Title: "x", ProjectType: "reforestation", AreaHectares: 10, PlantedAreaHectares: 5, Longitude: -181}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, owner, tc.input)
			assert.Error(t, err)
		})
	}
}

func TestSubmit_AttachesMedia(t *testing.T) {
	svc, repo := newTestService(t)

	project, err := svc.Submit(context.Background(), uuid.New(), SubmitProjectInput{
		Title:               "Upland Forest",
		ProjectType:         "afforestation",
		AreaHectares:        12,
		PlantedAreaHectares: 10,
		Media: []MediaInput{
			{FileURL: "https://cdn.example.org/site.jpg", FileName: "site.jpg", MediaType: "image", FileSize: 2048},
		},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "site.jpg", got.Media[0].FileName)
}

func TestList_FiltersByStatus(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	pending := seedProject(t, repo, 100)
	approved := seedProject(t, repo, 200)
	require.NoError(t, repo.MarkVerified(ctx, approved.ID, "", 200, uuid.Nil))

	got, err := svc.List(ctx, ProjectFilter{Statuses: []string{StatusPending}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)

	got, err = svc.List(ctx, ProjectFilter{Statuses: []string{StatusVerified}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)
}

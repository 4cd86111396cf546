package projects

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Project{}, &ProjectMedia{}))
	return db
}

func seedProject(t *testing.T, repo Repository, estimated int64) *Project {
	t.Helper()
	project := &Project{
		Title:               "Mangrove Restoration",
		ProjectType:         "reforestation",
		AreaHectares:        25,
		PlantedAreaHectares: 20,
		EstimatedCO2Tons:    estimated,
		SubmittedBy:         uuid.New(),
	}
	require.NoError(t, repo.Create(context.Background(), project))
	return project
}

func TestDecrementAvailableCredits_FallsBackToEstimate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	project := seedProject(t, repo, 400)

	// available_credits starts out null; the first decrement initializes it
	// from the estimate
	err := repo.DecrementAvailableCredits(context.Background(), project.ID, 150)
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AvailableCredits)
	assert.Equal(t, int64(250), *got.AvailableCredits)
	assert.Equal(t, int64(250), got.EffectiveAvailable())
}

func TestDecrementAvailableCredits_Accounting(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	project := seedProject(t, repo, 400)

	quantities := []int64{100, 50, 200}
	for _, qty := range quantities {
		require.NoError(t, repo.DecrementAvailableCredits(context.Background(), project.ID, qty))
	}

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AvailableCredits)
	assert.Equal(t, int64(400-100-50-200), *got.AvailableCredits)
}

func TestDecrementAvailableCredits_RejectsOversell(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	project := seedProject(t, repo, 400)

	err := repo.DecrementAvailableCredits(context.Background(), project.ID, 600)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AvailableCredits)
	assert.Equal(t, int64(400), got.EffectiveAvailable())
}

func TestDecrementAvailableCredits_ConcurrentNeverNegative(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	project := seedProject(t, repo, 400)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.DecrementAvailableCredits(context.Background(), project.ID, 300)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientCredits)
		}
	}
	assert.LessOrEqual(t, succeeded, 1, "at most one 300-credit buy can win against 400 available")

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.EffectiveAvailable(), int64(0))
}

func TestMarkVerified_RequiresPendingStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	project := seedProject(t, repo, 400)

	reviewer := uuid.New()
	require.NoError(t, repo.MarkVerified(context.Background(), project.ID, "looks good", 400, reviewer))

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, got.Status)
	require.NotNil(t, got.AvailableCredits)
	assert.Equal(t, int64(400), *got.AvailableCredits)
	assert.NotNil(t, got.VerificationDate)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, reviewer, *got.VerifiedBy)

	// second approval must not go through
	err = repo.MarkVerified(context.Background(), project.ID, "again", 400, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkTokenized_RequiresVerifiedStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	project := seedProject(t, repo, 400)

	err := repo.MarkTokenized(context.Background(), project.ID, "0xabc")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, repo.MarkVerified(context.Background(), project.ID, "", 400, uuid.Nil))
	require.NoError(t, repo.MarkTokenized(context.Background(), project.ID, "0xabc"))

	got, err := repo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusTokenized, got.Status)
	require.NotNil(t, got.BlockchainHash)
	assert.Equal(t, "0xabc", *got.BlockchainHash)
}

package marketplace

import (
	"context"
	"math/big"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carbonchain/internal/chain"
	"carbonchain/internal/chain/chaintest"
	"carbonchain/internal/config"
	"carbonchain/internal/projects"
)

const buyerWallet = "0x1111111111111111111111111111111111111111"

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		UnitPriceMatic: 0.001,
		MaticToUSD:     0.5,
		FeeRecipient:   "0x087573bec726A13d77F521318b3FD7dE3c830988",
	}
}

func newTestService(t *testing.T) (*Service, projects.Repository, *chaintest.MockClient) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&projects.Project{}, &projects.ProjectMedia{}, &Transaction{}))

	projectRepo := projects.NewRepository(db)
	client := &chaintest.MockClient{}
	svc := NewService(NewRepository(db), projectRepo, client, testChainConfig(), nil, zap.NewNop())
	return svc, projectRepo, client
}

func seedVerifiedProject(t *testing.T, repo projects.Repository, estimated int64) *projects.Project {
	t.Helper()
	project := &projects.Project{
		Title:               "Mangrove Restoration",
		ProjectType:         "reforestation",
		AreaHectares:        25,
		PlantedAreaHectares: 20,
		EstimatedCO2Tons:    estimated,
		SubmittedBy:         uuid.New(),
	}
	require.NoError(t, repo.Create(context.Background(), project))
	require.NoError(t, repo.MarkVerified(context.Background(), project.ID, "", estimated, uuid.Nil))
	return project
}

func wei(matic float64) *big.Int { return chain.MaticToWei(matic) }

func TestPurchase_SettlesAndDecrements(t *testing.T) {
	svc, projectRepo, client := newTestService(t)
	project := seedVerifiedProject(t, projectRepo, 400)
	buyer := uuid.New()

	client.On("NativeBalance", mock.Anything, buyerWallet).Return(wei(10), nil)
	client.On("SendPayment", mock.Anything, testChainConfig().FeeRecipient, wei(0.1)).Return("0xpay", nil)

	result, err := svc.Purchase(context.Background(), buyer, project.ID, 100, buyerWallet)
	require.NoError(t, err)
	assert.Equal(t, "0xpay", result.TransactionHash)
	assert.InDelta(t, 0.1, result.TotalMatic, 1e-9)
	assert.InDelta(t, 0.05, result.TotalUSD, 1e-9) // 100 * 0.001 * 0.5
	assert.Equal(t, StatusCompleted, result.Transaction.Status)

	got, err := projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.EffectiveAvailable())
	client.AssertExpectations(t)
}

func TestPurchase_RejectsOversellBeforePayment(t *testing.T) {
	svc, projectRepo, client := newTestService(t)
	project := seedVerifiedProject(t, projectRepo, 400)

	_, err := svc.Purchase(context.Background(), uuid.New(), project.ID, 600, buyerWallet)
	assert.ErrorIs(t, err, projects.ErrInsufficientCredits)

	client.AssertNotCalled(t, "NativeBalance", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "SendPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPurchase_RejectsInsufficientBalance(t *testing.T) {
	svc, projectRepo, client := newTestService(t)
	project := seedVerifiedProject(t, projectRepo, 400)

	client.On("NativeBalance", mock.Anything, buyerWallet).Return(wei(0.05), nil)

	_, err := svc.Purchase(context.Background(), uuid.New(), project.ID, 100, buyerWallet)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	client.AssertNotCalled(t, "SendPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPurchase_RejectsBadInput(t *testing.T) {
	svc, projectRepo, _ := newTestService(t)
	project := seedVerifiedProject(t, projectRepo, 400)

	_, err := svc.Purchase(context.Background(), uuid.New(), project.ID, 0, buyerWallet)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Purchase(context.Background(), uuid.New(), project.ID, 10, "bogus")
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
}

func TestPurchase_RejectsPendingProject(t *testing.T) {
	svc, projectRepo, _ := newTestService(t)
	project := &projects.Project{
		Title:               "Unreviewed",
		ProjectType:         "reforestation",
		AreaHectares:        10,
		PlantedAreaHectares: 10,
		EstimatedCO2Tons:    200,
		SubmittedBy:         uuid.New(),
	}
	require.NoError(t, projectRepo.Create(context.Background(), project))

	_, err := svc.Purchase(context.Background(), uuid.New(), project.ID, 10, buyerWallet)
	assert.ErrorIs(t, err, ErrNotPurchasable)
}

func TestPurchase_CompetingBuysNeverOversell(t *testing.T) {
	svc, projectRepo, client := newTestService(t)
	project := seedVerifiedProject(t, projectRepo, 400)

	client.On("NativeBalance", mock.Anything, buyerWallet).Return(wei(10), nil)
	client.On("SendPayment", mock.Anything, mock.Anything, mock.Anything).Return("0xpay", nil)

	// two 300-credit buys against 400 available: both pass the precondition
	// read, but the conditional decrement lets only one land
	first, err1 := svc.Purchase(context.Background(), uuid.New(), project.ID, 300, buyerWallet)
	_, err2 := svc.Purchase(context.Background(), uuid.New(), project.ID, 300, buyerWallet)

	require.NoError(t, err1)
	require.NotNil(t, first)
	assert.Error(t, err2, "second buy must fail the availability precondition")

	got, err := projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.EffectiveAvailable(), int64(0))
	assert.Equal(t, int64(100), got.EffectiveAvailable())
}

func TestSummarize_PortfolioAccounting(t *testing.T) {
	svc, projectRepo, client := newTestService(t)
	project := seedVerifiedProject(t, projectRepo, 400)
	buyer := uuid.New()

	client.On("NativeBalance", mock.Anything, buyerWallet).Return(wei(10), nil)
	client.On("SendPayment", mock.Anything, mock.Anything, mock.Anything).Return("0xpay", nil)

	_, err := svc.Purchase(context.Background(), buyer, project.ID, 100, buyerWallet)
	require.NoError(t, err)
	_, err = svc.Purchase(context.Background(), buyer, project.ID, 50, buyerWallet)
	require.NoError(t, err)

	summary, err := svc.repo.Summarize(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(150), summary.TotalCredits)
	assert.InDelta(t, 150*0.001*0.5, summary.TotalSpent, 1e-9)
	assert.Equal(t, int64(2), summary.TransactionCount)

	// a different buyer sees an empty portfolio
	empty, err := svc.repo.Summarize(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCredits)
	assert.Zero(t, empty.TransactionCount)
}

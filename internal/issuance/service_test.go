package issuance

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carbonchain/internal/auth"
	"carbonchain/internal/chain"
	"carbonchain/internal/chain/chaintest"
	"carbonchain/internal/credits"
	"carbonchain/internal/projects"
	"carbonchain/pkg/storage"
)

const testWallet = "0x087573bec726A13d77F521318b3FD7dE3c830988"

type fixture struct {
	svc         *Service
	projectRepo projects.Repository
	profileRepo auth.Repository
	creditRepo  credits.Repository
	outboxRepo  OutboxRepository
	client      *chaintest.MockClient
	store       *storage.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&projects.Project{}, &projects.ProjectMedia{},
		&auth.Profile{}, &credits.CarbonCredit{}, &IssuanceOutbox{},
	))

	f := &fixture{
		projectRepo: projects.NewRepository(db),
		profileRepo: auth.NewRepository(db),
		creditRepo:  credits.NewRepository(db),
		outboxRepo:  NewOutboxRepository(db),
		client:      &chaintest.MockClient{},
		store:       storage.NewMemoryStore(),
	}
	f.svc = NewService(f.projectRepo, f.profileRepo, f.creditRepo, f.outboxRepo,
		f.client, f.store, nil, nil, zap.NewNop())
	return f
}

func (f *fixture) seedProject(t *testing.T, wallet *string) *projects.Project {
	t.Helper()
	profile := &auth.Profile{
		Email:         uuid.NewString() + "@example.org",
		PasswordHash:  "x",
		Role:          auth.RoleNGO,
		WalletAddress: wallet,
	}
	require.NoError(t, f.profileRepo.Create(context.Background(), profile))

	project := &projects.Project{
		Title:               "Mangrove Restoration",
		ProjectType:         "reforestation",
		AreaHectares:        25,
		PlantedAreaHectares: 20,
		EstimatedCO2Tons:    400,
		SubmittedBy:         profile.ID,
	}
	require.NoError(t, f.projectRepo.Create(context.Background(), project))
	return project
}

func strPtr(s string) *string { return &s }

func TestApprove_NoWallet_VerifiesWithoutMint(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, nil)

	result, err := f.svc.Approve(context.Background(), project.ID, "approved", uuid.New())
	require.NoError(t, err)
	assert.False(t, result.Minted)

	got, err := f.projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusVerified, got.Status)
	assert.Nil(t, got.BlockchainHash)
	require.NotNil(t, got.AvailableCredits)
	assert.Equal(t, int64(400), *got.AvailableCredits)

	f.client.AssertNotCalled(t, "MintCredit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_MalformedWallet_VerifiesWithoutMint(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, strPtr("not-an-address"))

	result, err := f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	require.NoError(t, err)
	assert.False(t, result.Minted)

	got, err := f.projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusVerified, got.Status)
	assert.Nil(t, got.BlockchainHash)
	f.client.AssertNotCalled(t, "MintCredit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_MintsAndMirrors(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, strPtr(testWallet))

	f.client.On("MintCredit", mock.Anything, testWallet, int64(400), mock.AnythingOfType("string")).
		Return(&chain.MintResult{TransactionHash: "0xmint", TokenID: "7"}, nil)

	reviewer := uuid.New()
	result, err := f.svc.Approve(context.Background(), project.ID, "solid evidence", reviewer)
	require.NoError(t, err)
	assert.True(t, result.Minted)
	assert.Equal(t, "7", result.TokenID)
	assert.Equal(t, "0xmint", result.TxHash)
	assert.Contains(t, result.MetadataURI, project.ID.String())

	got, err := f.projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusTokenized, got.Status)
	require.NotNil(t, got.BlockchainHash)
	assert.Equal(t, "0xmint", *got.BlockchainHash)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, reviewer, *got.VerifiedBy)

	credit, err := f.creditRepo.GetByTokenID(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, project.ID, credit.ProjectID)
	assert.Equal(t, int64(400), credit.AmountTons)
	assert.Equal(t, "0xmint", credit.MintTxHash)
	require.NotNil(t, credit.OwnerID)
	assert.Equal(t, project.SubmittedBy, *credit.OwnerID)

	entry, err := f.outboxRepo.GetByIdempotencyKey(context.Background(), "mint:"+project.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, entry.Step)

	f.client.AssertExpectations(t)
}

func TestApprove_MintFailure_Surfaces(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, strPtr(testWallet))

	f.client.On("MintCredit", mock.Anything, testWallet, int64(400), mock.AnythingOfType("string")).
		Return(nil, errors.New("rpc unavailable"))

	_, err := f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	assert.Error(t, err)

	// project stays verified; the mint never went through
	got, err := f.projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusVerified, got.Status)

	entry, outErr := f.outboxRepo.GetByIdempotencyKey(context.Background(), "mint:"+project.ID.String())
	require.NoError(t, outErr)
	assert.Equal(t, StepMintSubmitted, entry.Step)
	assert.Contains(t, entry.LastError, "rpc unavailable")
}

func TestApprove_ExistingMirrorRow_BlocksSecondMint(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, strPtr(testWallet))

	require.NoError(t, f.creditRepo.Create(context.Background(), &credits.CarbonCredit{
		ProjectID:  project.ID,
		TokenID:    "3",
		AmountTons: 400,
		Status:     credits.StatusAvailable,
	}))

	_, err := f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	assert.ErrorIs(t, err, ErrAlreadyIssued)
	f.client.AssertNotCalled(t, "MintCredit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_RejectsNonPending(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, nil)

	_, err := f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	assert.ErrorIs(t, err, projects.ErrInvalidTransition)
}

func TestReject_RequiresNotes(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, nil)

	_, err := f.svc.Reject(context.Background(), project.ID, "   ")
	assert.ErrorIs(t, err, ErrNotesRequired)

	got, err := f.svc.Reject(context.Background(), project.ID, "insufficient evidence")
	require.NoError(t, err)
	assert.Equal(t, projects.StatusRejected, got.Status)
	assert.Equal(t, "insufficient evidence", got.VerificationNotes)
}

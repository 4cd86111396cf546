package issuance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
	"carbonchain/internal/credits"
	"carbonchain/internal/projects"
)

// flakyCreditRepo fails the first n Create calls, then behaves normally.
type flakyCreditRepo struct {
	credits.Repository
	failures int
}

func (r *flakyCreditRepo) Create(ctx context.Context, credit *credits.CarbonCredit) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("database unavailable")
	}
	return r.Repository.Create(ctx, credit)
}

func TestReconciler_RepairsMissedMirrorWrite(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyCreditRepo{Repository: f.creditRepo, failures: 1}
	f.svc = NewService(f.projectRepo, f.profileRepo, flaky, f.outboxRepo,
		f.client, f.store, nil, nil, zap.NewNop())

	project := f.seedProject(t, strPtr(testWallet))
	f.client.On("MintCredit", mock.Anything, testWallet, int64(400), mock.AnythingOfType("string")).
		Return(&chain.MintResult{TransactionHash: "0xmint", TokenID: "9"}, nil)

	// the mint succeeds but the mirror insert fails; the approval still
	// reports a successful mint
	result, err := f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Minted)

	got, err := f.projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusVerified, got.Status)

	entry, err := f.outboxRepo.GetByIdempotencyKey(context.Background(), "mint:"+project.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StepMintConfirmed, entry.Step)

	reconciler := NewReconciler(f.svc, f.outboxRepo, "@every 1m", 5, zap.NewNop())
	require.NoError(t, reconciler.Sweep(context.Background()))

	// the sweep replays the mirror insert and the tokenized flip
	credit, err := f.creditRepo.GetByTokenID(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, project.ID, credit.ProjectID)
	require.NotNil(t, credit.OwnerID)
	assert.Equal(t, project.SubmittedBy, *credit.OwnerID)

	got, err = f.projectRepo.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusTokenized, got.Status)

	entry, err = f.outboxRepo.GetByIdempotencyKey(context.Background(), "mint:"+project.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, entry.Step)
}

func TestReconciler_BacksOffAndGivesUp(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyCreditRepo{Repository: f.creditRepo, failures: 100}
	f.svc = NewService(f.projectRepo, f.profileRepo, flaky, f.outboxRepo,
		f.client, f.store, nil, nil, zap.NewNop())

	project := f.seedProject(t, strPtr(testWallet))
	f.client.On("MintCredit", mock.Anything, testWallet, int64(400), mock.AnythingOfType("string")).
		Return(&chain.MintResult{TransactionHash: "0xmint", TokenID: "11"}, nil)

	_, err := f.svc.Approve(context.Background(), project.ID, "", uuid.New())
	require.NoError(t, err)

	reconciler := NewReconciler(f.svc, f.outboxRepo, "@every 1m", 2, zap.NewNop())

	require.NoError(t, reconciler.Sweep(context.Background()))
	entry, err := f.outboxRepo.GetByIdempotencyKey(context.Background(), "mint:"+project.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Attempts)
	require.NotNil(t, entry.NextRetryAt)
	assert.True(t, entry.NextRetryAt.After(time.Now()))

	// force the retry due and sweep until the retry budget is exhausted
	past := time.Now().Add(-time.Minute)
	entry.NextRetryAt = &past
	require.NoError(t, f.outboxRepo.Update(context.Background(), entry))

	require.NoError(t, reconciler.Sweep(context.Background()))
	entry, err = f.outboxRepo.GetByIdempotencyKey(context.Background(), "mint:"+project.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StepFailed, entry.Step)
	assert.Equal(t, 2, entry.Attempts)
}

func TestReconciler_IgnoresUnconfirmedMints(t *testing.T) {
	f := newFixture(t)
	entry := &IssuanceOutbox{
		ProjectID:      uuid.New(),
		IdempotencyKey: "mint:" + uuid.NewString(),
		Step:           StepMintSubmitted,
	}
	require.NoError(t, f.outboxRepo.Create(context.Background(), entry))

	reconciler := NewReconciler(f.svc, f.outboxRepo, "@every 1m", 5, zap.NewNop())
	require.NoError(t, reconciler.Sweep(context.Background()))

	got, err := f.outboxRepo.GetByIdempotencyKey(context.Background(), entry.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, StepMintSubmitted, got.Step)
	assert.Equal(t, 0, got.Attempts)
}

package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler sweeps outbox entries whose mint is confirmed on chain but whose
// database writes did not finish, and replays the missing writes. It never
// re-submits a mint: an entry stuck at mint_submitted means the transaction
// outcome is unknown and needs a human.
type Reconciler struct {
	service    *Service
	outbox     OutboxRepository
	schedule   string
	maxRetries int
	cron       *cron.Cron
	logger     *zap.Logger
}

func NewReconciler(service *Service, outbox OutboxRepository, schedule string, maxRetries int, logger *zap.Logger) *Reconciler {
	if schedule == "" {
		schedule = "@every 1m"
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Reconciler{
		service:    service,
		outbox:     outbox,
		schedule:   schedule,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Start schedules the sweep. Returns an error if the schedule spec is bad.
func (r *Reconciler) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error("issuance sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}
	r.cron.Start()
	r.logger.Info("issuance reconciler started", zap.String("schedule", r.schedule))
	return nil
}

func (r *Reconciler) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Sweep runs one pass over the stuck entries.
func (r *Reconciler) Sweep(ctx context.Context) error {
	entries, err := r.outbox.ListStuck(ctx, time.Now(), 50)
	if err != nil {
		return fmt.Errorf("failed to list stuck issuances: %w", err)
	}

	for i := range entries {
		entry := &entries[i]
		if err := r.repair(ctx, entry); err != nil {
			entry.Attempts++
			entry.LastError = err.Error()
			if entry.Attempts >= r.maxRetries {
				entry.Step = StepFailed
				r.logger.Error("issuance gave up after max retries",
					zap.String("project_id", entry.ProjectID.String()),
					zap.String("token_id", entry.TokenID),
					zap.Int("attempts", entry.Attempts))
			} else {
				next := time.Now().Add(backoff(entry.Attempts))
				entry.NextRetryAt = &next
			}
			if updErr := r.outbox.Update(ctx, entry); updErr != nil {
				r.logger.Error("failed to update outbox entry", zap.Error(updErr))
			}
			continue
		}
		r.logger.Info("issuance repaired",
			zap.String("project_id", entry.ProjectID.String()),
			zap.String("token_id", entry.TokenID))
	}
	return nil
}

func (r *Reconciler) repair(ctx context.Context, entry *IssuanceOutbox) error {
	if entry.Step == StepMintConfirmed {
		if err := r.service.recordMirror(ctx, entry); err != nil {
			return fmt.Errorf("mirror write: %w", err)
		}
	}
	if entry.Step == StepMirrorRecorded {
		if err := r.service.finalize(ctx, entry); err != nil {
			return fmt.Errorf("tokenized flip: %w", err)
		}
	}
	return nil
}

func backoff(attempts int) time.Duration {
	d := time.Minute << uint(attempts-1)
	if d > 30*time.Minute {
		d = 30 * time.Minute
	}
	return d
}

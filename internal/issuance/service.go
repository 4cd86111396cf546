package issuance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/auth"
	"carbonchain/internal/chain"
	"carbonchain/internal/credits"
	"carbonchain/internal/notifications"
	"carbonchain/internal/projects"
	"carbonchain/pkg/email"
	"carbonchain/pkg/storage"
	"carbonchain/pkg/workflows"
)

var (
	ErrNotesRequired = errors.New("rejection notes are required")
	ErrAlreadyIssued = errors.New("credits already issued for this project")
)

// ProfileDirectory resolves the submitting NGO's account. Satisfied by
// auth.Repository.
type ProfileDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auth.Profile, error)
}

// ApprovalResult reports what the bridge accomplished. Minted is false when
// the project was verified but no wallet was available to receive the tokens.
type ApprovalResult struct {
	Project     *projects.Project `json:"project"`
	Minted      bool              `json:"minted"`
	TokenID     string            `json:"token_id,omitempty"`
	TxHash      string            `json:"tx_hash,omitempty"`
	MetadataURI string            `json:"metadata_uri,omitempty"`
}

// Service drives the review decision and the chain issuance bridge.
type Service struct {
	projects    projects.Repository
	profiles    ProfileDirectory
	credits     credits.Repository
	outbox      OutboxRepository
	chainClient chain.Client
	store       storage.MetadataStore
	mailer      email.Notifier
	hub         *notifications.Hub
	lifecycle   *workflows.StateMachine
	logger      *zap.Logger
}

func NewService(
	projectRepo projects.Repository,
	profiles ProfileDirectory,
	creditRepo credits.Repository,
	outbox OutboxRepository,
	chainClient chain.Client,
	store storage.MetadataStore,
	mailer email.Notifier,
	hub *notifications.Hub,
	logger *zap.Logger,
) *Service {
	if mailer == nil {
		mailer = email.NoopNotifier{}
	}
	return &Service{
		projects:    projectRepo,
		profiles:    profiles,
		credits:     creditRepo,
		outbox:      outbox,
		chainClient: chainClient,
		store:       store,
		mailer:      mailer,
		hub:         hub,
		lifecycle:   workflows.NewProjectStateMachine(),
		logger:      logger,
	}
}

// Approve verifies a pending project and, when the submitting NGO has a
// usable wallet, mints its estimated credits on chain and mirrors them into
// the database. The chain mint is the point of no return: everything after
// it is applied best-effort and repaired by the reconciler.
func (s *Service) Approve(ctx context.Context, projectID uuid.UUID, notes string, approvedBy uuid.UUID) (*ApprovalResult, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !s.lifecycle.CanTransition(project.Status, projects.StatusVerified) {
		return nil, fmt.Errorf("%w: %s -> %s", projects.ErrInvalidTransition, project.Status, projects.StatusVerified)
	}

	if err := s.projects.MarkVerified(ctx, projectID, notes, project.EstimatedCO2Tons, approvedBy); err != nil {
		return nil, err
	}
	project.Status = projects.StatusVerified
	available := project.EstimatedCO2Tons
	project.AvailableCredits = &available
	if approvedBy != uuid.Nil {
		reviewer := approvedBy
		project.VerifiedBy = &reviewer
	}

	s.hub.Publish(notifications.EventProjectApproved, map[string]interface{}{
		"project_id": project.ID,
		"title":      project.Title,
	})

	profile, err := s.profiles.GetByID(ctx, project.SubmittedBy)
	if err != nil {
		s.logger.Warn("approved project has no submitter profile",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		return &ApprovalResult{Project: project}, nil
	}

	s.notify(ctx, profile.Email, "Project approved",
		fmt.Sprintf("Your project %q has been approved. %d carbon credits are being issued.",
			project.Title, project.EstimatedCO2Tons))

	// No wallet, or a wallet that does not look like an EVM address, ends the
	// flow here. The project stays verified and nothing touches the chain.
	if profile.WalletAddress == nil || !chain.IsValidAddress(*profile.WalletAddress) {
		s.logger.Info("project verified without minting, no usable wallet",
			zap.String("project_id", projectID.String()))
		return &ApprovalResult{Project: project}, nil
	}

	return s.issue(ctx, project, *profile.WalletAddress)
}

func (s *Service) issue(ctx context.Context, project *projects.Project, recipient string) (*ApprovalResult, error) {
	key := "mint:" + project.ID.String()
	if existing, err := s.outbox.GetByIdempotencyKey(ctx, key); err == nil {
		if existing.Step == StepMintSubmitted || existing.TxHash != "" {
			return nil, fmt.Errorf("%w: token %s", ErrAlreadyIssued, existing.TokenID)
		}
	}
	if exists, err := s.credits.ExistsForProject(ctx, project.ID); err == nil && exists {
		return nil, fmt.Errorf("%w: project %s already has a mirror row", ErrAlreadyIssued, project.ID)
	}

	metadataURI, err := s.store.Upload(ctx, fmt.Sprintf("metadata/%s.json", project.ID), buildMetadata(project))
	if err != nil {
		return nil, fmt.Errorf("failed to upload credit metadata: %w", err)
	}

	entry := &IssuanceOutbox{
		ProjectID:      project.ID,
		OwnerID:        project.SubmittedBy,
		IdempotencyKey: key,
		Step:           StepMetadataUploaded,
		Recipient:      recipient,
		AmountTons:     project.EstimatedCO2Tons,
		MetadataURI:    metadataURI,
	}
	if err := s.outbox.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record issuance: %w", err)
	}

	entry.Step = StepMintSubmitted
	if err := s.outbox.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record mint submission: %w", err)
	}

	mint, err := s.chainClient.MintCredit(ctx, recipient, project.EstimatedCO2Tons, metadataURI)
	if err != nil {
		entry.LastError = err.Error()
		if updErr := s.outbox.Update(ctx, entry); updErr != nil {
			s.logger.Error("failed to record mint error", zap.Error(updErr))
		}
		return nil, fmt.Errorf("failed to mint credits: %w", err)
	}

	entry.Step = StepMintConfirmed
	entry.TokenID = mint.TokenID
	entry.TxHash = mint.TransactionHash
	entry.LastError = ""
	if err := s.outbox.Update(ctx, entry); err != nil {
		s.logger.Error("mint confirmed but outbox update failed",
			zap.String("tx_hash", mint.TransactionHash),
			zap.Error(err))
	}

	result := &ApprovalResult{
		Project:     project,
		Minted:      true,
		TokenID:     mint.TokenID,
		TxHash:      mint.TransactionHash,
		MetadataURI: metadataURI,
	}

	// Mirror write and status flip are best-effort from here on. The
	// reconciler picks up whatever fails.
	if err := s.recordMirror(ctx, entry); err != nil {
		s.logger.Error("mint succeeded but mirror write failed, leaving for reconciler",
			zap.String("project_id", project.ID.String()),
			zap.String("token_id", mint.TokenID),
			zap.Error(err))
		return result, nil
	}

	if err := s.finalize(ctx, entry); err != nil {
		s.logger.Error("mint succeeded but tokenized flip failed, leaving for reconciler",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		return result, nil
	}

	bh := mint.TransactionHash
	project.Status = projects.StatusTokenized
	project.BlockchainHash = &bh

	s.hub.Publish(notifications.EventCreditMinted, map[string]interface{}{
		"project_id": project.ID,
		"token_id":   mint.TokenID,
		"amount":     project.EstimatedCO2Tons,
	})

	s.logger.Info("credits issued",
		zap.String("project_id", project.ID.String()),
		zap.String("token_id", mint.TokenID),
		zap.String("tx_hash", mint.TransactionHash))

	return result, nil
}

// recordMirror inserts the CarbonCredit row for a confirmed mint and
// advances the outbox. Idempotent per token.
func (s *Service) recordMirror(ctx context.Context, entry *IssuanceOutbox) error {
	if _, err := s.credits.GetByTokenID(ctx, entry.TokenID); err == nil {
		entry.Step = StepMirrorRecorded
		return s.outbox.Update(ctx, entry)
	}

	credit := &credits.CarbonCredit{
		ProjectID:         entry.ProjectID,
		TokenID:           entry.TokenID,
		AmountTons:        entry.AmountTons,
		Status:            credits.StatusAvailable,
		BlockchainAddress: entry.Recipient,
		MintTxHash:        entry.TxHash,
	}
	if entry.OwnerID != uuid.Nil {
		owner := entry.OwnerID
		credit.OwnerID = &owner
	}
	if err := s.credits.Create(ctx, credit); err != nil {
		return err
	}
	entry.Step = StepMirrorRecorded
	return s.outbox.Update(ctx, entry)
}

// finalize flips the project to tokenized and closes the outbox entry.
func (s *Service) finalize(ctx context.Context, entry *IssuanceOutbox) error {
	err := s.projects.MarkTokenized(ctx, entry.ProjectID, entry.TxHash)
	if err != nil && !errors.Is(err, projects.ErrInvalidTransition) {
		return err
	}
	if errors.Is(err, projects.ErrInvalidTransition) {
		// already tokenized is fine on a reconciler rerun; anything else is not
		project, getErr := s.projects.GetByID(ctx, entry.ProjectID)
		if getErr != nil || project.Status != projects.StatusTokenized {
			return err
		}
	}
	entry.Step = StepCompleted
	return s.outbox.Update(ctx, entry)
}

// Reject marks a pending project rejected. Notes are mandatory so the NGO
// learns why.
func (s *Service) Reject(ctx context.Context, projectID uuid.UUID, notes string) (*projects.Project, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, ErrNotesRequired
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !s.lifecycle.CanTransition(project.Status, projects.StatusRejected) {
		return nil, fmt.Errorf("%w: %s -> %s", projects.ErrInvalidTransition, project.Status, projects.StatusRejected)
	}
	if err := s.projects.MarkRejected(ctx, projectID, notes); err != nil {
		return nil, err
	}
	project.Status = projects.StatusRejected
	project.VerificationNotes = notes

	if profile, err := s.profiles.GetByID(ctx, project.SubmittedBy); err == nil {
		s.notify(ctx, profile.Email, "Project rejected",
			fmt.Sprintf("Your project %q was not approved. Reviewer notes: %s", project.Title, notes))
	}

	s.hub.Publish(notifications.EventProjectRejected, map[string]interface{}{
		"project_id": project.ID,
		"title":      project.Title,
	})

	return project, nil
}

func (s *Service) notify(ctx context.Context, to, subject, body string) {
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("failed to send notification email",
			zap.String("to", to),
			zap.Error(err))
	}
}

func buildMetadata(project *projects.Project) map[string]interface{} {
	return map[string]interface{}{
		"name":        fmt.Sprintf("CarbonChain Credit: %s", project.Title),
		"description": project.Description,
		"attributes": []map[string]interface{}{
			{"trait_type": "Project Type", "value": project.ProjectType},
			{"trait_type": "Location", "value": project.LocationName},
			{"trait_type": "Area (ha)", "value": project.AreaHectares},
			{"trait_type": "Planted Area (ha)", "value": project.PlantedAreaHectares},
			{"trait_type": "Estimated CO2 (t)", "value": project.EstimatedCO2Tons},
			{"trait_type": "Verified At", "value": time.Now().UTC().Format(time.RFC3339)},
		},
	}
}

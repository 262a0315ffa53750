package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// SubmitPromptInput carries one team member's prompt submission.
type SubmitPromptInput struct {
	ChallengeID string
	TenantID    string
	Team        domain.Team
	Prompt      string
	AccountID   string
	EndUserID   string
}

// RecordPairingInput carries the judged result of one attack/defense
// matchup.
type RecordPairingInput struct {
	ChallengeID string
	TenantID    string

	AttackSubmissionID  string
	DefenseSubmissionID string

	JudgeOutputRaw map[string]any
	Categories     map[string]any
	JudgeRating    *int
	JudgeFeedback  string

	RedPoints  float64
	BluePoints float64

	TokensTotal *int
	ElapsedMS   *int
}

// PairingService handles red/blue challenge bookkeeping: team prompt
// submissions, counterparty selection, and immutable pairing records.
type PairingService struct {
	store  ports.PairingStore
	logger *slog.Logger
	tracer trace.Tracer
	cfg    EngineConfig

	now func() time.Time
}

// NewPairingService creates a pairing service.
func NewPairingService(store ports.PairingStore, logger *slog.Logger, cfg EngineConfig) *PairingService {
	if logger == nil {
		logger = slog.Default()
	}

	return &PairingService{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("pairing-service"),
		cfg:    cfg,
		now:    time.Now,
	}
}

// SubmitPrompt persists a team member's prompt as the team's newest
// active submission.
func (s *PairingService) SubmitPrompt(ctx context.Context, input SubmitPromptInput) (*domain.TeamSubmission, error) {
	if !input.Team.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTeam, input.Team)
	}

	submission := &domain.TeamSubmission{
		ID:          uuid.NewString(),
		ChallengeID: input.ChallengeID,
		TenantID:    input.TenantID,
		AccountID:   input.AccountID,
		EndUserID:   input.EndUserID,
		Team:        input.Team,
		Prompt:      input.Prompt,
		Active:      true,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return submission, nil
}

// CounterpartySubmission selects the opposing submission a new
// submission should be paired against: the latest active submission from
// the opposite team, or nil when the opposite team has not submitted.
func (s *PairingService) CounterpartySubmission(
	ctx context.Context, challengeID string, team domain.Team,
) (*domain.TeamSubmission, error) {
	if !team.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTeam, team)
	}
	return s.store.LatestActiveSubmission(ctx, challengeID, team.Opponent())
}

// RecordPairing appends one immutable pairing record with the points
// awarded to each side.
func (s *PairingService) RecordPairing(ctx context.Context, input RecordPairingInput) (*domain.TeamPairing, error) {
	ctx, span := s.tracer.Start(ctx, "PairingService.RecordPairing",
		trace.WithAttributes(attribute.String("challenge.id", input.ChallengeID)),
	)
	defer span.End()

	pairing := &domain.TeamPairing{
		ID:                  uuid.NewString(),
		ChallengeID:         input.ChallengeID,
		TenantID:            input.TenantID,
		AttackSubmissionID:  input.AttackSubmissionID,
		DefenseSubmissionID: input.DefenseSubmissionID,
		JudgeOutputRaw:      input.JudgeOutputRaw,
		Categories:          input.Categories,
		JudgeRating:         input.JudgeRating,
		JudgeFeedback:       input.JudgeFeedback,
		RedPoints:           input.RedPoints,
		BluePoints:          input.BluePoints,
		TokensTotal:         input.TokensTotal,
		ElapsedMS:           input.ElapsedMS,
		CreatedAt:           s.now(),
	}
	if err := s.store.CreatePairing(ctx, pairing); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create pairing: %w", err)
	}
	return pairing, nil
}

// ListPairings returns pairings for a challenge, newest first. The limit
// is clamped to the administrative pairing cap; non-positive limits take
// the cap itself.
func (s *PairingService) ListPairings(ctx context.Context, challengeID string, limit int) ([]*domain.TeamPairing, error) {
	if limit <= 0 || limit > s.cfg.PairingMaxLimit {
		limit = s.cfg.PairingMaxLimit
	}
	return s.store.ListPairings(ctx, challengeID, limit)
}

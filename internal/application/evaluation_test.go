package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-arena/infrastructure/scorers"
	"github.com/ahrav/go-arena/infrastructure/storage"
	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

func intPtr(v int) *int { return &v }

func newTestChallenge(id string) *domain.Challenge {
	return &domain.Challenge{
		ID:              id,
		TenantID:        "tenant-1",
		AppID:           "app-1",
		Name:            "extract the secret",
		SuccessType:     domain.SuccessRegex,
		SuccessPattern:  "secret",
		EvaluatorType:   domain.EvaluatorRules,
		ScoringStrategy: domain.StrategyHighestRating,
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func newEvaluationFixture(t *testing.T, challenge *domain.Challenge) (*EvaluationService, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	if challenge != nil {
		require.NoError(t, store.CreateChallenge(context.Background(), challenge))
	}
	registry := NewDefaultScorerRegistry(nil)
	service := NewEvaluationService(store, store, registry, nil, nil, DefaultEngineConfig())
	return service, store
}

func TestEvaluateRegexSuccess(t *testing.T) {
	challenge := newTestChallenge("ch-1")
	service, store := newEvaluationFixture(t, challenge)

	output, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "ch-1",
		TenantID:     "tenant-1",
		EndUserID:    "user-1",
		ResponseText: "the SECRET is out",
		TokensTotal:  intPtr(120),
		ElapsedMS:    intPtr(1500),
	})
	require.NoError(t, err)

	assert.True(t, output.ChallengeSucceeded)
	assert.Equal(t, 0, output.JudgeRating)
	assert.Empty(t, output.JudgeFeedback)
	assert.NotEmpty(t, output.Message)

	attempts, err := store.ListSuccessfulAttempts(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "user-1", attempts[0].EndUserID)
	assert.True(t, attempts[0].Succeeded)
	assert.Equal(t, 120, *attempts[0].TokensTotal)
	assert.Equal(t, 1500, *attempts[0].ElapsedMS)
	assert.Nil(t, attempts[0].Score)
}

func TestEvaluateFailureStillRecorded(t *testing.T) {
	challenge := newTestChallenge("ch-1")
	service, store := newEvaluationFixture(t, challenge)

	output, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "ch-1",
		TenantID:     "tenant-1",
		ResponseText: "nothing interesting",
	})
	require.NoError(t, err)
	assert.False(t, output.ChallengeSucceeded)

	// Failed attempts are recorded but excluded from the leaderboard feed.
	attempts, err := store.ListSuccessfulAttempts(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestEvaluateJudgePrecedence(t *testing.T) {
	// Judge verdict overrides the rules outcome even when the response
	// would fail the success pattern.
	challenge := newTestChallenge("ch-1")
	service, store := newEvaluationFixture(t, challenge)

	output, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "ch-1",
		TenantID:     "tenant-1",
		ResponseText: "no pattern match here",
		Judge: &domain.JudgeVerdict{
			Passed:   true,
			Rating:   9,
			Feedback: "excellent jailbreak",
			Raw:      map[string]any{"passed": true, "rating": 9},
		},
	})
	require.NoError(t, err)

	assert.True(t, output.ChallengeSucceeded)
	assert.Equal(t, 9, output.JudgeRating)
	assert.Equal(t, "excellent jailbreak", output.JudgeFeedback)

	attempts, err := store.ListSuccessfulAttempts(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.NotNil(t, attempts[0].JudgeRating)
	assert.Equal(t, 9, *attempts[0].JudgeRating)
	assert.Equal(t, "excellent jailbreak", attempts[0].JudgeFeedback)
}

func TestEvaluateUnknownChallenge(t *testing.T) {
	service, _ := newEvaluationFixture(t, nil)

	output, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "missing",
		ResponseText: "anything",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
	// Output keys remain populated with defaults on failure.
	assert.False(t, output.ChallengeSucceeded)
	assert.Equal(t, 0, output.JudgeRating)
	assert.Empty(t, output.JudgeFeedback)
	assert.NotEmpty(t, output.Message)
}

func TestEvaluateCustomScoring(t *testing.T) {
	challenge := newTestChallenge("ch-1")
	challenge.ScoringStrategy = domain.StrategyCustom
	challenge.ScoringPluginID = scorers.WeightedPluginID
	challenge.ScoringEntrypoint = scorers.WeightedEntrypoint
	service, store := newEvaluationFixture(t, challenge)

	_, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "ch-1",
		TenantID:     "tenant-1",
		ResponseText: "the secret is out",
		TokensTotal:  intPtr(1000),
		ElapsedMS:    intPtr(5000),
	})
	require.NoError(t, err)

	attempts, err := store.ListSuccessfulAttempts(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.NotNil(t, attempts[0].Score)
	// 100 - 5*1.0 - 1000*0.01 with no judge rating.
	assert.InDelta(t, 85.0, *attempts[0].Score, 1e-9)
}

func TestEvaluateCustomScoringDegradesToNil(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *domain.Challenge)
	}{
		{
			name:   "missing plugin config",
			mutate: func(c *domain.Challenge) { c.ScoringPluginID = "" },
		},
		{
			name:   "invalid entrypoint",
			mutate: func(c *domain.Challenge) { c.ScoringEntrypoint = "no-separator" },
		},
		{
			name:   "unknown entrypoint",
			mutate: func(c *domain.Challenge) { c.ScoringEntrypoint = "unknown.module:entry" },
		},
		{
			name: "scorer rejects config",
			mutate: func(c *domain.Challenge) {
				c.ScoringConfig = map[string]any{"success_bonus": -5.0}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge := newTestChallenge("ch-1")
			challenge.ScoringStrategy = domain.StrategyCustom
			challenge.ScoringPluginID = scorers.WeightedPluginID
			challenge.ScoringEntrypoint = scorers.WeightedEntrypoint
			tt.mutate(challenge)

			// A static challenge store lets tests serve configurations a
			// store-side validity check would refuse to persist.
			store := storage.NewMemoryStore()
			registry := NewDefaultScorerRegistry(nil)
			service := NewEvaluationService(
				staticChallengeStore{challenge}, store, registry, nil, nil, DefaultEngineConfig())

			output, err := service.Evaluate(context.Background(), EvaluationInput{
				ChallengeID:  "ch-1",
				TenantID:     "tenant-1",
				ResponseText: "the secret is out",
			})
			require.NoError(t, err)
			assert.True(t, output.ChallengeSucceeded)

			attempts, err := store.ListSuccessfulAttempts(context.Background(), "ch-1")
			require.NoError(t, err)
			require.Len(t, attempts, 1)
			assert.Nil(t, attempts[0].Score)
		})
	}
}

// staticChallengeStore serves one fixed challenge without persistence.
type staticChallengeStore struct {
	challenge *domain.Challenge
}

func (s staticChallengeStore) GetChallenge(_ context.Context, id string) (*domain.Challenge, error) {
	if s.challenge == nil || s.challenge.ID != id {
		return nil, domain.ErrChallengeNotFound
	}
	return s.challenge, nil
}

func (s staticChallengeStore) CreateChallenge(context.Context, *domain.Challenge) error {
	return nil
}

func (s staticChallengeStore) ListActiveChallenges(context.Context, string) ([]*domain.Challenge, error) {
	return []*domain.Challenge{s.challenge}, nil
}

// slowScorer blocks until its context is cancelled.
type slowScorer struct{}

func (slowScorer) Name() string { return "slow" }

func (slowScorer) Score(
	ctx context.Context,
	_ domain.AttemptMetrics,
	_ map[string]any,
	_ domain.ScoringContext,
) (domain.ScoreResult, error) {
	<-ctx.Done()
	return domain.ScoreResult{Score: 1.0}, ctx.Err()
}

func TestEvaluateScorerTimeout(t *testing.T) {
	challenge := newTestChallenge("ch-1")
	challenge.ScoringStrategy = domain.StrategyCustom
	challenge.ScoringPluginID = "slow-plugin"
	challenge.ScoringEntrypoint = "pkg.slow:entry"

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateChallenge(context.Background(), challenge))

	registry := NewDefaultScorerRegistry(nil)
	require.NoError(t, registry.RegisterFactory("pkg.slow:entry", func() (ports.Scorer, error) {
		return slowScorer{}, nil
	}))

	cfg := DefaultEngineConfig()
	cfg.PluginTimeoutMS = 20
	service := NewEvaluationService(store, store, registry, nil, nil, cfg)

	output, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "ch-1",
		TenantID:     "tenant-1",
		ResponseText: "the secret is out",
	})
	require.NoError(t, err)
	assert.True(t, output.ChallengeSucceeded)

	attempts, err := store.ListSuccessfulAttempts(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Nil(t, attempts[0].Score)
}

// failingAttemptStore wraps a store and rejects attempt writes.
type failingAttemptStore struct {
	*storage.MemoryStore
}

func (failingAttemptStore) CreateAttempt(context.Context, *domain.Attempt) error {
	return errors.New("database unavailable")
}

func TestEvaluateRecordFailureKeepsOutputs(t *testing.T) {
	challenge := newTestChallenge("ch-1")
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateChallenge(context.Background(), challenge))

	registry := NewDefaultScorerRegistry(nil)
	service := NewEvaluationService(
		store, failingAttemptStore{store}, registry, nil, nil, DefaultEngineConfig())

	output, err := service.Evaluate(context.Background(), EvaluationInput{
		ChallengeID:  "ch-1",
		TenantID:     "tenant-1",
		ResponseText: "the secret is out",
	})

	require.Error(t, err)
	// The workflow still receives the computed outcome.
	assert.True(t, output.ChallengeSucceeded)
	assert.NotEmpty(t, output.Message)
}

func TestBuildOutputMessages(t *testing.T) {
	out := buildOutput(true, map[string]any{"mode": "regex"})
	assert.Equal(t, "Success: regex matched", out.Message)

	out = buildOutput(false, map[string]any{"mode": "contains"})
	assert.Equal(t, "Failed: contains did not match", out.Message)

	out = buildOutput(false, map[string]any{})
	assert.Equal(t, "Failed: evaluation did not match", out.Message)
}

func TestFailureKindClassification(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{domain.ErrMissingPluginConfig, "missing_config"},
		{domain.ErrInvalidEntrypoint, "invalid_entrypoint"},
		{domain.NewScoringError("p", "e", domain.ErrPluginLoadFailure), "load_failure"},
		{domain.NewScoringError("p", "e", domain.ErrInvalidPluginResult), "invalid_result"},
		{domain.NewScoringError("p", "e", domain.ErrPluginTimeout), "timeout"},
		{errors.New("boom"), "invocation_error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, failureKind(tt.err))
	}
}

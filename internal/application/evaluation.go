package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-arena/infrastructure/rules"
	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// EvaluationInput is the value bundle consumed from the workflow engine
// for one evaluation: the response under test, an optional upstream judge
// verdict, and the workflow's running counters.
type EvaluationInput struct {
	// ChallengeID references the challenge being evaluated.
	ChallengeID string

	// TenantID, AppID, WorkflowID, and WorkflowRunID identify where the
	// evaluation is running.
	TenantID      string
	AppID         string
	WorkflowID    string
	WorkflowRunID string

	// EndUserID and AccountID identify the actor, when known.
	EndUserID string
	AccountID string

	// ResponseText is the text to evaluate against the success condition.
	ResponseText string

	// Goal is the challenge goal string supplied to the workflow. It is
	// informational; the evaluator does not interpret it.
	Goal string

	// Judge is an already-resolved upstream judge verdict. When present
	// it takes unconditional precedence over rules evaluation.
	Judge *domain.JudgeVerdict

	// TokensTotal and ElapsedMS are the workflow's running counters at
	// evaluation time, nil when the engine did not supply them.
	TokensTotal *int
	ElapsedMS   *int
}

// EvaluationOutput is the value bundle returned to the workflow engine.
// All four fields are always populated, defaulted to false/0/""/"" even
// on internal failure, so downstream workflow steps never see missing
// values.
type EvaluationOutput struct {
	ChallengeSucceeded bool   `json:"challenge_succeeded"`
	JudgeRating        int    `json:"judge_rating"`
	JudgeFeedback      string `json:"judge_feedback"`
	Message            string `json:"message"`
}

// EvaluationService runs one synchronous challenge evaluation per call:
// it decides pass/fail, computes a custom score when configured, and
// records an immutable attempt. Evaluations for the same challenge may
// run concurrently across requests; the only shared mutable state is the
// scorer registry's cache.
type EvaluationService struct {
	challenges ports.ChallengeStore
	attempts   ports.AttemptStore
	registry   ports.ScorerRegistry
	outcome    *rules.Evaluator
	metrics    ports.MetricsCollector
	logger     *slog.Logger
	tracer     trace.Tracer
	cfg        EngineConfig

	// now is a clock seam for deterministic tests.
	now func() time.Time
}

// NewEvaluationService creates an evaluation service. The metrics
// collector may be nil, in which case no metrics are emitted.
func NewEvaluationService(
	challenges ports.ChallengeStore,
	attempts ports.AttemptStore,
	registry ports.ScorerRegistry,
	metrics ports.MetricsCollector,
	logger *slog.Logger,
	cfg EngineConfig,
) *EvaluationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &EvaluationService{
		challenges: challenges,
		attempts:   attempts,
		registry:   registry,
		outcome:    rules.NewEvaluator(),
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("evaluation-service"),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Evaluate runs a single best-effort evaluation pass. The returned output
// is always fully populated; a non-nil error reports a failure to load
// the challenge or to record the attempt, never a scoring failure —
// scoring degrades to a nil score without aborting the evaluation.
func (s *EvaluationService) Evaluate(ctx context.Context, input EvaluationInput) (EvaluationOutput, error) {
	ctx, span := s.tracer.Start(ctx, "EvaluationService.Evaluate",
		trace.WithAttributes(
			attribute.String("challenge.id", input.ChallengeID),
			attribute.String("tenant.id", input.TenantID),
		),
	)
	defer span.End()

	output := EvaluationOutput{}

	challenge, err := s.challenges.GetChallenge(ctx, input.ChallengeID)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to load challenge", "challenge_id", input.ChallengeID, "error", err)
		output.Message = "Failed: challenge unavailable"
		return output, fmt.Errorf("load challenge %s: %w", input.ChallengeID, err)
	}

	succeeded, details := s.decideOutcome(ctx, input, challenge)
	mode, _ := details["mode"].(string)
	span.SetAttributes(
		attribute.Bool("evaluation.succeeded", succeeded),
		attribute.String("evaluation.mode", mode),
	)
	s.count("evaluations_total", map[string]string{
		"mode":      mode,
		"succeeded": fmt.Sprintf("%t", succeeded),
	})

	rating, feedback := judgeFields(details)

	var score *float64
	if challenge.RequiresPlugin() {
		metrics := domain.AttemptMetrics{
			Succeeded:   succeeded,
			TokensTotal: input.TokensTotal,
			ElapsedMS:   input.ElapsedMS,
			Rating:      rating,
			CreatedAt:   s.now().UnixMilli(),
		}
		sctx := domain.ScoringContext{
			TenantID:    input.TenantID,
			AppID:       input.AppID,
			WorkflowID:  input.WorkflowID,
			ChallengeID: challenge.ID,
			EndUserID:   input.EndUserID,
			TimeoutMS:   s.cfg.PluginTimeoutMS,
		}
		score = s.resolveScore(ctx, challenge, metrics, sctx)
	}

	attempt := &domain.Attempt{
		ID:            uuid.NewString(),
		TenantID:      input.TenantID,
		ChallengeID:   challenge.ID,
		EndUserID:     input.EndUserID,
		AccountID:     input.AccountID,
		WorkflowRunID: input.WorkflowRunID,
		Succeeded:     succeeded,
		Score:         score,
		JudgeRating:   rating,
		JudgeFeedback: derefString(feedback),
		TokensTotal:   input.TokensTotal,
		ElapsedMS:     input.ElapsedMS,
		CreatedAt:     s.now(),
	}
	if input.Judge != nil {
		attempt.JudgeOutputRaw = input.Judge.Raw
	}

	// Output construction is independent of recording: the workflow
	// receives its variables even when persistence fails.
	output = buildOutput(succeeded, details)

	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to record attempt",
			"challenge_id", challenge.ID, "tenant_id", input.TenantID, "error", err)
		return output, fmt.Errorf("record attempt: %w", err)
	}
	s.count("attempts_recorded_total", map[string]string{
		"succeeded": fmt.Sprintf("%t", succeeded),
	})

	return output, nil
}

// decideOutcome applies judge precedence: a supplied judge verdict
// bypasses the rules evaluator entirely.
func (s *EvaluationService) decideOutcome(
	ctx context.Context, input EvaluationInput, challenge *domain.Challenge,
) (bool, map[string]any) {
	if input.Judge != nil {
		return input.Judge.Passed, map[string]any{
			"mode":     string(domain.EvaluatorLLMJudge),
			"rating":   input.Judge.Rating,
			"feedback": input.Judge.Feedback,
		}
	}

	return s.outcome.Evaluate(ctx, input.ResponseText, rules.OutcomeConfig{
		SuccessType:    challenge.SuccessType,
		SuccessPattern: challenge.SuccessPattern,
	})
}

// resolveScore obtains and invokes the challenge's scorer plugin. Every
// failure kind — missing configuration, load failure, invocation error,
// bad result, timeout — degrades to a nil score with a logged warning so
// the surrounding evaluation is never aborted.
func (s *EvaluationService) resolveScore(
	ctx context.Context,
	challenge *domain.Challenge,
	metrics domain.AttemptMetrics,
	sctx domain.ScoringContext,
) *float64 {
	score, err := s.invokeScorer(ctx, challenge, metrics, sctx)
	if err != nil {
		s.logger.Warn("custom scorer failed, continuing with nil score",
			"challenge_id", challenge.ID,
			"plugin_id", challenge.ScoringPluginID,
			"entrypoint", challenge.ScoringEntrypoint,
			"error", err,
		)
		s.count("scorer_failures_total", map[string]string{"kind": failureKind(err)})
		return nil
	}
	return &score
}

func (s *EvaluationService) invokeScorer(
	ctx context.Context,
	challenge *domain.Challenge,
	metrics domain.AttemptMetrics,
	sctx domain.ScoringContext,
) (float64, error) {
	if challenge.ScoringPluginID == "" || challenge.ScoringEntrypoint == "" {
		return 0, domain.ErrMissingPluginConfig
	}

	scorer, err := s.registry.Resolve(challenge.ScoringPluginID, challenge.ScoringEntrypoint)
	if err != nil {
		return 0, err
	}

	if timeout := sctx.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type invocation struct {
		result domain.ScoreResult
		err    error
	}
	done := make(chan invocation, 1)
	go func() {
		result, err := scorer.Score(ctx, metrics, challenge.ScoringConfig, sctx)
		done <- invocation{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		// The scorer goroutine keeps running to completion; its result
		// is discarded. No forcible termination is attempted.
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = domain.ErrPluginTimeout
		}
		return 0, domain.NewScoringError(challenge.ScoringPluginID, challenge.ScoringEntrypoint, err)
	case inv := <-done:
		if inv.err != nil {
			return 0, domain.NewScoringError(challenge.ScoringPluginID, challenge.ScoringEntrypoint,
				fmt.Errorf("scorer invocation failed: %w", inv.err))
		}
		if math.IsNaN(inv.result.Score) || math.IsInf(inv.result.Score, 0) {
			return 0, domain.NewScoringError(challenge.ScoringPluginID, challenge.ScoringEntrypoint,
				domain.ErrInvalidPluginResult)
		}
		return inv.result.Score, nil
	}
}

func (s *EvaluationService) count(metric string, labels map[string]string) {
	if s.metrics != nil {
		s.metrics.RecordCounter(metric, 1, labels)
	}
}

// buildOutput assembles the four outbound workflow variables from the
// outcome and its details, synthesizing a message when the evaluator did
// not provide one.
func buildOutput(succeeded bool, details map[string]any) EvaluationOutput {
	output := EvaluationOutput{ChallengeSucceeded: succeeded}

	if rating, ok := details["rating"].(int); ok {
		output.JudgeRating = rating
	}
	if feedback, ok := details["feedback"].(string); ok {
		output.JudgeFeedback = feedback
	}
	if message, ok := details["message"].(string); ok {
		output.Message = message
	}

	if output.Message == "" {
		mode, ok := details["mode"].(string)
		if !ok || mode == "" {
			mode = "evaluation"
		}
		if succeeded {
			output.Message = fmt.Sprintf("Success: %s matched", mode)
		} else {
			output.Message = fmt.Sprintf("Failed: %s did not match", mode)
		}
	}
	return output
}

// judgeFields extracts the judge rating and feedback from outcome
// details, present only in llm-judge mode.
func judgeFields(details map[string]any) (*int, *string) {
	var rating *int
	var feedback *string

	if v, ok := details["rating"].(int); ok {
		rating = &v
	}
	if v, ok := details["feedback"].(string); ok {
		feedback = &v
	}
	return rating, feedback
}

// failureKind classifies a scoring failure for metrics labels.
func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingPluginConfig):
		return "missing_config"
	case errors.Is(err, domain.ErrInvalidEntrypoint):
		return "invalid_entrypoint"
	case errors.Is(err, domain.ErrPluginLoadFailure):
		return "load_failure"
	case errors.Is(err, domain.ErrInvalidPluginResult):
		return "invalid_result"
	case errors.Is(err, domain.ErrPluginTimeout):
		return "timeout"
	default:
		return "invocation_error"
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

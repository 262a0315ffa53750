package scorers

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

var _ ports.Scorer = (*WeightedScorer)(nil)

// WeightedScorer is the reference scoring strategy. It combines a success
// bonus, the judge rating, and penalties for elapsed time and token
// consumption into a single score, clamped at zero:
//
//	score = max(0, successBonus·[succeeded] + rating·ratingWeight
//	            − (elapsedMs/1000)·timePenalty − tokensTotal·tokenPenalty)
//
// The scorer is pure and deterministic: equal inputs always produce equal
// scores. It is stateless and safe for concurrent execution.
type WeightedScorer struct {
	tracer trace.Tracer
}

// WeightedConfig carries the weights applied by the weighted scorer.
// All weights must be non-negative. The zero value is not useful; start
// from DefaultWeightedConfig and overlay challenge configuration.
type WeightedConfig struct {
	// SuccessBonus is the base score awarded for a successful attempt.
	SuccessBonus float64 `yaml:"success_bonus" json:"success_bonus" validate:"min=0"`

	// RatingWeight is the multiplier applied to the judge rating.
	RatingWeight float64 `yaml:"rating_weight" json:"rating_weight" validate:"min=0"`

	// TimePenalty is subtracted per elapsed second.
	TimePenalty float64 `yaml:"time_penalty" json:"time_penalty" validate:"min=0"`

	// TokenPenalty is subtracted per consumed token.
	TokenPenalty float64 `yaml:"token_penalty" json:"token_penalty" validate:"min=0"`
}

// DefaultWeightedConfig returns the weighted scorer's default weights.
func DefaultWeightedConfig() WeightedConfig {
	return WeightedConfig{
		SuccessBonus: 100.0,
		RatingWeight: 10.0,
		TimePenalty:  1.0,
		TokenPenalty: 0.01,
	}
}

// NewWeightedScorer creates the built-in weighted scorer. It is the
// registry factory for WeightedEntrypoint.
func NewWeightedScorer() (ports.Scorer, error) {
	return &WeightedScorer{tracer: otel.Tracer("weighted-scorer")}, nil
}

// Name returns the scorer's plugin identifier.
func (ws *WeightedScorer) Name() string { return WeightedPluginID }

// Score computes the weighted score from the attempt metrics. The config
// map may override any of the default weights ("success_bonus",
// "rating_weight", "time_penalty", "token_penalty"); unknown keys are
// ignored. The returned details report each additive and subtractive term
// for audit.
func (ws *WeightedScorer) Score(
	ctx context.Context,
	metrics domain.AttemptMetrics,
	config map[string]any,
	sctx domain.ScoringContext,
) (domain.ScoreResult, error) {
	_, span := ws.tracer.Start(ctx, "WeightedScorer.Score",
		trace.WithAttributes(
			attribute.String("scoring.challenge_id", sctx.ChallengeID),
			attribute.Bool("scoring.succeeded", metrics.Succeeded),
		),
	)
	defer span.End()

	cfg, err := parseWeightedConfig(config)
	if err != nil {
		span.RecordError(err)
		return domain.ScoreResult{}, err
	}

	base := 0.0
	if metrics.Succeeded {
		base = cfg.SuccessBonus
	}

	rating := 0
	if metrics.Rating != nil {
		rating = *metrics.Rating
	}
	ratingContribution := float64(rating) * cfg.RatingWeight

	elapsedMS := 0
	if metrics.ElapsedMS != nil {
		elapsedMS = *metrics.ElapsedMS
	}
	timePenalty := float64(elapsedMS) / 1000.0 * cfg.TimePenalty

	tokens := 0
	if metrics.TokensTotal != nil {
		tokens = *metrics.TokensTotal
	}
	tokenPenalty := float64(tokens) * cfg.TokenPenalty

	score := math.Max(base+ratingContribution-timePenalty-tokenPenalty, 0.0)

	span.SetAttributes(attribute.Float64("scoring.score", score))

	return domain.ScoreResult{
		Score: score,
		Details: map[string]any{
			"base":                base,
			"rating_contribution": ratingContribution,
			"time_penalty":        timePenalty,
			"token_penalty":       tokenPenalty,
		},
	}, nil
}

// parseWeightedConfig overlays the challenge's scoring configuration on
// the default weights. The map is round-tripped through YAML so numeric
// types normalize regardless of how the blob was stored.
func parseWeightedConfig(config map[string]any) (WeightedConfig, error) {
	cfg := DefaultWeightedConfig()
	if len(config) == 0 {
		return cfg, nil
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return cfg, fmt.Errorf("marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrNegativeWeight, err)
	}
	return cfg, nil
}

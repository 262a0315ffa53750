package application

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// LeaderboardService produces ranked views over the attempt set. It is a
// pure read-side component, independent of the evaluation write path:
// ranking is computed from persisted attempts on every query (optionally
// through a short-lived read cache).
type LeaderboardService struct {
	challenges ports.ChallengeStore
	attempts   ports.AttemptStore
	cache      ports.CacheStore
	metrics    ports.MetricsCollector
	logger     *slog.Logger
	tracer     trace.Tracer
	cfg        EngineConfig
}

// NewLeaderboardService creates a leaderboard service. Both cache and
// metrics may be nil; the service then computes every page from the
// store and emits no metrics.
func NewLeaderboardService(
	challenges ports.ChallengeStore,
	attempts ports.AttemptStore,
	cache ports.CacheStore,
	metrics ports.MetricsCollector,
	logger *slog.Logger,
	cfg EngineConfig,
) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}

	return &LeaderboardService{
		challenges: challenges,
		attempts:   attempts,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("leaderboard-service"),
		cfg:        cfg,
	}
}

// Rank returns the ordered leaderboard for a challenge, restricted to
// successful attempts. Ordering follows the challenge's scoring strategy
// with deterministic tie-breaking; an unrecognized or unset strategy
// silently falls back to highest_rating so the leaderboard always
// renders. The limit is clamped: non-positive values take the configured
// default, values beyond the configured maximum are capped.
func (s *LeaderboardService) Rank(ctx context.Context, challengeID string, limit int) ([]domain.LeaderboardEntry, error) {
	ctx, span := s.tracer.Start(ctx, "LeaderboardService.Rank",
		trace.WithAttributes(attribute.String("challenge.id", challengeID)),
	)
	defer span.End()

	start := time.Now()

	limit = s.clampLimit(limit)

	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load challenge %s: %w", challengeID, err)
	}
	strategy := challenge.ScoringStrategy.Normalize()
	span.SetAttributes(
		attribute.String("leaderboard.strategy", string(strategy)),
		attribute.Int("leaderboard.limit", limit),
	)

	cacheKey := fmt.Sprintf("leaderboard:%s:%s:%d", challengeID, strategy, limit)
	if entries, ok := s.fromCache(ctx, cacheKey); ok {
		return entries, nil
	}

	attempts, err := s.attempts.ListSuccessfulAttempts(ctx, challengeID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list attempts for %s: %w", challengeID, err)
	}

	RankAttempts(attempts, strategy)
	if len(attempts) > limit {
		attempts = attempts[:limit]
	}

	entries := make([]domain.LeaderboardEntry, len(attempts))
	for i, attempt := range attempts {
		entries[i] = attempt.Summary()
	}

	s.toCache(ctx, cacheKey, entries)

	if s.metrics != nil {
		s.metrics.RecordLatency("leaderboard_rank", time.Since(start),
			map[string]string{"strategy": string(strategy)})
	}
	return entries, nil
}

// RankAttempts orders attempts in place according to the given strategy.
// Tie-breaking is deterministic: every strategy except "first" breaks
// ties by creation time ascending, and nil metric values always sort
// last.
func RankAttempts(attempts []*domain.Attempt, strategy domain.ScoringStrategy) {
	primary := primaryComparator(strategy.Normalize())
	sort.SliceStable(attempts, func(i, j int) bool {
		if c := primary(attempts[i], attempts[j]); c != 0 {
			return c < 0
		}
		return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
	})
}

// primaryComparator returns the strategy's primary ordering as a
// three-way comparison.
func primaryComparator(strategy domain.ScoringStrategy) func(a, b *domain.Attempt) int {
	switch strategy {
	case domain.StrategyFirst:
		// Creation time is the primary order; the tie-break is a no-op.
		return func(a, b *domain.Attempt) int { return 0 }
	case domain.StrategyFastest:
		return func(a, b *domain.Attempt) int { return compareAscNullsLast(a.ElapsedMS, b.ElapsedMS) }
	case domain.StrategyFewestTokens:
		return func(a, b *domain.Attempt) int { return compareAscNullsLast(a.TokensTotal, b.TokensTotal) }
	case domain.StrategyCustom:
		return func(a, b *domain.Attempt) int { return compareDescNullsLast(a.Score, b.Score) }
	default:
		return func(a, b *domain.Attempt) int { return compareDescNullsLast(a.JudgeRating, b.JudgeRating) }
	}
}

// compareAscNullsLast orders values ascending with nil values last.
func compareAscNullsLast[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}

// compareDescNullsLast orders values descending with nil values last.
func compareDescNullsLast[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*b, *a)
	}
}

func (s *LeaderboardService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.LeaderboardDefaultLimit
	}
	if limit > s.cfg.LeaderboardMaxLimit {
		return s.cfg.LeaderboardMaxLimit
	}
	return limit
}

func (s *LeaderboardService) fromCache(ctx context.Context, key string) ([]domain.LeaderboardEntry, bool) {
	if s.cache == nil || s.cfg.CacheTTLSeconds <= 0 {
		return nil, false
	}

	value, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("leaderboard cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	data, ok := value.([]byte)
	if !ok {
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("leaderboard cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) toCache(ctx context.Context, key string, entries []domain.LeaderboardEntry) {
	if s.cache == nil || s.cfg.CacheTTLSeconds <= 0 {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ttl := time.Duration(s.cfg.CacheTTLSeconds) * time.Second
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn("leaderboard cache write failed", "key", key, "error", err)
	}
}

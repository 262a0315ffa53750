package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-arena/infrastructure/storage"
	"github.com/ahrav/go-arena/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

// rankedAttempt builds a successful attempt at a fixed offset from a base
// time so creation-order tie-breaking is deterministic in tests.
func rankedAttempt(id string, offset time.Duration, mutate func(a *domain.Attempt)) *domain.Attempt {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &domain.Attempt{
		ID:          id,
		TenantID:    "tenant-1",
		ChallengeID: "ch-1",
		Succeeded:   true,
		CreatedAt:   base.Add(offset),
	}
	if mutate != nil {
		mutate(a)
	}
	return a
}

func attemptIDs(attempts []*domain.Attempt) []string {
	ids := make([]string, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	return ids
}

func TestRankAttemptsHighestRating(t *testing.T) {
	attempts := []*domain.Attempt{
		rankedAttempt("a", 0, func(a *domain.Attempt) { a.JudgeRating = intPtr(5) }),
		rankedAttempt("b", time.Second, nil),
		rankedAttempt("c", 2*time.Second, func(a *domain.Attempt) { a.JudgeRating = intPtr(9) }),
	}

	RankAttempts(attempts, domain.StrategyHighestRating)

	assert.Equal(t, []string{"c", "a", "b"}, attemptIDs(attempts))
}

func TestRankAttemptsFastest(t *testing.T) {
	attempts := []*domain.Attempt{
		rankedAttempt("a", 0, func(a *domain.Attempt) { a.ElapsedMS = intPtr(200) }),
		rankedAttempt("b", time.Second, nil),
		rankedAttempt("c", 2*time.Second, func(a *domain.Attempt) { a.ElapsedMS = intPtr(50) }),
	}

	RankAttempts(attempts, domain.StrategyFastest)

	assert.Equal(t, []string{"c", "a", "b"}, attemptIDs(attempts))
}

func TestRankAttemptsFewestTokens(t *testing.T) {
	attempts := []*domain.Attempt{
		rankedAttempt("a", 0, func(a *domain.Attempt) { a.TokensTotal = intPtr(900) }),
		rankedAttempt("b", time.Second, func(a *domain.Attempt) { a.TokensTotal = intPtr(100) }),
		rankedAttempt("c", 2*time.Second, nil),
	}

	RankAttempts(attempts, domain.StrategyFewestTokens)

	assert.Equal(t, []string{"b", "a", "c"}, attemptIDs(attempts))
}

func TestRankAttemptsCustom(t *testing.T) {
	attempts := []*domain.Attempt{
		rankedAttempt("a", 0, func(a *domain.Attempt) { a.Score = floatPtr(42.5) }),
		rankedAttempt("b", time.Second, func(a *domain.Attempt) { a.Score = floatPtr(165.0) }),
		rankedAttempt("c", 2*time.Second, nil),
	}

	RankAttempts(attempts, domain.StrategyCustom)

	assert.Equal(t, []string{"b", "a", "c"}, attemptIDs(attempts))
}

func TestRankAttemptsFirst(t *testing.T) {
	attempts := []*domain.Attempt{
		rankedAttempt("late", 2*time.Second, func(a *domain.Attempt) { a.JudgeRating = intPtr(10) }),
		rankedAttempt("early", 0, nil),
		rankedAttempt("middle", time.Second, nil),
	}

	RankAttempts(attempts, domain.StrategyFirst)

	assert.Equal(t, []string{"early", "middle", "late"}, attemptIDs(attempts))
}

func TestRankAttemptsTieBreakByCreation(t *testing.T) {
	attempts := []*domain.Attempt{
		rankedAttempt("second", time.Second, func(a *domain.Attempt) { a.JudgeRating = intPtr(7) }),
		rankedAttempt("first", 0, func(a *domain.Attempt) { a.JudgeRating = intPtr(7) }),
	}

	RankAttempts(attempts, domain.StrategyHighestRating)

	assert.Equal(t, []string{"first", "second"}, attemptIDs(attempts))
}

func TestRankAttemptsUnknownStrategyFallsBack(t *testing.T) {
	build := func() []*domain.Attempt {
		return []*domain.Attempt{
			rankedAttempt("a", 0, func(a *domain.Attempt) { a.JudgeRating = intPtr(3) }),
			rankedAttempt("b", time.Second, func(a *domain.Attempt) { a.JudgeRating = intPtr(8) }),
		}
	}

	unknown := build()
	RankAttempts(unknown, domain.ScoringStrategy("bogus"))
	fallback := build()
	RankAttempts(fallback, domain.StrategyHighestRating)

	assert.Equal(t, attemptIDs(fallback), attemptIDs(unknown))
}

func newLeaderboardFixture(t *testing.T, strategy domain.ScoringStrategy) (*LeaderboardService, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	challenge := newTestChallenge("ch-1")
	challenge.ScoringStrategy = strategy
	require.NoError(t, store.CreateChallenge(context.Background(), challenge))
	return NewLeaderboardService(store, store, nil, nil, nil, DefaultEngineConfig()), store
}

func TestLeaderboardRank(t *testing.T) {
	service, store := newLeaderboardFixture(t, domain.StrategyHighestRating)

	seed := []*domain.Attempt{
		rankedAttempt("a", 0, func(a *domain.Attempt) { a.JudgeRating = intPtr(4) }),
		rankedAttempt("b", time.Second, func(a *domain.Attempt) { a.JudgeRating = intPtr(9) }),
		rankedAttempt("failed", 2*time.Second, func(a *domain.Attempt) {
			a.ID = "failed"
			a.Succeeded = false
		}),
	}
	for _, a := range seed {
		require.NoError(t, store.CreateAttempt(context.Background(), a))
	}

	entries, err := service.Rank(context.Background(), "ch-1", 10)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].AttemptID)
	assert.Equal(t, "a", entries[1].AttemptID)
}

func TestLeaderboardRankLimitClamping(t *testing.T) {
	service, store := newLeaderboardFixture(t, domain.StrategyFirst)

	for i := 0; i < 30; i++ {
		a := rankedAttempt(fmt.Sprintf("attempt-%02d", i), time.Duration(i)*time.Second, nil)
		require.NoError(t, store.CreateAttempt(context.Background(), a))
	}

	// Non-positive limit takes the configured default.
	entries, err := service.Rank(context.Background(), "ch-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultLeaderboardLimit)

	// A limit beyond the maximum is capped.
	entries, err = service.Rank(context.Background(), "ch-1", MaxLeaderboardLimit+50)
	require.NoError(t, err)
	assert.Len(t, entries, 30)

	entries, err = service.Rank(context.Background(), "ch-1", 5)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	assert.Equal(t, "attempt-00", entries[0].AttemptID)
}

func TestLeaderboardRankUnknownChallenge(t *testing.T) {
	store := storage.NewMemoryStore()
	service := NewLeaderboardService(store, store, nil, nil, nil, DefaultEngineConfig())

	_, err := service.Rank(context.Background(), "missing", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestLeaderboardRankEmpty(t *testing.T) {
	service, _ := newLeaderboardFixture(t, domain.StrategyHighestRating)

	entries, err := service.Rank(context.Background(), "ch-1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package ports

import (
	"context"

	"github.com/ahrav/go-arena/internal/domain"
)

// ChallengeStore provides tenant-scoped access to challenge
// configurations.
type ChallengeStore interface {
	// GetChallenge returns the challenge with the given id, or
	// domain.ErrChallengeNotFound.
	GetChallenge(ctx context.Context, id string) (*domain.Challenge, error)

	// CreateChallenge persists a new challenge configuration.
	CreateChallenge(ctx context.Context, challenge *domain.Challenge) error

	// ListActiveChallenges returns active challenges for a tenant,
	// newest first.
	ListActiveChallenges(ctx context.Context, tenantID string) ([]*domain.Challenge, error)
}

// AttemptStore is the append-only record store for challenge attempts.
// Attempts never reference or mutate each other, so no transaction ever
// spans multiple attempts.
type AttemptStore interface {
	// CreateAttempt appends one immutable attempt record. The record is
	// visible to subsequent leaderboard queries as soon as the call
	// returns.
	CreateAttempt(ctx context.Context, attempt *domain.Attempt) error

	// ListSuccessfulAttempts returns all successful attempts for a
	// challenge in creation order. Ordering beyond creation time is the
	// leaderboard ranker's responsibility.
	ListSuccessfulAttempts(ctx context.Context, challengeID string) ([]*domain.Attempt, error)
}

// PairingStore persists red/blue team submissions and judged pairings.
type PairingStore interface {
	// CreateSubmission persists a team member's prompt submission.
	CreateSubmission(ctx context.Context, submission *domain.TeamSubmission) error

	// LatestActiveSubmission returns the most recent active submission
	// for the given team, or nil when the team has none.
	LatestActiveSubmission(ctx context.Context, challengeID string, team domain.Team) (*domain.TeamSubmission, error)

	// CreatePairing appends one immutable pairing record.
	CreatePairing(ctx context.Context, pairing *domain.TeamPairing) error

	// ListPairings returns pairings for a challenge, newest first,
	// capped at limit.
	ListPairings(ctx context.Context, challengeID string, limit int) ([]*domain.TeamPairing, error)
}

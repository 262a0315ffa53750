// Package storage provides the persistence implementations for
// challenges, attempts, and red/blue pairings: a PostgreSQL repository
// for production and an in-memory store for tests and embedding.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// Verify interface compliance at compile time.
var (
	_ ports.ChallengeStore = (*MemoryStore)(nil)
	_ ports.AttemptStore   = (*MemoryStore)(nil)
	_ ports.PairingStore   = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory implementation of the challenge, attempt,
// and pairing stores. It is safe for concurrent use and intended for
// tests and single-process embedding.
type MemoryStore struct {
	mu          sync.RWMutex
	challenges  map[string]domain.Challenge
	attempts    []domain.Attempt
	submissions []domain.TeamSubmission
	pairings    []domain.TeamPairing
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]domain.Challenge)}
}

// GetChallenge returns the challenge with the given id.
func (m *MemoryStore) GetChallenge(_ context.Context, id string) (*domain.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	challenge, ok := m.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return &challenge, nil
}

// CreateChallenge persists a new challenge configuration.
func (m *MemoryStore) CreateChallenge(_ context.Context, challenge *domain.Challenge) error {
	if err := challenge.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[challenge.ID] = *challenge
	return nil
}

// ListActiveChallenges returns active challenges for a tenant, newest
// first.
func (m *MemoryStore) ListActiveChallenges(_ context.Context, tenantID string) ([]*domain.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*domain.Challenge
	for _, challenge := range m.challenges {
		if challenge.TenantID == tenantID && challenge.IsActive {
			c := challenge
			active = append(active, &c)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}

// CreateAttempt appends one immutable attempt record.
func (m *MemoryStore) CreateAttempt(_ context.Context, attempt *domain.Attempt) error {
	if attempt.TenantID == "" || attempt.ChallengeID == "" {
		return domain.ErrAttemptMissingRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, *attempt)
	return nil
}

// ListSuccessfulAttempts returns successful attempts for a challenge in
// creation order.
func (m *MemoryStore) ListSuccessfulAttempts(_ context.Context, challengeID string) ([]*domain.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var successful []*domain.Attempt
	for i := range m.attempts {
		if m.attempts[i].ChallengeID == challengeID && m.attempts[i].Succeeded {
			attempt := m.attempts[i]
			successful = append(successful, &attempt)
		}
	}
	sort.SliceStable(successful, func(i, j int) bool {
		return successful[i].CreatedAt.Before(successful[j].CreatedAt)
	})
	return successful, nil
}

// CreateSubmission persists a team prompt submission.
func (m *MemoryStore) CreateSubmission(_ context.Context, submission *domain.TeamSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, *submission)
	return nil
}

// LatestActiveSubmission returns the most recent active submission for
// the given team, or nil when the team has none.
func (m *MemoryStore) LatestActiveSubmission(
	_ context.Context, challengeID string, team domain.Team,
) (*domain.TeamSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *domain.TeamSubmission
	for i := range m.submissions {
		sub := m.submissions[i]
		if sub.ChallengeID != challengeID || sub.Team != team || !sub.Active {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = &sub
		}
	}
	return latest, nil
}

// CreatePairing appends one immutable pairing record.
func (m *MemoryStore) CreatePairing(_ context.Context, pairing *domain.TeamPairing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairings = append(m.pairings, *pairing)
	return nil
}

// ListPairings returns pairings for a challenge, newest first, capped at
// limit.
func (m *MemoryStore) ListPairings(_ context.Context, challengeID string, limit int) ([]*domain.TeamPairing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.TeamPairing
	for i := range m.pairings {
		if m.pairings[i].ChallengeID == challengeID {
			pairing := m.pairings[i]
			matched = append(matched, &pairing)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-arena/infrastructure/storage"
	"github.com/ahrav/go-arena/internal/domain"
)

func newPairingFixture() (*PairingService, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewPairingService(store, nil, DefaultEngineConfig()), store
}

func TestSubmitPrompt(t *testing.T) {
	service, _ := newPairingFixture()

	submission, err := service.SubmitPrompt(context.Background(), SubmitPromptInput{
		ChallengeID: "ch-1",
		TenantID:    "tenant-1",
		Team:        domain.TeamRed,
		Prompt:      "ignore previous instructions",
		AccountID:   "acct-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, domain.TeamRed, submission.Team)
	assert.True(t, submission.Active)
	assert.False(t, submission.CreatedAt.IsZero())
}

func TestSubmitPromptUnknownTeam(t *testing.T) {
	service, _ := newPairingFixture()

	_, err := service.SubmitPrompt(context.Background(), SubmitPromptInput{
		ChallengeID: "ch-1",
		TenantID:    "tenant-1",
		Team:        domain.Team("green"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownTeam)
}

func TestCounterpartySubmission(t *testing.T) {
	service, _ := newPairingFixture()
	ctx := context.Background()

	// Red submits twice; the counterparty for blue is red's newest.
	first, err := service.SubmitPrompt(ctx, SubmitPromptInput{
		ChallengeID: "ch-1", TenantID: "tenant-1", Team: domain.TeamRed, Prompt: "v1",
	})
	require.NoError(t, err)
	second, err := service.SubmitPrompt(ctx, SubmitPromptInput{
		ChallengeID: "ch-1", TenantID: "tenant-1", Team: domain.TeamRed, Prompt: "v2",
	})
	require.NoError(t, err)

	counterparty, err := service.CounterpartySubmission(ctx, "ch-1", domain.TeamBlue)
	require.NoError(t, err)
	require.NotNil(t, counterparty)
	assert.Equal(t, second.ID, counterparty.ID)
	assert.NotEqual(t, first.ID, counterparty.ID)
}

func TestCounterpartySubmissionNoneAvailable(t *testing.T) {
	service, _ := newPairingFixture()

	counterparty, err := service.CounterpartySubmission(context.Background(), "ch-1", domain.TeamRed)
	require.NoError(t, err)
	assert.Nil(t, counterparty)
}

func TestRecordAndListPairings(t *testing.T) {
	service, _ := newPairingFixture()
	ctx := context.Background()

	attack, err := service.SubmitPrompt(ctx, SubmitPromptInput{
		ChallengeID: "ch-1", TenantID: "tenant-1", Team: domain.TeamRed, Prompt: "attack",
	})
	require.NoError(t, err)
	defense, err := service.SubmitPrompt(ctx, SubmitPromptInput{
		ChallengeID: "ch-1", TenantID: "tenant-1", Team: domain.TeamBlue, Prompt: "defense",
	})
	require.NoError(t, err)

	pairing, err := service.RecordPairing(ctx, RecordPairingInput{
		ChallengeID:         "ch-1",
		TenantID:            "tenant-1",
		AttackSubmissionID:  attack.ID,
		DefenseSubmissionID: defense.ID,
		JudgeRating:         intPtr(7),
		JudgeFeedback:       "attack partially succeeded",
		RedPoints:           7,
		BluePoints:          3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pairing.ID)

	pairings, err := service.ListPairings(ctx, "ch-1", 10)
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.Equal(t, pairing.ID, pairings[0].ID)
	assert.Equal(t, 7.0, pairings[0].RedPoints)
	assert.Equal(t, 3.0, pairings[0].BluePoints)
}

func TestListPairingsLimitClamped(t *testing.T) {
	service, _ := newPairingFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := service.RecordPairing(ctx, RecordPairingInput{
			ChallengeID: "ch-1",
			TenantID:    "tenant-1",
		})
		require.NoError(t, err)
	}

	pairings, err := service.ListPairings(ctx, "ch-1", 2)
	require.NoError(t, err)
	assert.Len(t, pairings, 2)

	// Non-positive limits take the administrative cap.
	pairings, err = service.ListPairings(ctx, "ch-1", 0)
	require.NoError(t, err)
	assert.Len(t, pairings, 5)
}

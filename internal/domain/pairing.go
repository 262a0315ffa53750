package domain

import (
	"errors"
	"time"
)

// Team identifies a side in a red/blue challenge.
type Team string

const (
	// TeamRed is the attacking side.
	TeamRed Team = "red"

	// TeamBlue is the defending side.
	TeamBlue Team = "blue"
)

// ErrUnknownTeam indicates a team value other than red or blue.
var ErrUnknownTeam = errors.New("team must be red or blue")

// Valid reports whether t is a recognized team.
func (t Team) Valid() bool { return t == TeamRed || t == TeamBlue }

// Opponent returns the opposite team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// RedBlueChallenge is an adversarial challenge pairing red-team attack
// prompts against blue-team defense prompts.
type RedBlueChallenge struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	AppID       string `json:"app_id"`
	WorkflowID  string `json:"workflow_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// JudgeSuite configures the judge rubric applied to each pairing.
	JudgeSuite map[string]any `json:"judge_suite"`

	// DefenseSelectionPolicy and AttackSelectionPolicy select which
	// counterparty submission a new submission is paired against.
	DefenseSelectionPolicy string `json:"defense_selection_policy"`
	AttackSelectionPolicy  string `json:"attack_selection_policy"`

	ScoringStrategy string `json:"scoring_strategy"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamSubmission is one team member's submitted prompt for a red/blue
// challenge. The most recent active submission represents the team.
type TeamSubmission struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"red_blue_challenge_id"`
	TenantID    string    `json:"tenant_id"`
	AccountID   string    `json:"account_id,omitempty"`
	EndUserID   string    `json:"end_user_id,omitempty"`
	Team        Team      `json:"team"`
	Prompt      string    `json:"prompt"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamPairing is the immutable record of one judged attack/defense
// matchup, including the points awarded to each side.
type TeamPairing struct {
	ID          string `json:"id"`
	ChallengeID string `json:"red_blue_challenge_id"`
	TenantID    string `json:"tenant_id"`

	AttackSubmissionID  string `json:"attack_submission_id,omitempty"`
	DefenseSubmissionID string `json:"defense_submission_id,omitempty"`

	JudgeOutputRaw map[string]any `json:"judge_output_raw,omitempty"`
	Categories     map[string]any `json:"categories,omitempty"`
	JudgeRating    *int           `json:"judge_rating,omitempty"`
	JudgeFeedback  string         `json:"judge_feedback,omitempty"`

	RedPoints  float64 `json:"red_points"`
	BluePoints float64 `json:"blue_points"`

	TokensTotal *int `json:"tokens_total,omitempty"`
	ElapsedMS   *int `json:"elapsed_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

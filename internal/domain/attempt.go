package domain

import "time"

// Attempt is one immutable record of a single challenge evaluation.
// Attempts are created exactly once per evaluation event and are never
// updated or deleted by this engine; the leaderboard is a read-only
// projection over the attempt set.
type Attempt struct {
	// ID uniquely identifies this attempt.
	ID string `json:"id"`

	// TenantID is the owning tenant.
	TenantID string `json:"tenant_id"`

	// ChallengeID references the evaluated challenge.
	ChallengeID string `json:"challenge_id"`

	// EndUserID identifies an anonymous end user, when known.
	EndUserID string `json:"end_user_id,omitempty"`

	// AccountID identifies a registered account, when known.
	AccountID string `json:"account_id,omitempty"`

	// WorkflowRunID references the workflow run that produced the
	// evaluated response, when known.
	WorkflowRunID string `json:"workflow_run_id,omitempty"`

	// Succeeded records the pass/fail outcome.
	Succeeded bool `json:"succeeded"`

	// Score is populated only for custom-strategy challenges; nil for
	// built-in strategies, which rank by dedicated columns instead.
	Score *float64 `json:"score,omitempty"`

	// JudgeRating is the 0-10 rating from an external judge, if any.
	JudgeRating *int `json:"judge_rating,omitempty"`

	// JudgeFeedback is the judge's textual feedback, if any.
	JudgeFeedback string `json:"judge_feedback,omitempty"`

	// JudgeOutputRaw preserves the judge's raw output for audit.
	JudgeOutputRaw map[string]any `json:"judge_output_raw,omitempty"`

	// TokensTotal is the workflow's cumulative token count at evaluation
	// time, when supplied.
	TokensTotal *int `json:"tokens_total,omitempty"`

	// ElapsedMS is the elapsed workflow time in milliseconds, when
	// supplied.
	ElapsedMS *int `json:"elapsed_ms,omitempty"`

	// CreatedAt records when the attempt was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// AttemptMetrics is the ephemeral input handed to a scoring strategy.
// It is derived from the in-flight evaluation and never persisted.
type AttemptMetrics struct {
	// Succeeded is the already-determined pass/fail outcome.
	Succeeded bool `json:"succeeded"`

	// TokensTotal is the cumulative token count, nil when unknown.
	TokensTotal *int `json:"tokens_total,omitempty"`

	// ElapsedMS is the elapsed time in milliseconds, nil when unknown.
	ElapsedMS *int `json:"elapsed_ms,omitempty"`

	// Rating is the judge rating, nil when no judge participated.
	Rating *int `json:"rating,omitempty"`

	// CreatedAt is the evaluation time in epoch milliseconds.
	CreatedAt int64 `json:"created_at"`
}

// ScoringContext is the per-evaluation value object passed into scorer
// plugins. It is constructed fresh for every invocation and never
// persisted.
type ScoringContext struct {
	TenantID    string `json:"tenant_id"`
	AppID       string `json:"app_id"`
	WorkflowID  string `json:"workflow_id"`
	ChallengeID string `json:"challenge_id"`
	EndUserID   string `json:"end_user_id,omitempty"`

	// TimeoutMS bounds the scorer invocation. Exceeding it is treated as
	// a plugin failure, not a fatal evaluation error.
	TimeoutMS int `json:"timeout_ms"`
}

// Timeout returns the context's timeout budget as a duration, or zero
// when no budget is set.
func (c ScoringContext) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ScoreResult is the structured value a scorer plugin must return.
type ScoreResult struct {
	// Score is the computed numeric score.
	Score float64 `json:"score"`

	// Details optionally reports per-term contributions for audit.
	Details map[string]any `json:"details,omitempty"`
}

// LeaderboardEntry is the attempt summary exposed by leaderboard queries.
type LeaderboardEntry struct {
	AttemptID   string    `json:"attempt_id"`
	AccountID   string    `json:"account_id,omitempty"`
	EndUserID   string    `json:"end_user_id,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	JudgeRating *int      `json:"judge_rating,omitempty"`
	TokensTotal *int      `json:"tokens_total,omitempty"`
	ElapsedMS   *int      `json:"elapsed_ms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary projects an attempt into its leaderboard entry form.
func (a *Attempt) Summary() LeaderboardEntry {
	return LeaderboardEntry{
		AttemptID:   a.ID,
		AccountID:   a.AccountID,
		EndUserID:   a.EndUserID,
		Score:       a.Score,
		JudgeRating: a.JudgeRating,
		TokensTotal: a.TokensTotal,
		ElapsedMS:   a.ElapsedMS,
		CreatedAt:   a.CreatedAt,
	}
}

// Package domain contains pure, dependency-free domain models and types
// for the challenge evaluation engine.
package domain

import "time"

// SuccessType identifies the rule used to decide whether a response
// satisfies a challenge's success condition.
type SuccessType string

// Supported success condition types.
const (
	// SuccessRegex matches the response against a regular expression
	// using case-insensitive, multi-line semantics.
	SuccessRegex SuccessType = "regex"

	// SuccessContains checks for a case-folded literal substring.
	SuccessContains SuccessType = "contains"

	// SuccessExact requires the whole response to equal the pattern
	// after case folding and whitespace trimming.
	SuccessExact SuccessType = "exact"

	// SuccessFuzzy accepts responses whose Levenshtein similarity to the
	// pattern meets a configurable threshold.
	SuccessFuzzy SuccessType = "fuzzy"
)

// EvaluatorType selects how a challenge decides pass/fail.
type EvaluatorType string

const (
	// EvaluatorRules evaluates the response text against the challenge's
	// success condition.
	EvaluatorRules EvaluatorType = "rules"

	// EvaluatorLLMJudge defers the verdict to an upstream judge whose
	// output is consumed as already-parsed input.
	EvaluatorLLMJudge EvaluatorType = "llm-judge"
)

// ScoringStrategy is the policy used to rank successful attempts on a
// challenge leaderboard.
type ScoringStrategy string

// Supported scoring strategies.
const (
	// StrategyFirst ranks by earliest successful attempt.
	StrategyFirst ScoringStrategy = "first"

	// StrategyFastest ranks by lowest elapsed time.
	StrategyFastest ScoringStrategy = "fastest"

	// StrategyFewestTokens ranks by lowest token consumption.
	StrategyFewestTokens ScoringStrategy = "fewest_tokens"

	// StrategyHighestRating ranks by highest judge rating. This is the
	// default for unrecognized or unset strategies.
	StrategyHighestRating ScoringStrategy = "highest_rating"

	// StrategyCustom ranks by the score computed by a scorer plugin.
	StrategyCustom ScoringStrategy = "custom"
)

// Known reports whether s is one of the recognized scoring strategies.
func (s ScoringStrategy) Known() bool {
	switch s {
	case StrategyFirst, StrategyFastest, StrategyFewestTokens, StrategyHighestRating, StrategyCustom:
		return true
	}
	return false
}

// Normalize maps unknown or empty strategy values to StrategyHighestRating
// so a leaderboard can always be rendered.
func (s ScoringStrategy) Normalize() ScoringStrategy {
	if !s.Known() {
		return StrategyHighestRating
	}
	return s
}

// Challenge is a ranking and evaluation configuration owned by a tenant.
// Challenges are soft-disabled via IsActive rather than deleted while
// attempts still reference them.
type Challenge struct {
	// ID uniquely identifies this challenge.
	ID string `json:"id"`

	// TenantID is the owning tenant.
	TenantID string `json:"tenant_id"`

	// AppID links the challenge to an application.
	AppID string `json:"app_id"`

	// WorkflowID optionally links the challenge to a specific workflow.
	WorkflowID string `json:"workflow_id,omitempty"`

	// Name is the human-readable challenge name.
	Name string `json:"name"`

	// Description explains the challenge to participants.
	Description string `json:"description,omitempty"`

	// Goal states what a successful response must achieve.
	Goal string `json:"goal,omitempty"`

	// SuccessType selects the rule used by the outcome evaluator.
	SuccessType SuccessType `json:"success_type"`

	// SuccessPattern is the pattern interpreted according to SuccessType.
	SuccessPattern string `json:"success_pattern,omitempty"`

	// EvaluatorType selects rules-based or judge-based evaluation.
	EvaluatorType EvaluatorType `json:"evaluator_type"`

	// ScoringStrategy is the leaderboard ranking policy.
	ScoringStrategy ScoringStrategy `json:"scoring_strategy"`

	// ScoringPluginID identifies the scorer plugin when ScoringStrategy
	// is StrategyCustom.
	ScoringPluginID string `json:"scoring_plugin_id,omitempty"`

	// ScoringEntrypoint references the scorer implementation in the form
	// "<package-path>:<symbol-name>".
	ScoringEntrypoint string `json:"scoring_entrypoint,omitempty"`

	// ScoringConfig is an opaque configuration blob passed to the scorer.
	ScoringConfig map[string]any `json:"scoring_config,omitempty"`

	// IsActive soft-disables the challenge without deleting it.
	IsActive bool `json:"is_active"`

	// CreatedBy is the operator account that created the challenge.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt records when the challenge was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt records the last edit.
	UpdatedAt time.Time `json:"updated_at"`
}

// RequiresPlugin reports whether this challenge's scoring strategy needs
// a scorer plugin to be resolved.
func (c *Challenge) RequiresPlugin() bool { return c.ScoringStrategy == StrategyCustom }

// Validate checks the challenge's internal invariants. A custom scoring
// strategy requires both a plugin identifier and an entrypoint.
func (c *Challenge) Validate() error {
	v := NewValidationError("challenge")
	if c.TenantID == "" {
		v.AddError("tenant_id is required")
	}
	if c.Name == "" {
		v.AddError("name is required")
	}
	if c.RequiresPlugin() && (c.ScoringPluginID == "" || c.ScoringEntrypoint == "") {
		v.AddError("custom scoring requires scoring_plugin_id and scoring_entrypoint")
	}
	if v.HasErrors() {
		return v
	}
	return nil
}

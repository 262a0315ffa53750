// Package rules provides the deterministic outcome evaluator that decides
// pass/fail for a submitted response against a challenge's success
// condition.
package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-arena/internal/domain"
)

// MaxResponseLength is the maximum response size accepted for evaluation
// (10MB). Larger inputs are rejected as unsupported rather than risking
// pathological regex execution.
const MaxResponseLength = 10 * 1024 * 1024

// DefaultFuzzyThreshold is the minimum Levenshtein similarity accepted by
// the fuzzy success type when the challenge does not configure one.
const DefaultFuzzyThreshold = 0.85

// OutcomeConfig carries a challenge's success condition.
type OutcomeConfig struct {
	// SuccessType selects the matching rule.
	SuccessType domain.SuccessType

	// SuccessPattern is interpreted according to SuccessType.
	SuccessPattern string

	// FuzzyThreshold overrides DefaultFuzzyThreshold for the fuzzy
	// success type. Values outside (0, 1] are ignored.
	FuzzyThreshold float64
}

// Evaluator decides success or failure of a response text against an
// outcome configuration. It is stateless and safe for concurrent use.
//
// Evaluation never returns an error to the caller: a malformed pattern
// produces a failed outcome with the problem reported in the details map.
type Evaluator struct {
	tracer trace.Tracer
}

// NewEvaluator creates an outcome evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{tracer: otel.Tracer("outcome-evaluator")}
}

// Evaluate decides whether responseText satisfies the success condition.
// It returns the outcome and a details map describing how the decision
// was reached; keys include "mode" and, depending on the rule, "matched",
// "similarity", "error", or "info".
func (e *Evaluator) Evaluate(ctx context.Context, responseText string, cfg OutcomeConfig) (bool, map[string]any) {
	_, span := e.tracer.Start(ctx, "Evaluator.Evaluate",
		trace.WithAttributes(
			attribute.String("outcome.success_type", string(cfg.SuccessType)),
			attribute.Int("outcome.response_length", len(responseText)),
		),
	)
	defer span.End()

	if len(responseText) > MaxResponseLength {
		return false, map[string]any{
			"mode":  string(cfg.SuccessType),
			"error": fmt.Sprintf("response too long: %d bytes exceeds limit of %d", len(responseText), MaxResponseLength),
		}
	}

	if cfg.SuccessPattern == "" {
		return false, unsupportedDetails(cfg.SuccessType)
	}

	var ok bool
	var details map[string]any
	switch cfg.SuccessType {
	case domain.SuccessRegex:
		ok, details = e.evaluateRegex(responseText, cfg.SuccessPattern)
	case domain.SuccessContains:
		ok = strings.Contains(fold(responseText), fold(cfg.SuccessPattern))
		details = map[string]any{"mode": string(domain.SuccessContains)}
	case domain.SuccessExact:
		ok = fold(strings.TrimSpace(responseText)) == fold(strings.TrimSpace(cfg.SuccessPattern))
		details = map[string]any{"mode": string(domain.SuccessExact), "matched": ok}
	case domain.SuccessFuzzy:
		ok, details = e.evaluateFuzzy(responseText, cfg.SuccessPattern, cfg.FuzzyThreshold)
	default:
		return false, unsupportedDetails(cfg.SuccessType)
	}

	span.SetAttributes(attribute.Bool("outcome.succeeded", ok))
	return ok, details
}

// evaluateRegex matches pattern against text with case-insensitive,
// multi-line semantics. An invalid pattern is not fatal: it yields a
// failed outcome with the error reported in details.
func (e *Evaluator) evaluateRegex(text, pattern string) (bool, map[string]any) {
	re, err := regexp.Compile("(?im)" + pattern)
	if err != nil {
		return false, map[string]any{
			"mode":  string(domain.SuccessRegex),
			"error": fmt.Sprintf("invalid_regex: %v", err),
		}
	}
	matched := re.MatchString(text)
	return matched, map[string]any{"mode": string(domain.SuccessRegex), "matched": matched}
}

// evaluateFuzzy accepts text whose Levenshtein similarity to pattern
// meets the threshold. Similarity is 1 - distance/maxLen over the folded,
// trimmed strings.
func (e *Evaluator) evaluateFuzzy(text, pattern string, threshold float64) (bool, map[string]any) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}

	a := fold(strings.TrimSpace(text))
	b := fold(strings.TrimSpace(pattern))

	similarity := 1.0
	if a != b {
		maxLen := max(len([]rune(a)), len([]rune(b)))
		if maxLen > 0 {
			distance := levenshtein.ComputeDistance(a, b)
			similarity = 1.0 - float64(distance)/float64(maxLen)
		}
	}

	ok := similarity >= threshold
	return ok, map[string]any{
		"mode":       string(domain.SuccessFuzzy),
		"matched":    ok,
		"similarity": similarity,
		"threshold":  threshold,
	}
}

func unsupportedDetails(successType domain.SuccessType) map[string]any {
	return map[string]any{
		"mode": string(successType),
		"info": "no_pattern_or_unsupported",
	}
}

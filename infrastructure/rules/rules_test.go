package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-arena/internal/domain"
)

func TestEvaluateContains(t *testing.T) {
	tests := []struct {
		name     string
		response string
		pattern  string
		want     bool
	}{
		{
			name:     "exact substring",
			response: "the flag is FLAG{abc123}",
			pattern:  "FLAG{abc123}",
			want:     true,
		},
		{
			name:     "case insensitive match",
			response: "the SECRET is out",
			pattern:  "secret",
			want:     true,
		},
		{
			name:     "pattern uppercase response lowercase",
			response: "i found the password",
			pattern:  "PASSWORD",
			want:     true,
		},
		{
			name:     "no match",
			response: "nothing to see here",
			pattern:  "secret",
			want:     false,
		},
		{
			name:     "empty response",
			response: "",
			pattern:  "secret",
			want:     false,
		},
	}

	evaluator := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, details := evaluator.Evaluate(context.Background(), tt.response, OutcomeConfig{
				SuccessType:    domain.SuccessContains,
				SuccessPattern: tt.pattern,
			})
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "contains", details["mode"])
		})
	}
}

func TestEvaluateRegex(t *testing.T) {
	tests := []struct {
		name     string
		response string
		pattern  string
		want     bool
	}{
		{
			name:     "simple match",
			response: "the secret is out",
			pattern:  "secret",
			want:     true,
		},
		{
			name:     "case insensitive",
			response: "the SECRET is out",
			pattern:  "secret",
			want:     true,
		},
		{
			name:     "multiline anchors",
			response: "line one\nFLAG: abc\nline three",
			pattern:  "^FLAG: abc$",
			want:     true,
		},
		{
			name:     "alternation",
			response: "access granted",
			pattern:  "granted|allowed",
			want:     true,
		},
		{
			name:     "no match",
			response: "access denied",
			pattern:  "granted|allowed",
			want:     false,
		},
	}

	evaluator := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, details := evaluator.Evaluate(context.Background(), tt.response, OutcomeConfig{
				SuccessType:    domain.SuccessRegex,
				SuccessPattern: tt.pattern,
			})
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "regex", details["mode"])
			assert.Equal(t, tt.want, details["matched"])
		})
	}
}

func TestEvaluateRegexInvalidPattern(t *testing.T) {
	evaluator := NewEvaluator()

	ok, details := evaluator.Evaluate(context.Background(), "any response", OutcomeConfig{
		SuccessType:    domain.SuccessRegex,
		SuccessPattern: "[unclosed",
	})

	require.False(t, ok)
	assert.Equal(t, "regex", details["mode"])
	assert.Contains(t, details["error"], "invalid_regex")
}

func TestEvaluateExact(t *testing.T) {
	tests := []struct {
		name     string
		response string
		pattern  string
		want     bool
	}{
		{
			name:     "identical",
			response: "42",
			pattern:  "42",
			want:     true,
		},
		{
			name:     "surrounding whitespace trimmed",
			response: "  42\n",
			pattern:  "42",
			want:     true,
		},
		{
			name:     "case folded",
			response: "Hello World",
			pattern:  "hello world",
			want:     true,
		},
		{
			name:     "partial is not exact",
			response: "the answer is 42",
			pattern:  "42",
			want:     false,
		},
	}

	evaluator := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := evaluator.Evaluate(context.Background(), tt.response, OutcomeConfig{
				SuccessType:    domain.SuccessExact,
				SuccessPattern: tt.pattern,
			})
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEvaluateFuzzy(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		pattern   string
		threshold float64
		want      bool
	}{
		{
			name:     "identical strings",
			response: "open sesame",
			pattern:  "open sesame",
			want:     true,
		},
		{
			name:     "single typo within default threshold",
			response: "open sesamee",
			pattern:  "open sesame",
			want:     true,
		},
		{
			name:     "completely different",
			response: "close the door",
			pattern:  "open sesame",
			want:     false,
		},
		{
			name:      "low threshold accepts distant strings",
			response:  "open says me",
			pattern:   "open sesame",
			threshold: 0.5,
			want:      true,
		},
	}

	evaluator := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, details := evaluator.Evaluate(context.Background(), tt.response, OutcomeConfig{
				SuccessType:    domain.SuccessFuzzy,
				SuccessPattern: tt.pattern,
				FuzzyThreshold: tt.threshold,
			})
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "fuzzy", details["mode"])
			assert.Contains(t, details, "similarity")
		})
	}
}

func TestEvaluateEmptyPattern(t *testing.T) {
	evaluator := NewEvaluator()

	for _, successType := range []domain.SuccessType{
		domain.SuccessRegex,
		domain.SuccessContains,
		domain.SuccessExact,
		domain.SuccessFuzzy,
	} {
		t.Run(string(successType), func(t *testing.T) {
			ok, details := evaluator.Evaluate(context.Background(), "any response", OutcomeConfig{
				SuccessType: successType,
			})
			assert.False(t, ok)
			assert.Equal(t, "no_pattern_or_unsupported", details["info"])
		})
	}
}

func TestEvaluateUnsupportedType(t *testing.T) {
	evaluator := NewEvaluator()

	ok, details := evaluator.Evaluate(context.Background(), "any response", OutcomeConfig{
		SuccessType:    domain.SuccessType("telepathy"),
		SuccessPattern: "whatever",
	})

	assert.False(t, ok)
	assert.Equal(t, "telepathy", details["mode"])
	assert.Equal(t, "no_pattern_or_unsupported", details["info"])
}

func TestEvaluateResponseTooLong(t *testing.T) {
	evaluator := NewEvaluator()

	huge := strings.Repeat("a", MaxResponseLength+1)
	ok, details := evaluator.Evaluate(context.Background(), huge, OutcomeConfig{
		SuccessType:    domain.SuccessContains,
		SuccessPattern: "a",
	})

	assert.False(t, ok)
	assert.Contains(t, details["error"], "response too long")
}

package domain

import (
	"encoding/json"
	"errors"
	"regexp"
)

// MaxJudgeRating is the upper bound of the judge rating scale.
const MaxJudgeRating = 10

// ErrNoVerdict indicates judge output contained no parseable verdict.
var ErrNoVerdict = errors.New("no verdict found in judge output")

// JudgeVerdict is the pass/rating/feedback triple produced by an external
// model-based judge, consumed by the engine as already-resolved input.
// When present, a verdict takes unconditional precedence over rules
// evaluation.
type JudgeVerdict struct {
	// Passed is the judge's pass/fail decision.
	Passed bool `json:"passed"`

	// Rating is the judge's 0-10 rating.
	Rating int `json:"rating"`

	// Feedback is the judge's textual feedback.
	Feedback string `json:"feedback"`

	// Raw preserves the parsed judge output for audit.
	Raw map[string]any `json:"raw,omitempty"`
}

// verdictPattern extracts the JSON object spanning the first opening to
// the last closing brace, matching how judge rubrics instruct models to
// emit their verdict at the end of free-form output.
var verdictPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseJudgeVerdict extracts a judge verdict from raw model output.
// Judges are prompted to return {"passed": bool, "rating": 0-10,
// "feedback": string}, but models wrap the object in prose; the parser
// locates the JSON object and tolerates missing fields, clamping the
// rating into the 0-10 range.
// Returns ErrNoVerdict when no JSON object can be decoded.
func ParseJudgeVerdict(output string) (*JudgeVerdict, error) {
	match := verdictPattern.FindString(output)
	if match == "" {
		return nil, ErrNoVerdict
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, ErrNoVerdict
	}

	verdict := &JudgeVerdict{Raw: raw}
	if passed, ok := raw["passed"].(bool); ok {
		verdict.Passed = passed
	}
	if rating, ok := raw["rating"].(float64); ok {
		verdict.Rating = clampRating(int(rating))
	}
	if feedback, ok := raw["feedback"].(string); ok {
		verdict.Feedback = feedback
	}
	return verdict, nil
}

func clampRating(rating int) int {
	if rating < 0 {
		return 0
	}
	if rating > MaxJudgeRating {
		return MaxJudgeRating
	}
	return rating
}

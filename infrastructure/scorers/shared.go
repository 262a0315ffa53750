// Package scorers provides the built-in scorer plugins that implement
// the ports.Scorer interface for custom-strategy challenges.
package scorers

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Well-known identifiers for the built-in scorers. Challenges reference
// scorers by plugin id plus entrypoint; the entrypoint keys the registry's
// build-time factory table.
const (
	// WeightedPluginID is the plugin identifier of the built-in weighted
	// scorer.
	WeightedPluginID = "builtin.weighted_scorer"

	// WeightedEntrypoint is the entrypoint reference of the built-in
	// weighted scorer.
	WeightedEntrypoint = "scorers:weighted"
)

// ErrNegativeWeight is returned when a scoring configuration carries a
// negative weight.
var ErrNegativeWeight = errors.New("scoring weights must be non-negative")

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

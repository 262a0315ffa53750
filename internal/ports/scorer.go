// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-arena/internal/domain"
)

// Scorer is the capability contract for custom scoring plugins.
// A scorer computes a numeric score from attempt metrics for
// leaderboard ranking on custom-strategy challenges.
// Implementations must be stateless and safe for concurrent use:
// one cached scorer instance serves every evaluation of its challenge.
type Scorer interface {
	// Name returns the scorer's identifier for logging and debugging.
	Name() string

	// Score computes a numeric score from the attempt metrics.
	// The config map is the challenge's opaque scoring configuration;
	// unknown keys must be ignored, missing keys fall back to the
	// scorer's defaults. The scoring context carries tenant and
	// challenge identity plus the timeout budget.
	//
	// Score must return a result with a finite numeric score; any other
	// outcome is reported as an error and degrades to a nil score at
	// the strategy resolver boundary.
	Score(ctx context.Context, metrics domain.AttemptMetrics, config map[string]any, sctx domain.ScoringContext) (domain.ScoreResult, error)
}

// ScorerFactory constructs a scorer instance. Factories are registered
// at build time under their entrypoint reference; construction errors
// surface as plugin load failures and are never cached.
type ScorerFactory func() (Scorer, error)

// ScorerRegistry resolves scorer plugins by identity and caches the
// resulting handles process-wide.
type ScorerRegistry interface {
	// Resolve returns the scorer for the given plugin identifier and
	// entrypoint reference ("<package-path>:<symbol-name>").
	// Resolved handles are cached by "{pluginID}:{entrypoint}"; repeated
	// resolution returns the same instance. Resolution failures are
	// reported and never cached.
	Resolve(pluginID, entrypoint string) (Scorer, error)

	// RegisterFactory registers a factory for an entrypoint, extending
	// the registry with additional scorer implementations.
	RegisterFactory(entrypoint string, factory ScorerFactory) error

	// ClearCache drops all cached scorer handles. Used by tests and
	// administrative reload.
	ClearCache()
}

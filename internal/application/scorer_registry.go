// Package application wires the challenge evaluation engine together:
// scorer plugin resolution, outcome evaluation, attempt recording,
// leaderboard ranking, and red/blue pairing bookkeeping.
package application

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-arena/infrastructure/scorers"
	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.ScorerRegistry = (*DefaultScorerRegistry)(nil)

// DefaultScorerRegistry implements the ScorerRegistry interface with a
// build-time factory table and a process-wide cache of resolved scorer
// handles. Arbitrary code loading is deliberately not supported: an
// entrypoint resolves only to a factory registered here.
//
// The registry is an explicitly owned value created at service start and
// passed into the components that need it. Concurrent first-access races
// on the same key resolve the scorer exactly once via singleflight;
// resolution failures are never cached so a transient failure cannot
// poison future attempts.
type DefaultScorerRegistry struct {
	// factories maps entrypoint references to their factory functions.
	factories map[string]ports.ScorerFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex

	// cache stores resolved scorer handles keyed by
	// "{pluginID}:{entrypoint}".
	cache map[string]ports.Scorer
	// cacheMu provides thread-safe access to the cache map.
	cacheMu sync.RWMutex
	// sf prevents duplicate construction when multiple goroutines
	// resolve the same scorer simultaneously.
	sf singleflight.Group

	logger *slog.Logger
}

// NewDefaultScorerRegistry creates a scorer registry with the built-in
// scorers pre-registered.
func NewDefaultScorerRegistry(logger *slog.Logger) *DefaultScorerRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	registry := &DefaultScorerRegistry{
		factories: make(map[string]ports.ScorerFactory),
		cache:     make(map[string]ports.Scorer),
		logger:    logger,
	}
	registry.factories[scorers.WeightedEntrypoint] = scorers.NewWeightedScorer
	return registry
}

// Resolve returns the scorer for the given plugin identity, constructing
// and caching it on first use. The entrypoint must take the form
// "<package-path>:<symbol-name>"; a missing separator fails with
// domain.ErrInvalidEntrypoint. Unknown entrypoints and factory errors
// fail with domain.ErrPluginLoadFailure.
func (r *DefaultScorerRegistry) Resolve(pluginID, entrypoint string) (ports.Scorer, error) {
	if !strings.Contains(entrypoint, ":") {
		return nil, fmt.Errorf("%w: %q, expected \"<package-path>:<symbol-name>\"",
			domain.ErrInvalidEntrypoint, entrypoint)
	}

	cacheKey := pluginID + ":" + entrypoint
	if scorer, ok := r.getCached(cacheKey); ok {
		return scorer, nil
	}

	// Singleflight collapses concurrent first resolutions of the same
	// key into one factory call.
	v, err, _ := r.sf.Do(cacheKey, func() (any, error) {
		// Re-check inside singleflight to handle the race between the
		// cache check and group execution.
		if scorer, ok := r.getCached(cacheKey); ok {
			return scorer, nil
		}

		r.mu.RLock()
		factory, exists := r.factories[entrypoint]
		r.mu.RUnlock()
		if !exists {
			return nil, domain.NewScoringError(pluginID, entrypoint,
				fmt.Errorf("%w: no factory registered for entrypoint", domain.ErrPluginLoadFailure))
		}

		scorer, err := factory()
		if err != nil {
			return nil, domain.NewScoringError(pluginID, entrypoint,
				fmt.Errorf("%w: %v", domain.ErrPluginLoadFailure, err))
		}

		r.putCached(cacheKey, scorer)
		r.logger.Info("resolved scorer plugin", "plugin_id", pluginID, "entrypoint", entrypoint)
		return scorer, nil
	})
	if err != nil {
		r.logger.Error("failed to resolve scorer plugin",
			"plugin_id", pluginID, "entrypoint", entrypoint, "error", err)
		return nil, err
	}

	return v.(ports.Scorer), nil
}

// RegisterFactory registers a scorer factory for an entrypoint reference.
// Registering an entrypoint that is already present replaces the factory
// but does not evict an already-cached handle; call ClearCache to force
// re-resolution.
func (r *DefaultScorerRegistry) RegisterFactory(entrypoint string, factory ports.ScorerFactory) error {
	if !strings.Contains(entrypoint, ":") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEntrypoint, entrypoint)
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[entrypoint] = factory
	return nil
}

// ClearCache drops all cached scorer handles. Subsequent resolutions
// construct fresh instances. Used by tests and administrative reload.
func (r *DefaultScorerRegistry) ClearCache() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.cache = make(map[string]ports.Scorer)
}

// SupportedEntrypoints returns the registered entrypoint references,
// useful for validation and introspection.
func (r *DefaultScorerRegistry) SupportedEntrypoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entrypoints := make([]string, 0, len(r.factories))
	for entrypoint := range r.factories {
		entrypoints = append(entrypoints, entrypoint)
	}
	return entrypoints
}

func (r *DefaultScorerRegistry) getCached(key string) (ports.Scorer, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	scorer, ok := r.cache[key]
	return scorer, ok
}

func (r *DefaultScorerRegistry) putCached(key string, scorer ports.Scorer) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.cache[key] = scorer
}

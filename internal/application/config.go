package application

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Result size caps. Caller-specified limits are clamped so no query is
// ever unbounded.
const (
	// DefaultLeaderboardLimit is the public leaderboard page size.
	DefaultLeaderboardLimit = 20

	// MaxLeaderboardLimit caps caller-specified leaderboard limits.
	MaxLeaderboardLimit = 100

	// MaxPairingLimit caps administrative pairing listings, which may
	// page deeper than the public leaderboard.
	MaxPairingLimit = 200

	// DefaultPluginTimeoutMS bounds scorer plugin invocations when the
	// engine configuration does not override it.
	DefaultPluginTimeoutMS = 5000
)

// EngineConfig is the engine's operational configuration, typically
// loaded from YAML at service start.
type EngineConfig struct {
	// PluginTimeoutMS bounds each scorer plugin invocation in
	// milliseconds. Zero disables the bound.
	PluginTimeoutMS int `yaml:"plugin_timeout_ms" validate:"min=0"`

	// LeaderboardDefaultLimit is used when a caller passes no limit.
	LeaderboardDefaultLimit int `yaml:"leaderboard_default_limit" validate:"min=1,max=1000"`

	// LeaderboardMaxLimit clamps caller-specified leaderboard limits.
	LeaderboardMaxLimit int `yaml:"leaderboard_max_limit" validate:"min=1,max=1000"`

	// PairingMaxLimit clamps administrative pairing listings.
	PairingMaxLimit int `yaml:"pairing_max_limit" validate:"min=1,max=10000"`

	// CacheTTLSeconds is how long ranked leaderboard pages may be served
	// from the read cache. Zero disables caching even when a cache store
	// is configured.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" validate:"min=0"`
}

// DefaultEngineConfig returns the engine defaults: a 5 second plugin
// budget, a 20 entry public leaderboard, and no leaderboard caching.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PluginTimeoutMS:         DefaultPluginTimeoutMS,
		LeaderboardDefaultLimit: DefaultLeaderboardLimit,
		LeaderboardMaxLimit:     MaxLeaderboardLimit,
		PairingMaxLimit:         MaxPairingLimit,
		CacheTTLSeconds:         0,
	}
}

// LoadEngineConfig reads an EngineConfig from YAML. Decoding is strict so
// configuration typos are not silently ignored, and the result is
// validated before being returned. Fields absent from the document keep
// their defaults.
func LoadEngineConfig(r io.Reader) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

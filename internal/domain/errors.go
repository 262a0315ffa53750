package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during evaluation and scoring.
var (
	// ErrMissingPluginConfig indicates a custom-strategy challenge is
	// missing its scorer plugin identifier or entrypoint.
	ErrMissingPluginConfig = errors.New("scoring plugin id and entrypoint are required for custom scoring")

	// ErrInvalidEntrypoint indicates a scorer entrypoint that does not
	// follow the "<package-path>:<symbol-name>" format.
	ErrInvalidEntrypoint = errors.New("invalid scorer entrypoint")

	// ErrPluginLoadFailure indicates a scorer plugin could not be
	// resolved or constructed. Load failures are never cached.
	ErrPluginLoadFailure = errors.New("failed to load scorer plugin")

	// ErrInvalidPluginResult indicates a scorer returned a value without
	// a usable numeric score.
	ErrInvalidPluginResult = errors.New("scorer must return a result with a numeric score")

	// ErrPluginTimeout indicates a scorer exceeded the scoring context's
	// timeout budget.
	ErrPluginTimeout = errors.New("scorer plugin timed out")

	// ErrChallengeNotFound indicates a referenced challenge does not
	// exist in the store.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrAttemptMissingRequired indicates an attempt record is missing
	// its tenant or challenge reference. This is a caller programming
	// error, not a recoverable condition.
	ErrAttemptMissingRequired = errors.New("attempt requires tenant_id and challenge_id")
)

// ScoringError wraps a scorer plugin failure with the plugin identity
// that produced it. All scoring errors are caught at the strategy
// resolver boundary and degrade to a nil score.
type ScoringError struct {
	// PluginID identifies the scorer plugin involved.
	PluginID string

	// Entrypoint is the plugin's entrypoint reference.
	Entrypoint string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface for ScoringError.
func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring error: plugin=%s, entrypoint=%s, err=%v", e.PluginID, e.Entrypoint, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *ScoringError) Unwrap() error { return e.Err }

// NewScoringError creates a ScoringError for the given plugin identity.
func NewScoringError(pluginID, entrypoint string, err error) *ScoringError {
	return &ScoringError{PluginID: pluginID, Entrypoint: entrypoint, Err: err}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}

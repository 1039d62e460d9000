package outreach

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced across subsystem boundaries.
var (
	// ErrNotFound signals a lookup or update targeting a nonexistent job id.
	ErrNotFound = errors.New("job not found")
	// ErrBackendUnavailable signals that the primary job repository cannot
	// be reached; callers may route the operation to a fallback store.
	ErrBackendUnavailable = errors.New("job backend unavailable")
	// ErrUnauthorized signals an operator credential mismatch.
	ErrUnauthorized = errors.New("unauthorized")
)

// StageError wraps a failure raised by a named pipeline stage. The job it
// belongs to transitions to failed with this error's message.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError builds a StageError for the given stage.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// SetupError marks a structural failure detected before any stage runs,
// such as a missing or unreadable input artifact.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup: %v", e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// NewSetupError builds a SetupError.
func NewSetupError(err error) *SetupError {
	return &SetupError{Err: err}
}

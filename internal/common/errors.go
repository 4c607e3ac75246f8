// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Registry errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Workflow errors.
	ErrBusy          = errors.New("another action is still in flight")
	ErrStaleResponse = errors.New("response for an import that is no longer active")
	ErrNoSelection   = errors.New("nothing selected")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError is a local precondition failure. It is detected before any
// remote call is made and never mutates workflow state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation failure with an operator-facing message.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RemoteError wraps a failure from the registry service with the operation
// that triggered it. Remote failures are non-fatal: they surface a
// notification and leave the session in its pre-action state.
type RemoteError struct {
	Err error
	Op  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError wraps err as a remote-call failure for the named operation.
func NewRemoteError(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

// IsStale reports whether err is a late response for a session that has
// already moved on. Stale responses are dropped, not surfaced.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleResponse)
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

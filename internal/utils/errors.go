package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured reports that an optional dependency was not wired at startup.
	ErrNotConfigured = errors.New("dependency not configured")
	// ErrUnavailable reports that a configured store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrAlreadyRunning rejects a job started while the previous one is still going.
	ErrAlreadyRunning = errors.New("already running")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

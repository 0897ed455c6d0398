package claudeacp

import (
	"errors"
	"strconv"
)

// Sentinel errors for bridge and engine operations.
var (
	// ErrUnavailable indicates the engine cannot start
	// (binary not found, not executable).
	ErrUnavailable = errors.New("claudeacp: engine unavailable")

	// ErrTerminated indicates the run was stopped before it ended on its own.
	ErrTerminated = errors.New("claudeacp: run terminated")

	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("claudeacp: session not found")

	// ErrHostDelivery indicates a session update could not be delivered to
	// the host. The host channel is unusable once this happens.
	ErrHostDelivery = errors.New("claudeacp: host delivery failed")

	// ErrInvalidPermissionMode indicates an unknown permission mode value.
	ErrInvalidPermissionMode = errors.New("claudeacp: invalid permission mode")
)

// ExitError represents an engine subprocess that exited with a non-zero
// status. Wraps the underlying error to preserve the error chain; consumers
// can errors.As to *exec.ExitError for OS-level detail.
//
// Code semantics: positive = exit status, negative (-1) = signal-killed.
// Stderr holds the tail of the subprocess's standard error, if any.
//
// Engines produce ExitError only for natural exits. User-initiated stops
// (via Run.Stop) produce ErrTerminated instead.
type ExitError struct {
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := "claudeacp: exit status " + strconv.Itoa(e.Code)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code from an error chain containing *ExitError.
// Returns (0, false) if the error does not contain an ExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

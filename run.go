package claudeacp

import "context"

// Run is the handle of one executing prompt.
//
// Events flow through the Events channel, which is closed when the run ends
// (normally, on error, or after Stop). Stop is the early-termination hook
// used for cancellation; Wait blocks until the run ends on its own.
//
// Run is an interface to enable wrapping with logging or test doubles
// (see package enginetest).
type Run interface {
	// Events returns the channel of engine events, in engine order.
	// The channel is closed when the run ends.
	Events() <-chan Event

	// Stop terminates the run early. Safe to call multiple times and after
	// the run has ended. Returns ErrTerminated when the run was cut short.
	Stop(ctx context.Context) error

	// Wait blocks until the run ends and returns its terminal error.
	Wait() error

	// Err returns the terminal error after the Events channel is closed.
	// Returns nil if the run ended cleanly or is still going.
	Err() error
}

package claudeacp

import "context"

// Drain consumes run's events, calling handler for each one in order, until
// the run ends, ctx is cancelled, or handler returns an error.
//
// Cancellation is observed between events: an event received after ctx is
// done is dropped, never handed to handler. On cancellation Drain returns
// ctx.Err() without stopping the run; callers own the Run.Stop call.
//
// When the events channel closes, Drain returns run.Err(), which is nil for a
// clean run. A handler error is returned as is.
func Drain(ctx context.Context, run Run, handler func(Event) error) error {
	events := run.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return run.Err()
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := handler(ev); err != nil {
				return err
			}
		}
	}
}

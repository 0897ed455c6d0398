// Package filter provides composable channel middleware for engine event
// streams. Consumers wrap run.Events() with these functions to select the
// event granularity they need.
package filter

import (
	"context"

	"github.com/dmora/claudeacp"
)

// Filter returns a channel that only passes events of the given types.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed.
// The returned channel is closed when the goroutine exits.
func Filter(ctx context.Context, ch <-chan claudeacp.Event, types ...claudeacp.EventType) <-chan claudeacp.Event {
	allowed := make(map[claudeacp.EventType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return pipe(ctx, ch, func(ev claudeacp.Event) bool {
		_, ok := allowed[ev.Type()]
		return ok
	})
}

// Completed returns a channel that drops incremental stream events,
// passing only complete messages. Spawns a goroutine that exits when ctx
// is cancelled or ch is closed.
func Completed(ctx context.Context, ch <-chan claudeacp.Event) <-chan claudeacp.Event {
	return pipe(ctx, ch, func(ev claudeacp.Event) bool {
		return !IsPartial(ev)
	})
}

// ResultOnly returns a channel that passes only result events.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed.
func ResultOnly(ctx context.Context, ch <-chan claudeacp.Event) <-chan claudeacp.Event {
	return Filter(ctx, ch, claudeacp.EventResult)
}

// IsPartial reports whether ev is an incremental stream event, emitted only
// when partial messages are enabled. The complete assistant message follows
// it, so partial events can be dropped without losing content.
func IsPartial(ev claudeacp.Event) bool {
	return ev.Type() == claudeacp.EventStream
}

// pipe spawns a goroutine that reads from ch, passes events matching
// the predicate to the returned channel, and closes it when ch closes
// or ctx is cancelled. Callers must either drain the returned channel
// or cancel ctx to avoid goroutine leaks. Events accepted by the
// predicate may be silently dropped if ctx is cancelled mid-send.
func pipe(ctx context.Context, ch <-chan claudeacp.Event, accept func(claudeacp.Event) bool) <-chan claudeacp.Event {
	out := make(chan claudeacp.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if accept(ev) && !trySend(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out
}

// trySend sends ev on out, returning true on success.
// Returns false if ctx is cancelled before the send completes.
func trySend(ctx context.Context, out chan<- claudeacp.Event, ev claudeacp.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

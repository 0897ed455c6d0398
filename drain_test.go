package claudeacp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/enginetest"
)

func textEvents(texts ...string) []claudeacp.Event {
	evs := make([]claudeacp.Event, 0, len(texts))
	for _, s := range texts {
		evs = append(evs, claudeacp.TextEvent{Text: s})
	}
	return evs
}

func start(t *testing.T, s enginetest.Script) claudeacp.Run {
	t.Helper()
	run, err := enginetest.New(s).Start(context.Background(), claudeacp.Request{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = run.Stop(context.Background()) })
	return run
}

func TestDrain_AllEventsInOrder(t *testing.T) {
	run := start(t, enginetest.Script{Events: textEvents("a", "b", "c")})
	var got []string
	err := claudeacp.Drain(context.Background(), run, func(ev claudeacp.Event) error {
		got = append(got, ev.(claudeacp.TextEvent).Text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDrain_RunError(t *testing.T) {
	boom := errors.New("boom")
	run := start(t, enginetest.Script{Events: textEvents("a"), Err: boom})
	n := 0
	err := claudeacp.Drain(context.Background(), run, func(claudeacp.Event) error {
		n++
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestDrain_HandlerError(t *testing.T) {
	stop := errors.New("stop")
	run := start(t, enginetest.Script{Events: textEvents("a", "b", "c")})
	n := 0
	err := claudeacp.Drain(context.Background(), run, func(claudeacp.Event) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}

func TestDrain_CancelBetweenEvents(t *testing.T) {
	run := start(t, enginetest.Script{Events: textEvents("1", "2", "3", "4", "5")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	err := claudeacp.Drain(ctx, run, func(ev claudeacp.Event) error {
		got = append(got, ev.(claudeacp.TextEvent).Text)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestDrain_AlreadyCanceled(t *testing.T) {
	run := start(t, enginetest.Script{Events: textEvents("a")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := claudeacp.Drain(ctx, run, func(claudeacp.Event) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

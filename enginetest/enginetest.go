package enginetest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmora/claudeacp"
)

// Script describes one scripted run.
type Script struct {
	// Events are delivered in order.
	Events []claudeacp.Event

	// Err is the terminal error reported after the last event.
	Err error

	// Block keeps the run open after the last event until Stop is called.
	Block bool

	// StartErr makes Start fail without creating a run.
	StartErr error
}

// Engine is a scripted claudeacp.Engine. Safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	scripts  []Script
	requests []claudeacp.Request
	runs     []*Run

	// ValidateErr is returned by Validate.
	ValidateErr error
}

var _ claudeacp.Engine = (*Engine)(nil)

// New returns an Engine that plays scripts in order. Once the scripts are
// exhausted, Start returns runs that end cleanly with no events.
func New(scripts ...Script) *Engine {
	return &Engine{scripts: scripts}
}

// Push appends a script.
func (e *Engine) Push(s Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts = append(e.scripts, s)
}

// Validate returns ValidateErr.
func (e *Engine) Validate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ValidateErr
}

// Start records req and plays the next script.
func (e *Engine) Start(ctx context.Context, req claudeacp.Request) (claudeacp.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	var s Script
	if len(e.scripts) > 0 {
		s = e.scripts[0]
		e.scripts = e.scripts[1:]
	}
	if s.StartErr != nil {
		e.mu.Unlock()
		return nil, s.StartErr
	}
	r := newRun()
	e.runs = append(e.runs, r)
	e.mu.Unlock()

	go r.play(s)
	return r, nil
}

// Requests returns a copy of every request passed to Start.
func (e *Engine) Requests() []claudeacp.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]claudeacp.Request(nil), e.requests...)
}

// Runs returns every run started so far.
func (e *Engine) Runs() []*Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Run(nil), e.runs...)
}

// Run is a scripted claudeacp.Run.
type Run struct {
	events chan claudeacp.Event
	stop   chan struct{}
	done   chan struct{}
	err    error

	stopOnce  sync.Once
	stopped   atomic.Bool
	delivered atomic.Int64
}

var _ claudeacp.Run = (*Run)(nil)

func newRun() *Run {
	return &Run{
		events: make(chan claudeacp.Event),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *Run) play(s Script) {
	for _, ev := range s.Events {
		select {
		case r.events <- ev:
			r.delivered.Add(1)
		case <-r.stop:
			r.finish(claudeacp.ErrTerminated)
			return
		}
	}
	if s.Block {
		<-r.stop
		r.finish(claudeacp.ErrTerminated)
		return
	}
	r.finish(s.Err)
}

func (r *Run) finish(err error) {
	r.err = err
	close(r.events)
	close(r.done)
}

// Events returns the unbuffered event channel.
func (r *Run) Events() <-chan claudeacp.Event { return r.events }

// Stop ends the run early and waits for it to finish.
func (r *Run) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.stop)
	})
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the run ends.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Err returns the terminal error once the run has ended.
func (r *Run) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Stopped reports whether Stop was called.
func (r *Run) Stopped() bool { return r.stopped.Load() }

// Delivered reports how many events the consumer has received.
func (r *Run) Delivered() int { return int(r.delivered.Load()) }

// Done is closed when the run has ended.
func (r *Run) Done() <-chan struct{} { return r.done }

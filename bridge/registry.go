package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	acp "github.com/coder/acp-go-sdk"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/internal/errfmt"
)

// ErrClosed is returned by prompts started after [Registry.Close].
var ErrClosed = errors.New("bridge: registry closed")

// Updater delivers session updates to the host. *acp.AgentSideConnection
// satisfies it.
type Updater interface {
	SessionUpdate(ctx context.Context, n acp.SessionNotification) error
}

// SessionInfo is a point-in-time view of one session.
type SessionInfo struct {
	ID         acp.SessionId
	CWD        string
	UpstreamID string
	Mode       claudeacp.PermissionMode
	Busy       bool
}

type session struct {
	id         acp.SessionId
	cwd        string
	upstreamID string
	mode       claudeacp.PermissionMode
	turn       *turn

	// lastDone is closed when the most recent turn has fully finished.
	lastDone chan struct{}
}

// turn is the cancellation handle of one in-flight prompt.
type turn struct {
	cancel context.CancelFunc
	run    claudeacp.Run
	done   chan struct{}
}

// Registry maps host session ids to session state and runs prompts.
// All methods are safe for concurrent use.
type Registry struct {
	engine     claudeacp.Engine
	opts       registryOptions
	translator Translator

	mu       sync.Mutex
	sessions map[acp.SessionId]*session
	updater  Updater
	closed   bool
}

// NewRegistry returns an empty registry that runs prompts on engine.
func NewRegistry(engine claudeacp.Engine, opts ...Option) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Registry{
		engine:     engine,
		opts:       o,
		translator: Translator{ForwardResult: o.forwardResult, Partial: o.partial, Logger: o.logger},
		sessions:   make(map[acp.SessionId]*session),
	}
}

// SetUpdater sets the host channel used for session updates. It must be
// called before the first prompt.
func (r *Registry) SetUpdater(u Updater) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updater = u
}

// CreateSession registers a fresh session rooted at cwd.
func (r *Registry) CreateSession(cwd string) acp.SessionId {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := acp.SessionId(r.opts.newID())
	for r.sessions[id] != nil {
		id = acp.SessionId(r.opts.newID())
	}
	r.sessions[id] = r.newSession(id, cwd)
	r.opts.logger.Debug("bridge: session created", "session", id)
	return id
}

// LoadSession re-attaches id. A known session is left untouched; an unknown
// one is registered fresh, which lets a host keep its ids across restarts.
// It reports whether the session already existed.
func (r *Registry) LoadSession(id acp.SessionId, cwd string) (existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[id] != nil {
		return true
	}
	r.sessions[id] = r.newSession(id, cwd)
	r.opts.logger.Debug("bridge: session loaded", "session", id)
	return false
}

func (r *Registry) newSession(id acp.SessionId, cwd string) *session {
	done := make(chan struct{})
	close(done)
	return &session{id: id, cwd: cwd, mode: r.opts.defaultMode, lastDone: done}
}

// SetMode sets the permission mode used by the session's next prompts.
func (r *Registry) SetMode(id acp.SessionId, mode claudeacp.PermissionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", claudeacp.ErrInvalidPermissionMode, mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.mode = mode
	return nil
}

// Snapshot returns the current state of id.
func (r *Registry) Snapshot(id acp.SessionId) (SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{
		ID:         s.id,
		CWD:        s.cwd,
		UpstreamID: s.upstreamID,
		Mode:       s.mode,
		Busy:       s.turn != nil,
	}, nil
}

// lookup requires r.mu.
func (r *Registry) lookup(id acp.SessionId) (*session, error) {
	s := r.sessions[id]
	if s == nil {
		return nil, fmt.Errorf("%w: %s", claudeacp.ErrSessionNotFound, id)
	}
	return s, nil
}

// Cancel aborts the session's in-flight prompt, if any, and stops its run.
// The prompt returns acp.StopReasonCancelled. Cancelling an idle session is
// a no-op.
func (r *Registry) Cancel(ctx context.Context, id acp.SessionId) error {
	r.mu.Lock()
	s, err := r.lookup(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	t := s.turn
	s.turn = nil
	r.mu.Unlock()

	if t == nil {
		return nil
	}
	t.cancel()
	r.mu.Lock()
	run := t.run
	r.mu.Unlock()
	if run != nil {
		if err := run.Stop(ctx); err != nil && !errors.Is(err, claudeacp.ErrTerminated) {
			r.opts.logger.Debug("bridge: stop after cancel", "session", id, "error", err)
		}
	}
	return nil
}

// Close cancels every in-flight prompt and waits until their runs have
// stopped or ctx is done. Later prompts fail with [ErrClosed].
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	var pending []chan struct{}
	for _, s := range r.sessions {
		if s.turn != nil {
			s.turn.cancel()
		}
		pending = append(pending, s.lastDone)
	}
	r.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Prompt runs one prompt on the session and returns its stop reason.
//
// A prompt already in flight on the same session is cancelled and fully
// finished before this one starts. Engine failures are reported to the user
// as a message chunk and yield acp.StopReasonEndTurn. A returned error means
// the session is unknown or the host channel failed.
func (r *Registry) Prompt(ctx context.Context, id acp.SessionId, blocks []acp.ContentBlock) (acp.StopReason, error) {
	text := flattenPrompt(blocks)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	s, err := r.lookup(id)
	if err != nil {
		r.mu.Unlock()
		return "", err
	}
	if prev := s.turn; prev != nil {
		prev.cancel()
		s.turn = nil
	}
	turnCtx, cancel := context.WithCancel(ctx)
	t := &turn{cancel: cancel, done: make(chan struct{})}
	s.turn = t
	mode, changed := ResolvePermissionMode(s.mode, text)
	s.mode = mode
	prevDone := s.lastDone
	s.lastDone = t.done
	updater := r.updater
	r.mu.Unlock()

	if changed {
		r.opts.logger.Debug("bridge: permission mode changed", "session", id, "mode", mode)
	}
	defer r.finishTurn(s, t)

	select {
	case <-prevDone:
	case <-turnCtx.Done():
		return acp.StopReasonCancelled, nil
	}

	r.mu.Lock()
	req := claudeacp.Request{
		Prompt:         text,
		ResumeID:       s.upstreamID,
		CWD:            s.cwd,
		Model:          r.opts.model,
		MaxTurns:       r.opts.maxTurns,
		PermissionMode: mode,
	}
	r.mu.Unlock()

	deliver := func(u Update) error {
		if updater == nil {
			return fmt.Errorf("%w: no host connection", claudeacp.ErrHostDelivery)
		}
		err := updater.SessionUpdate(ctx, acp.SessionNotification{SessionId: id, Update: u.ToACP()})
		if err != nil {
			return fmt.Errorf("%w: %w", claudeacp.ErrHostDelivery, err)
		}
		return nil
	}

	run, err := r.engine.Start(turnCtx, req)
	if err != nil {
		if turnCtx.Err() != nil {
			return acp.StopReasonCancelled, nil
		}
		r.opts.logger.Warn("bridge: engine start failed", "session", id, "error", err)
		return r.absorb(ctx, id, deliver, err)
	}
	r.mu.Lock()
	t.run = run
	r.mu.Unlock()

	err = claudeacp.Drain(turnCtx, run, func(ev claudeacp.Event) error {
		if upstream := ev.Metadata().UpstreamSessionID; upstream != "" {
			r.mu.Lock()
			s.upstreamID = upstream
			r.mu.Unlock()
		}
		for _, u := range r.translator.Translate(ev) {
			if err := deliver(u); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
		return acp.StopReasonEndTurn, nil
	case errors.Is(err, claudeacp.ErrHostDelivery) && ctx.Err() == nil:
		return "", r.fatal(id, err)
	case turnCtx.Err() != nil:
		return acp.StopReasonCancelled, nil
	default:
		r.opts.logger.Warn("bridge: run failed", "session", id, "error", err)
		return r.absorb(ctx, id, deliver, err)
	}
}

// absorb reports an engine failure to the user and ends the turn normally.
func (r *Registry) absorb(ctx context.Context, id acp.SessionId, deliver func(Update) error, cause error) (acp.StopReason, error) {
	if err := deliver(MessageChunk{Text: errfmt.Message(cause)}); err != nil {
		if ctx.Err() != nil {
			return acp.StopReasonCancelled, nil
		}
		return "", r.fatal(id, err)
	}
	return acp.StopReasonEndTurn, nil
}

func (r *Registry) fatal(id acp.SessionId, err error) error {
	r.opts.logger.Error("bridge: host delivery failed", "session", id, "error", err)
	r.opts.onFatal(err)
	return err
}

// finishTurn releases t. It always runs, whatever the prompt outcome.
func (r *Registry) finishTurn(s *session, t *turn) {
	t.cancel()
	r.mu.Lock()
	if s.turn == t {
		s.turn = nil
	}
	run := t.run
	r.mu.Unlock()

	if run != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.stopTimeout)
		if err := run.Stop(ctx); err != nil && !errors.Is(err, claudeacp.ErrTerminated) {
			r.opts.logger.Debug("bridge: stop run", "session", s.id, "error", err)
		}
		cancel()
	}
	close(t.done)
}

// flattenPrompt concatenates the text blocks of a prompt in order. Other
// block types are dropped.
func flattenPrompt(blocks []acp.ContentBlock) string {
	var b strings.Builder
	for _, blk := range blocks {
		if blk.Text != nil {
			b.WriteString(blk.Text.Text)
		}
	}
	return b.String()
}

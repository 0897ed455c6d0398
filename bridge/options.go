package bridge

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmora/claudeacp"
)

// defaultStopTimeout bounds how long a finished or cancelled turn waits for
// its subprocess to exit.
const defaultStopTimeout = 10 * time.Second

// Option configures a [Registry].
type Option func(*registryOptions)

type registryOptions struct {
	logger        *slog.Logger
	defaultMode   claudeacp.PermissionMode
	model         string
	maxTurns      int
	forwardResult bool
	partial       bool
	newID         func() string
	onFatal       func(error)
	stopTimeout   time.Duration
}

func defaultRegistryOptions() registryOptions {
	return registryOptions{
		logger:      slog.New(slog.DiscardHandler),
		defaultMode: claudeacp.PermissionDefault,
		newID:       newSessionID,
		onFatal:     func(error) {},
		stopTimeout: defaultStopTimeout,
	}
}

// WithLogger sets the registry logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *registryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDefaultMode sets the permission mode of new sessions.
func WithDefaultMode(m claudeacp.PermissionMode) Option {
	return func(o *registryOptions) { o.defaultMode = m }
}

// WithModel sets the model passed to every run. Empty uses the CLI default.
func WithModel(model string) Option {
	return func(o *registryOptions) { o.model = model }
}

// WithMaxTurns bounds the agentic turns of every run. Zero means unbounded.
func WithMaxTurns(n int) Option {
	return func(o *registryOptions) { o.maxTurns = n }
}

// WithForwardResult forwards the final result text as a message chunk.
func WithForwardResult(on bool) Option {
	return func(o *registryOptions) { o.forwardResult = on }
}

// WithPartialMessages tells the registry the engine streams partial
// messages, so complete assistant text is not forwarded a second time.
func WithPartialMessages(on bool) Option {
	return func(o *registryOptions) { o.partial = on }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *registryOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithFatalHandler is called when updates can no longer be delivered to the
// host. The process is expected to exit.
func WithFatalHandler(fn func(error)) Option {
	return func(o *registryOptions) {
		if fn != nil {
			o.onFatal = fn
		}
	}
}

// WithStopTimeout bounds how long a turn waits for its run to stop.
func WithStopTimeout(d time.Duration) Option {
	return func(o *registryOptions) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}

// newSessionID returns a time-ordered UUID, falling back to a random one.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

//go:build !windows

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/internal/errfmt"
)

// signalGroup sends sig to the process group led by cmd, returning nil if
// the group has already exited.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// run implements claudeacp.Run for one CLI subprocess.
type run struct {
	parser Parser
	opts   EngineOptions
	cmd    *exec.Cmd
	stderr *tailBuffer

	events     chan claudeacp.Event
	cancelRead context.CancelFunc

	// mu guards exited, which is set once both output pipes have closed and
	// before the leader is reaped.
	mu     sync.Mutex
	exited bool

	cmdDone chan struct{} // buffered(1), signaled by the readLoop defer
	done    chan struct{} // closed exactly once by finish()
	termErr error         // set by finish(), read after done closes

	stopping   atomic.Bool
	stopOnce   sync.Once
	finishOnce sync.Once
}

var _ claudeacp.Run = (*run)(nil)

// newRun wires a started subprocess and launches its readLoop.
func newRun(parser Parser, opts EngineOptions, cmd *exec.Cmd, stdout, stderr io.ReadCloser) *run {
	readCtx, cancelRead := context.WithCancel(context.Background())
	r := &run{
		parser:     parser,
		opts:       opts,
		cmd:        cmd,
		stderr:     newTailBuffer(opts.StderrLimit),
		events:     make(chan claudeacp.Event, opts.OutputBuffer),
		cancelRead: cancelRead,
		cmdDone:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go r.readLoop(readCtx, stdout, stderr)
	return r
}

// Events returns the channel of parsed events. It is closed when the run ends.
func (r *run) Events() <-chan claudeacp.Event {
	return r.events
}

// Stop terminates the subprocess. Safe to call multiple times.
// Blocks until the events channel is closed.
func (r *run) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.stopping.Store(true)

		// Unblock readLoop if stuck on channel send.
		r.cancelRead()

		r.signal(syscall.SIGTERM)

		select {
		case <-r.cmdDone:
		case <-time.After(r.opts.GracePeriod):
			r.opts.Logger.Debug("grace period elapsed, killing subprocess", "pid", r.cmd.Process.Pid)
			r.signal(syscall.SIGKILL)
			<-r.cmdDone
		case <-ctx.Done():
			r.signal(syscall.SIGKILL)
			<-r.cmdDone
		}
	})

	<-r.done
	return r.termErr
}

// Wait blocks until the run ends.
func (r *run) Wait() error {
	<-r.done
	return r.termErr
}

// Err returns the terminal error, or nil if still running.
func (r *run) Err() error {
	select {
	case <-r.done:
		return r.termErr
	default:
		return nil
	}
}

// signal sends sig to the subprocess group. Once the output pipes have
// closed only the leader is signalled, through os.Process, which is safe
// after reaping.
func (r *run) signal(sig syscall.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exited {
		_ = r.cmd.Process.Signal(sig)
		return
	}
	_ = signalGroup(r.cmd, sig)
}

// finish sets the terminal error and closes the events and done channels.
func (r *run) finish(err error) {
	r.finishOnce.Do(func() {
		r.termErr = err
		close(r.events)
		close(r.done)
	})
}

// readLoop pumps stdout into events and stderr into the tail buffer, then
// reaps the subprocess.
func (r *run) readLoop(ctx context.Context, stdout, stderr io.ReadCloser) {
	var g errgroup.Group
	g.Go(func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("cli: parser panic: %v", rec)
			}
			if err != nil {
				r.signal(syscall.SIGKILL)
			}
		}()
		if err := r.scanLines(ctx, stdout); err != nil {
			return fmt.Errorf("cli: scanner: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Read errors only truncate the diagnostic tail.
		_, _ = io.Copy(r.stderr, stderr)
		return nil
	})
	readErr := g.Wait()

	r.mu.Lock()
	r.exited = true
	r.mu.Unlock()

	waitErr := r.cmd.Wait()
	if readErr != nil {
		waitErr = readErr
	} else {
		waitErr = wrapExitError(waitErr, r.stderr.String())
	}
	if r.stopping.Load() {
		waitErr = claudeacp.ErrTerminated
	}
	if waitErr != nil {
		r.opts.Logger.Debug("subprocess ended", "pid", r.cmd.Process.Pid, "error", waitErr)
	}

	r.finish(waitErr)
	r.cmdDone <- struct{}{}
}

// scanLines reads lines from stdout and sends parsed events to the channel.
// A cancelled ctx stops delivery; the remaining output is discarded so the
// subprocess never blocks on a full pipe while it shuts down.
func (r *run) scanLines(ctx context.Context, stdout io.Reader) error {
	scanner := bufio.NewScanner(stdout)
	initCap := min(4096, r.opts.ScannerBuffer)
	scanner.Buffer(make([]byte, 0, initCap), r.opts.ScannerBuffer)

	for scanner.Scan() {
		line := scanner.Text()
		evs, err := r.parser.ParseLine(line)
		if errors.Is(err, ErrSkipLine) {
			continue
		}
		if err != nil {
			r.opts.Logger.Warn("unparseable engine output", "error", err, "line", errfmt.TruncateTo(line, 256))
			continue
		}
		for _, ev := range evs {
			select {
			case r.events <- ev:
			case <-ctx.Done():
				_, _ = io.Copy(io.Discard, stdout)
				return nil
			}
		}
	}
	return scanner.Err()
}

// wrapExitError converts a non-zero *exec.ExitError to *claudeacp.ExitError
// carrying the stderr tail. nil → nil, non-ExitError → passthrough,
// code 0 → nil (clean exit).
func wrapExitError(err error, stderr string) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	code := ee.ExitCode()
	if code == 0 {
		return nil
	}
	return &claudeacp.ExitError{Code: code, Stderr: stderr, Err: err}
}

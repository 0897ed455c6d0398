//go:build !windows

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/dmora/claudeacp"
)

// Engine is a CLI subprocess engine that adapts a Backend into a claudeacp.Engine.
// It spawns one subprocess per Start and orchestrates its lifecycle.
type Engine struct {
	backend Backend
	opts    EngineOptions
}

// Compile-time interface satisfaction check.
var _ claudeacp.Engine = (*Engine)(nil)

// NewEngine creates a CLI engine backed by the given Backend.
// Use EngineOption functions to customize buffer sizes and grace period.
func NewEngine(backend Backend, opts ...EngineOption) *Engine {
	return &Engine{
		backend: backend,
		opts:    resolveEngineOptions(opts...),
	}
}

// Validate checks that the backend's binary is available on PATH.
func (e *Engine) Validate() error {
	binary := e.backend.Binary()
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %s: %w", claudeacp.ErrUnavailable, binary, err)
	}
	return nil
}

// Start spawns the subprocess for req and returns its Run.
// The context parameter bounds only the setup; the subprocess lifetime is
// controlled via [claudeacp.Run.Stop].
func (e *Engine) Start(ctx context.Context, req claudeacp.Request) (claudeacp.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.CWD != "" {
		if err := validateCWD(req.CWD); err != nil {
			return nil, err
		}
	}

	binary, args, err := e.backend.SpawnArgs(req)
	if err != nil {
		return nil, err
	}
	resolvedBinary, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", claudeacp.ErrUnavailable, binary, err)
	}

	cmd, stdout, stderr, err := spawnCmd(resolvedBinary, args, req.CWD)
	if err != nil {
		return nil, fmt.Errorf("cli: start: %w", err)
	}
	e.opts.Logger.Debug("subprocess started",
		"binary", resolvedBinary, "pid", cmd.Process.Pid, "resume", req.ResumeID != "")

	return newRun(e.backend, e.opts, cmd, stdout, stderr), nil
}

func validateCWD(dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("cli: CWD must be an absolute path, got %q", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cli: CWD: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cli: CWD is not a directory: %s", dir)
	}
	return nil
}

// spawnCmd builds, configures, and starts an exec.Cmd in its own process
// group so that tool subprocesses are signalled along with it.
// Empty dir inherits the parent's working directory.
func spawnCmd(binary string, args []string, dir string) (*exec.Cmd, io.ReadCloser, io.ReadCloser, error) {
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, stdout, stderr, nil
}

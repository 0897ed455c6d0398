package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	acp "github.com/coder/acp-go-sdk"
	"github.com/spf13/cobra"

	"github.com/dmora/claudeacp/bridge"
	"github.com/dmora/claudeacp/engine/cli"
	"github.com/dmora/claudeacp/engine/cli/claude"
	"github.com/dmora/claudeacp/internal/config"
)

var version = "dev" // set via ldflags at build time

// shutdownTimeout bounds how long serve waits for in-flight runs to stop.
const shutdownTimeout = 15 * time.Second

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer, environ []string) *cobra.Command {
	root := &cobra.Command{
		Use:   "claude-acp",
		Short: "Agent Client Protocol server for Claude Code",
		Long: `claude-acp lets ACP hosts (editors, IDEs) drive Claude Code.
It speaks ACP on stdin/stdout and runs the claude CLI once per prompt,
resuming the conversation with --resume on later prompts.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(environ, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, stdin, stdout, stderr)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the claude executable can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(environ, cmd.Flags())
			if err != nil {
				return err
			}
			if err := newEngine(cfg, newLogger(stderr, cfg.Debug)).Validate(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", cfg.ClaudePath)
			return err
		},
	})
	root.AddCommand(newInspectCmd(environ))
	return root
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newEngine(cfg config.Config, logger *slog.Logger) *cli.Engine {
	backend := claude.New(
		claude.WithBinary(cfg.ClaudePath),
		claude.WithPartialMessages(cfg.PartialMessages),
	)
	return cli.NewEngine(backend, cli.WithLogger(logger))
}

// serve runs the ACP connection until the host disconnects, ctx is
// cancelled, or session updates can no longer be delivered.
func serve(ctx context.Context, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Debug)
	engine := newEngine(cfg, logger)
	if err := engine.Validate(); err != nil {
		// Not fatal: prompts report the problem to the user.
		logger.Warn("claude executable not available", "path", cfg.ClaudePath, "error", err)
	}

	fatal := make(chan error, 1)
	reg := bridge.NewRegistry(engine,
		bridge.WithLogger(logger),
		bridge.WithDefaultMode(cfg.PermissionMode),
		bridge.WithModel(cfg.Model),
		bridge.WithMaxTurns(cfg.MaxTurns),
		bridge.WithForwardResult(cfg.ForwardResult),
		bridge.WithPartialMessages(cfg.PartialMessages),
		bridge.WithFatalHandler(func(err error) {
			select {
			case fatal <- err:
			default:
			}
		}),
	)
	agent := bridge.NewAgent(reg)
	conn := acp.NewAgentSideConnection(agent, stdout, stdin)
	agent.SetAgentConnection(conn)

	logger.Debug("serving", "version", version, "claude", cfg.ClaudePath, "mode", cfg.PermissionMode)
	defer func() {
		// Runs live in their own process groups and outlive us unless stopped.
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := reg.Close(stopCtx); err != nil {
			logger.Warn("runs still active at shutdown", "error", err)
		}
	}()
	select {
	case <-conn.Done():
		logger.Debug("host disconnected")
		return nil
	case <-ctx.Done():
		return nil
	case err := <-fatal:
		return fmt.Errorf("host connection lost: %w", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/filter"
	"github.com/dmora/claudeacp/internal/config"
	"github.com/dmora/claudeacp/internal/errfmt"
)

const inspectStopTimeout = 5 * time.Second

type inspectOptions struct {
	raw        bool
	completed  bool
	resultOnly bool
	cwd        string
}

// newInspectCmd runs one prompt outside ACP and prints every engine event.
// It is a protocol debugging aid for checking what the CLI actually emits.
func newInspectCmd(environ []string) *cobra.Command {
	var o inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect PROMPT...",
		Short: "Run one prompt and print the raw engine events",
		Long: `inspect runs a single prompt through claude and prints each parsed event
with its timestamp. It prints all model output including thinking blocks;
do not use it with sensitive prompts or in shared terminals.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(environ, cmd.Flags())
			if err != nil {
				return err
			}
			return inspect(cmd.Context(), cfg, o, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&o.raw, "raw", false, "also print the raw stream-json line")
	cmd.Flags().BoolVar(&o.completed, "completed", false, "drop partial stream events")
	cmd.Flags().BoolVar(&o.resultOnly, "result-only", false, "print only the result event")
	cmd.Flags().StringVar(&o.cwd, "cwd", "", "working directory for claude (default: current directory)")
	return cmd
}

func inspect(ctx context.Context, cfg config.Config, o inspectOptions, prompt string, stdout, stderr io.Writer) error {
	engine := newEngine(cfg, newLogger(stderr, cfg.Debug))
	if err := engine.Validate(); err != nil {
		return err
	}
	if isTerminal(stdout) {
		fmt.Fprintln(stderr, "WARNING: inspect prints all model output including thinking blocks.")
	}
	cwd := o.cwd
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	run, err := engine.Start(ctx, claudeacp.Request{
		Prompt:         prompt,
		CWD:            cwd,
		Model:          cfg.Model,
		MaxTurns:       cfg.MaxTurns,
		PermissionMode: cfg.PermissionMode,
	})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), inspectStopTimeout)
		defer cancel()
		_ = run.Stop(stopCtx)
	}()

	events := run.Events()
	switch {
	case o.resultOnly:
		events = filter.ResultOnly(ctx, events)
	case o.completed:
		events = filter.Completed(ctx, events)
	}
	for done := false; !done; {
		select {
		case <-ctx.Done():
			return fmt.Errorf("interrupted: %w", ctx.Err())
		case ev, ok := <-events:
			if !ok {
				done = true
				break
			}
			printEvent(stdout, ev, o.raw)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	if err := run.Wait(); err != nil && !errors.Is(err, claudeacp.ErrTerminated) {
		return err
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printEvent(w io.Writer, ev claudeacp.Event, raw bool) {
	meta := ev.Metadata()
	ts := meta.Timestamp.Format(time.TimeOnly + ".000")
	fmt.Fprintf(w, "[%s] %-18s %s\n", ts, ev.Type(), errfmt.TruncateTo(describe(ev), 120))
	if raw && len(meta.Raw) > 0 {
		fmt.Fprintf(w, "           raw: %s\n", errfmt.TruncateTo(string(meta.Raw), 200))
	}
}

// describe returns a one-line summary of ev.
func describe(ev claudeacp.Event) string {
	switch e := ev.(type) {
	case claudeacp.SystemEvent:
		return fmt.Sprintf("%s session=%s model=%s", e.Subtype, e.UpstreamSessionID, e.Model)
	case claudeacp.AssistantEvent:
		parts := make([]string, 0, len(e.Blocks))
		for _, b := range e.Blocks {
			switch blk := b.(type) {
			case claudeacp.TextBlock:
				parts = append(parts, blk.Text)
			case claudeacp.ThinkingBlock:
				parts = append(parts, "(thinking) "+blk.Thinking)
			case claudeacp.ToolUseBlock:
				parts = append(parts, fmt.Sprintf("(tool %s %s) %s", blk.Name, blk.ID, blk.Input))
			}
		}
		return strings.Join(parts, " | ")
	case claudeacp.ResultEvent:
		s := fmt.Sprintf("%s turns=%d error=%t %s", e.Subtype, e.NumTurns, e.IsError, e.Result)
		if e.Usage != nil {
			s = fmt.Sprintf("in=%d out=%d %s", e.Usage.InputTokens, e.Usage.OutputTokens, s)
		}
		return s
	case claudeacp.TextEvent:
		return e.Text
	case claudeacp.ToolUseStartEvent:
		return fmt.Sprintf("%s %s %s", e.Name, e.ID, e.Input)
	case claudeacp.ToolUseOutputEvent:
		return e.ID + " " + e.Output
	case claudeacp.ToolUseErrorEvent:
		return e.ID + " " + e.Error
	case claudeacp.StreamEvent:
		fields := []string{e.Kind}
		for _, f := range []string{e.BlockType, e.DeltaType} {
			if f != "" {
				fields = append(fields, f)
			}
		}
		if text := e.Text + e.Delta; text != "" {
			fields = append(fields, fmt.Sprintf("%q", text))
		}
		return strings.Join(fields, " ")
	default:
		return ""
	}
}

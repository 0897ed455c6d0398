// Command claude-acp serves the Agent Client Protocol over stdio, running
// the Claude Code CLI once per prompt.
//
// Stdout carries the protocol; logs go to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr, os.Environ())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "claude-acp:", err)
		stop()
		os.Exit(1)
	}
}

package claudeacp

import "context"

// Engine starts prompt executions.
//
// The only implementation in this module is engine/cli with the claude
// backend, which runs the Claude Code CLI once per prompt. Use Validate to
// check that the engine's prerequisites are met before calling Start.
type Engine interface {
	// Start begins one prompt execution and returns its Run handle.
	// The Run immediately begins producing Events.
	Start(ctx context.Context, req Request) (Run, error)

	// Validate checks that the engine is available and ready.
	// For the CLI engine, this verifies the binary exists and is executable.
	Validate() error
}

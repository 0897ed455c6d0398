// Package cli adapts command-line agent tools into a [claudeacp.Engine].
//
// A Backend implements [Spawner] and [Parser] to define how the subprocess
// for one prompt is launched and how its stdout lines become
// [claudeacp.Event] values.
//
// [NewEngine] wraps a Backend into an Engine. Each [Engine.Start] spawns one
// subprocess; the returned Run pumps parsed events, captures the tail of
// stderr for error reporting, and shuts the subprocess down gracefully
// (SIGTERM, then SIGKILL after the grace period) on Stop.
//
// # Platform Support
//
// The [Engine] and run types use Unix signals and process groups and are not
// available on Windows. The interface and option types build everywhere.
//
// # Consumer Obligations
//
// Callers must either drain [claudeacp.Run.Events] to completion or call
// [claudeacp.Run.Stop] to release subprocess resources. Failing to do so may
// leave the subprocess running and leak goroutines.
//
// The concrete backend in this module is engine/cli/claude.
package cli

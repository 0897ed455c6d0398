// Package claude provides the Claude Code CLI backend.
//
// The [Backend] type implements [cli.Spawner] and [cli.Parser] to drive
// Claude Code as one subprocess per prompt, translating its stream-json
// output into [claudeacp.Event] values.
//
// # Usage
//
// Create a backend and pass it to [cli.NewEngine]:
//
//	b := claude.New()
//	engine := cli.NewEngine(b)
//
// # Command Line
//
// Every run uses print mode with stream-json output:
//
//	claude -p --verbose --output-format stream-json \
//	    [--include-partial-messages] [--resume ID] [--model M] \
//	    [--permission-mode MODE] [--max-turns N] PROMPT
//
// Continuation is by --resume with the session_id reported by a previous
// run; Request.ResumeID carries it.
//
// # Events
//
// The parser produces one event per line, except for user messages holding
// tool results, which expand to one [claudeacp.ToolUseOutputEvent] or
// [claudeacp.ToolUseErrorEvent] per tool_result block. Tool inputs are kept
// as the exact JSON bytes Claude emitted.
//
// The flat "text", "tool_use_start", "tool_use_output" and "tool_use_error"
// shapes produced by older SDK transports are also accepted.
package claude

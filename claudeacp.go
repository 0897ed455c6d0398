// Package claudeacp bridges the Claude Code CLI to the Agent Client Protocol.
//
// The root package defines the vocabulary shared by the engine side and the
// host side of the bridge:
//
//   - [Engine]: starts one prompt execution and returns a [Run]
//   - [Run]: an executing prompt; its events arrive on [Run.Events]
//   - [Request]: the prompt, continuation id and limits for one run
//   - [Event]: closed set of engine event types ([SystemEvent], [AssistantEvent], ...)
//   - [PermissionMode]: the tool-permission mode handed to the engine
//
// Engines live under engine/ (engine/cli runs a CLI as a subprocess and
// engine/cli/claude adapts it to Claude Code). The bridge package turns
// events into ACP session updates and owns the session registry.
//
// # Quick Start
//
//	eng := cli.NewEngine(claude.New())
//	run, err := eng.Start(ctx, claudeacp.Request{Prompt: "Hello"})
//	if err != nil { log.Fatal(err) }
//	err = claudeacp.Drain(ctx, run, func(ev claudeacp.Event) error {
//	    fmt.Println(ev.Type())
//	    return nil
//	})
package claudeacp

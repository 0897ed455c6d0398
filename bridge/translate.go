package bridge

import (
	"log/slog"

	"github.com/dmora/claudeacp"
)

// defaultToolTitle names tool calls whose event carries no tool name.
const defaultToolTitle = "Tool"

// Translator converts engine events into host updates. The zero value is
// usable: result text is not forwarded and nothing is logged.
type Translator struct {
	// ForwardResult emits a result event's final text as a message chunk.
	// The text normally repeats the last assistant message, so it is off
	// by default.
	ForwardResult bool

	// Partial is set when the engine streams partial messages. The text and
	// thinking of a complete assistant message then repeat deltas already
	// forwarded, so only its tool uses are translated.
	Partial bool

	Logger *slog.Logger
}

// Translate returns the updates for ev in emission order. Events with no
// user-visible content yield nil.
func (t Translator) Translate(ev claudeacp.Event) []Update {
	switch e := ev.(type) {
	case claudeacp.SystemEvent, claudeacp.UserEvent:
		return nil
	case claudeacp.AssistantEvent:
		return t.assistant(e)
	case claudeacp.ResultEvent:
		if t.ForwardResult && e.Result != "" {
			return []Update{MessageChunk{Text: e.Result}}
		}
		return nil
	case claudeacp.TextEvent:
		return []Update{MessageChunk{Text: e.Text}}
	case claudeacp.ToolUseStartEvent:
		return []Update{toolStart(e.ID, e.Name, e.Input)}
	case claudeacp.ToolUseOutputEvent:
		return []Update{ToolCallResult{
			ID:        e.ID,
			Text:      e.Output,
			RawOutput: map[string]string{"output": e.Output},
		}}
	case claudeacp.ToolUseErrorEvent:
		return []Update{ToolCallResult{
			ID:        e.ID,
			Failed:    true,
			Text:      "Error: " + e.Error,
			RawOutput: map[string]string{"error": e.Error},
		}}
	case claudeacp.StreamEvent:
		return t.stream(e)
	default:
		t.logger().Debug("bridge: ignoring event", "type", ev.Type())
		return nil
	}
}

func (t Translator) assistant(e claudeacp.AssistantEvent) []Update {
	var out []Update
	for _, b := range e.Blocks {
		switch blk := b.(type) {
		case claudeacp.TextBlock:
			if !t.Partial {
				out = append(out, MessageChunk{Text: blk.Text})
			}
		case claudeacp.ThinkingBlock:
			if !t.Partial {
				out = append(out, chunk(blk.Thinking, true)...)
			}
		case claudeacp.ToolUseBlock:
			out = append(out,
				MessageChunk{Text: "\nUsing tool: " + blk.Name + "\n"},
				toolStart(blk.ID, blk.Name, blk.Input),
			)
		}
	}
	return out
}

func (t Translator) stream(e claudeacp.StreamEvent) []Update {
	switch e.Kind {
	case claudeacp.StreamContentBlockStart:
		if e.BlockType == "text" {
			return chunk(e.Text, false)
		}
	case claudeacp.StreamContentBlockDelta:
		switch e.DeltaType {
		case claudeacp.DeltaText:
			return chunk(e.Delta, false)
		case claudeacp.DeltaThinking:
			return chunk(e.Delta, true)
		}
	}
	return nil
}

func (t Translator) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// chunk skips empty fragments. Stream block starts carry empty text for
// every block, and text blocks are emitted verbatim elsewhere.
func chunk(text string, thought bool) []Update {
	if text == "" {
		return nil
	}
	return []Update{MessageChunk{Text: text, Thought: thought}}
}

func toolStart(id, name string, input []byte) ToolCallStart {
	title := name
	if title == "" {
		title = defaultToolTitle
	}
	return ToolCallStart{ID: id, Title: title, Kind: ClassifyTool(name), RawInput: input}
}

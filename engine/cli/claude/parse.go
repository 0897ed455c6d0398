package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/engine/cli"
	"github.com/dmora/claudeacp/engine/cli/internal/jsonutil"
)

// rawFields holds the parts of a line that must survive parsing byte for
// byte, or that need a typed second pass.
type rawFields struct {
	Message json.RawMessage `json:"message"`
	Input   json.RawMessage `json:"input"`
}

type messageBody struct {
	Content json.RawMessage `json:"content"`
}

// contentBlock is the union of the assistant and user block shapes.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// ParseLine parses one line of Claude's stream-json output.
// Returns cli.ErrSkipLine for blank or whitespace-only lines.
func (b *Backend) ParseLine(line string) ([]claudeacp.Event, error) {
	if strings.TrimSpace(line) == "" {
		return nil, cli.ErrSkipLine
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, fmt.Errorf("claude: invalid JSON: %w", err)
	}
	var fields rawFields
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, fmt.Errorf("claude: invalid JSON: %w", err)
	}

	typeStr := jsonutil.GetString(raw, "type")
	if typeStr == "" {
		return nil, errors.New("claude: missing or empty type field")
	}

	meta := claudeacp.Meta{
		UpstreamSessionID: jsonutil.GetString(raw, "session_id"),
		Raw:               json.RawMessage(line),
		Timestamp:         time.Now(),
	}

	switch typeStr {
	case string(claudeacp.EventSystem):
		return one(claudeacp.SystemEvent{
			Meta:    meta,
			Subtype: jsonutil.GetString(raw, "subtype"),
			Model:   jsonutil.GetString(raw, "model"),
			CWD:     jsonutil.GetString(raw, "cwd"),
		}), nil
	case string(claudeacp.EventAssistant):
		return parseAssistant(meta, fields.Message)
	case string(claudeacp.EventUser):
		return parseUser(meta, fields.Message)
	case string(claudeacp.EventResult):
		return one(parseResult(meta, raw)), nil
	case string(claudeacp.EventText):
		return one(claudeacp.TextEvent{Meta: meta, Text: jsonutil.GetString(raw, "text")}), nil
	case string(claudeacp.EventToolUseStart):
		name := jsonutil.GetString(raw, "name")
		if name == "" {
			name = jsonutil.GetString(raw, "tool_name")
		}
		return one(claudeacp.ToolUseStartEvent{
			Meta:  meta,
			ID:    jsonutil.GetString(raw, "id"),
			Name:  name,
			Input: fields.Input,
		}), nil
	case string(claudeacp.EventToolUseOutput):
		return one(claudeacp.ToolUseOutputEvent{
			Meta:   meta,
			ID:     jsonutil.GetString(raw, "id"),
			Output: jsonutil.GetString(raw, "output"),
		}), nil
	case string(claudeacp.EventToolUseError):
		return one(claudeacp.ToolUseErrorEvent{
			Meta:  meta,
			ID:    jsonutil.GetString(raw, "id"),
			Error: jsonutil.GetString(raw, "error"),
		}), nil
	case string(claudeacp.EventStream):
		// Two-level dispatch: stream_event wraps an inner event with its
		// own type discriminator.
		return one(parseStreamEvent(meta, jsonutil.GetMap(raw, "event"))), nil
	default:
		return one(claudeacp.UnknownEvent{Meta: meta, Kind: sanitizeUnknownType(typeStr)}), nil
	}
}

func one(ev claudeacp.Event) []claudeacp.Event {
	return []claudeacp.Event{ev}
}

// decodeBlocks decodes message.content when it is a block array. A string
// content (plain prompt echo) or an absent message yields no blocks.
func decodeBlocks(message json.RawMessage) ([]contentBlock, error) {
	if len(message) == 0 {
		return nil, nil
	}
	var body messageBody
	if err := json.Unmarshal(message, &body); err != nil {
		return nil, fmt.Errorf("claude: invalid message: %w", err)
	}
	content := body.Content
	if len(content) == 0 || content[0] != '[' {
		return nil, nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil, fmt.Errorf("claude: invalid message content: %w", err)
	}
	return blocks, nil
}

// parseAssistant keeps text, tool_use and thinking blocks in order.
func parseAssistant(meta claudeacp.Meta, message json.RawMessage) ([]claudeacp.Event, error) {
	blocks, err := decodeBlocks(message)
	if err != nil {
		return nil, err
	}
	ev := claudeacp.AssistantEvent{Meta: meta}
	for _, blk := range blocks {
		switch blk.Type {
		case "text":
			ev.Blocks = append(ev.Blocks, claudeacp.TextBlock{Text: blk.Text})
		case "tool_use":
			ev.Blocks = append(ev.Blocks, claudeacp.ToolUseBlock{ID: blk.ID, Name: blk.Name, Input: blk.Input})
		case "thinking":
			ev.Blocks = append(ev.Blocks, claudeacp.ThinkingBlock{Thinking: blk.Thinking})
		}
	}
	return one(ev), nil
}

// parseUser splits tool_result blocks into tool output/error events. A user
// message without tool results stays a single UserEvent.
func parseUser(meta claudeacp.Meta, message json.RawMessage) ([]claudeacp.Event, error) {
	blocks, err := decodeBlocks(message)
	if err != nil {
		return nil, err
	}
	var evs []claudeacp.Event
	for _, blk := range blocks {
		if blk.Type != "tool_result" {
			continue
		}
		text := toolResultText(blk.Content)
		if blk.IsError {
			evs = append(evs, claudeacp.ToolUseErrorEvent{Meta: meta, ID: blk.ToolUseID, Error: text})
		} else {
			evs = append(evs, claudeacp.ToolUseOutputEvent{Meta: meta, ID: blk.ToolUseID, Output: text})
		}
	}
	if len(evs) == 0 {
		return one(claudeacp.UserEvent{Meta: meta}), nil
	}
	return evs, nil
}

// toolResultText flattens tool_result content, which is either a string or
// an array of blocks. Text blocks are joined with newlines; other blocks
// (images) are dropped.
func toolResultText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	parts := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		if blk.Type == "text" {
			parts = append(parts, blk.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseResult handles the terminal "result" event.
func parseResult(meta claudeacp.Meta, raw map[string]any) claudeacp.ResultEvent {
	ev := claudeacp.ResultEvent{
		Meta:     meta,
		Subtype:  jsonutil.GetString(raw, "subtype"),
		IsError:  jsonutil.GetBool(raw, "is_error"),
		NumTurns: jsonutil.GetInt(raw, "num_turns"),
		Usage:    extractTokenUsage(raw),
	}
	// "result" takes precedence over "text" when both are present.
	ev.Result = jsonutil.GetString(raw, "text")
	if result, ok := raw["result"].(string); ok {
		ev.Result = result
	}
	return ev
}

// parseStreamEvent handles stream_event wrappers from
// --include-partial-messages.
func parseStreamEvent(meta claudeacp.Meta, event map[string]any) claudeacp.StreamEvent {
	ev := claudeacp.StreamEvent{
		Meta:  meta,
		Kind:  jsonutil.GetString(event, "type"),
		Index: jsonutil.GetInt(event, "index"),
	}
	switch ev.Kind {
	case claudeacp.StreamContentBlockStart:
		block := jsonutil.GetMap(event, "content_block")
		ev.BlockType = jsonutil.GetString(block, "type")
		ev.Text = jsonutil.GetString(block, "text")
	case claudeacp.StreamContentBlockDelta:
		delta := jsonutil.GetMap(event, "delta")
		ev.DeltaType = jsonutil.GetString(delta, "type")
		switch ev.DeltaType {
		case claudeacp.DeltaText:
			ev.Delta = jsonutil.GetString(delta, "text")
		case claudeacp.DeltaThinking:
			ev.Delta = jsonutil.GetString(delta, "thinking")
		case claudeacp.DeltaInputJSON:
			ev.Delta = jsonutil.GetString(delta, "partial_json")
		}
	}
	return ev
}

// extractTokenUsage extracts input/output token counts from a source map.
// Returns nil if no meaningful usage data is present.
func extractTokenUsage(source map[string]any) *claudeacp.Usage {
	usage := jsonutil.GetMap(source, "usage")
	if usage == nil {
		return nil
	}
	in := jsonutil.GetInt(usage, "input_tokens")
	out := jsonutil.GetInt(usage, "output_tokens")
	if in == 0 && out == 0 {
		return nil
	}
	return &claudeacp.Usage{InputTokens: in, OutputTokens: out}
}

// sanitizeUnknownType bounds unknown discriminants before they reach logs.
// Types that are too long or contain control characters become "unknown".
func sanitizeUnknownType(typeStr string) string {
	const maxTypeLen = 64
	if len(typeStr) > maxTypeLen {
		return "unknown"
	}
	for _, r := range typeStr {
		if unicode.IsControl(r) {
			return "unknown"
		}
	}
	return typeStr
}

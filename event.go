package claudeacp

import (
	"encoding/json"
	"time"
)

// EventType is the discriminant of an engine event, as it appears in the
// engine's "type" field.
type EventType string

const (
	// EventSystem is engine bookkeeping (init, hooks). Never forwarded.
	EventSystem EventType = "system"

	// EventUser echoes a user message back. Never forwarded.
	EventUser EventType = "user"

	// EventAssistant carries the assistant's content blocks.
	EventAssistant EventType = "assistant"

	// EventResult marks the end of a run.
	EventResult EventType = "result"

	// EventText is a bare text fragment.
	EventText EventType = "text"

	// EventToolUseStart announces a tool invocation.
	EventToolUseStart EventType = "tool_use_start"

	// EventToolUseOutput carries the successful output of a tool.
	EventToolUseOutput EventType = "tool_use_output"

	// EventToolUseError carries the failure of a tool.
	EventToolUseError EventType = "tool_use_error"

	// EventStream is an incremental sub-event (--include-partial-messages).
	EventStream EventType = "stream_event"
)

// Event is one typed event from an engine run.
//
// Event is a closed set: every implementation lives in this package, and
// consumers dispatch with a type switch. Each variant carries only its own
// fields plus the shared [Meta].
type Event interface {
	// Type returns the event discriminant.
	Type() EventType

	// Metadata returns the fields shared by all variants.
	Metadata() Meta

	isEvent()
}

// Meta holds the fields every event may carry.
type Meta struct {
	// UpstreamSessionID is the engine's conversation id, when the event
	// reports one. Used to request continuation on the next run.
	UpstreamSessionID string `json:"session_id,omitempty"`

	// Raw is the unmodified line the event was parsed from.
	Raw json.RawMessage `json:"-"`

	// Timestamp is when the event was received.
	Timestamp time.Time `json:"timestamp"`
}

// Metadata returns m. Embedding Meta gives every variant this method.
func (m Meta) Metadata() Meta { return m }

// SystemEvent is engine bookkeeping.
type SystemEvent struct {
	Meta
	Subtype string
	Model   string
	CWD     string
}

// UserEvent is an echoed user message with no tool results.
type UserEvent struct {
	Meta
}

// AssistantEvent carries assistant content blocks in engine order.
type AssistantEvent struct {
	Meta
	Blocks []ContentBlock
}

// ResultEvent marks the end of a run.
type ResultEvent struct {
	Meta
	Subtype  string
	Result   string
	IsError  bool
	NumTurns int
	Usage    *Usage
}

// Usage reports token counts for a run.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TextEvent is a bare text fragment.
type TextEvent struct {
	Meta
	Text string
}

// ToolUseStartEvent announces a tool invocation. Input is the engine's
// payload exactly as received.
type ToolUseStartEvent struct {
	Meta
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolUseOutputEvent carries a tool's successful output.
type ToolUseOutputEvent struct {
	Meta
	ID     string
	Output string
}

// ToolUseErrorEvent carries a tool failure.
type ToolUseErrorEvent struct {
	Meta
	ID    string
	Error string
}

// Stream sub-event kinds.
const (
	StreamMessageStart      = "message_start"
	StreamContentBlockStart = "content_block_start"
	StreamContentBlockDelta = "content_block_delta"
	StreamContentBlockStop  = "content_block_stop"
	StreamMessageDelta      = "message_delta"
	StreamMessageStop       = "message_stop"
)

// Stream delta types.
const (
	DeltaText      = "text_delta"
	DeltaThinking  = "thinking_delta"
	DeltaInputJSON = "input_json_delta"
)

// StreamEvent is an incremental sub-event.
//
// For content_block_start, BlockType names the opened block and Text holds
// its initial text (text blocks only). For content_block_delta, DeltaType
// names the delta and Delta holds its payload (text, thinking or partial
// JSON).
type StreamEvent struct {
	Meta
	Kind      string
	Index     int
	BlockType string
	Text      string
	DeltaType string
	Delta     string
}

// UnknownEvent is any discriminant the parser does not model.
type UnknownEvent struct {
	Meta
	Kind string
}

func (SystemEvent) Type() EventType        { return EventSystem }
func (UserEvent) Type() EventType          { return EventUser }
func (AssistantEvent) Type() EventType     { return EventAssistant }
func (ResultEvent) Type() EventType        { return EventResult }
func (TextEvent) Type() EventType          { return EventText }
func (ToolUseStartEvent) Type() EventType  { return EventToolUseStart }
func (ToolUseOutputEvent) Type() EventType { return EventToolUseOutput }
func (ToolUseErrorEvent) Type() EventType  { return EventToolUseError }
func (StreamEvent) Type() EventType        { return EventStream }
func (e UnknownEvent) Type() EventType     { return EventType(e.Kind) }

func (SystemEvent) isEvent()        {}
func (UserEvent) isEvent()          {}
func (AssistantEvent) isEvent()     {}
func (ResultEvent) isEvent()        {}
func (TextEvent) isEvent()          {}
func (ToolUseStartEvent) isEvent()  {}
func (ToolUseOutputEvent) isEvent() {}
func (ToolUseErrorEvent) isEvent()  {}
func (StreamEvent) isEvent()        {}
func (UnknownEvent) isEvent()       {}

// ContentBlock is one block of an assistant message.
type ContentBlock interface {
	isContentBlock()
}

// TextBlock is assistant text, verbatim.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a tool invocation inside an assistant message.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ThinkingBlock is extended-thinking content.
type ThinkingBlock struct {
	Thinking string
}

func (TextBlock) isContentBlock()     {}
func (ToolUseBlock) isContentBlock()  {}
func (ThinkingBlock) isContentBlock() {}

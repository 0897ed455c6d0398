package bridge

import (
	"encoding/json"

	acp "github.com/coder/acp-go-sdk"
)

// Update is one host-bound session update. It is a closed set:
// [MessageChunk], [ToolCallStart] and [ToolCallResult].
type Update interface {
	// ToACP converts the update to its ACP form.
	ToACP() acp.SessionUpdate

	isUpdate()
}

// MessageChunk is agent text. Thought marks extended-thinking content.
type MessageChunk struct {
	Text    string
	Thought bool
}

// ToolCallStart announces a pending tool call.
type ToolCallStart struct {
	ID       string
	Title    string
	Kind     acp.ToolKind
	RawInput json.RawMessage
}

// ToolCallResult completes a tool call. Failed selects the failed status.
type ToolCallResult struct {
	ID        string
	Failed    bool
	Text      string
	RawOutput map[string]string
}

func (MessageChunk) isUpdate()   {}
func (ToolCallStart) isUpdate()  {}
func (ToolCallResult) isUpdate() {}

// ToACP returns an agent message chunk, or a thought chunk when Thought
// is set.
func (u MessageChunk) ToACP() acp.SessionUpdate {
	if u.Thought {
		return acp.UpdateAgentThoughtText(u.Text)
	}
	return acp.UpdateAgentMessageText(u.Text)
}

// ToACP returns a tool_call update in the pending state. RawInput is
// omitted when empty.
func (u ToolCallStart) ToACP() acp.SessionUpdate {
	opts := []acp.ToolCallStartOpt{
		acp.WithStartKind(u.Kind),
		acp.WithStartStatus(acp.ToolCallStatusPending),
	}
	// json.RawMessage marshals as the original bytes.
	if len(u.RawInput) > 0 {
		opts = append(opts, acp.WithStartRawInput(u.RawInput))
	}
	return acp.StartToolCall(acp.ToolCallId(u.ID), u.Title, opts...)
}

// ToACP returns a tool_call_update with the completed or failed status. Text
// becomes its content.
func (u ToolCallResult) ToACP() acp.SessionUpdate {
	status := acp.ToolCallStatusCompleted
	if u.Failed {
		status = acp.ToolCallStatusFailed
	}
	return acp.UpdateToolCall(
		acp.ToolCallId(u.ID),
		acp.WithUpdateStatus(status),
		acp.WithUpdateContent([]acp.ToolCallContent{acp.ToolContent(acp.TextBlock(u.Text))}),
		acp.WithUpdateRawOutput(u.RawOutput),
	)
}

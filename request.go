package claudeacp

// Request is the input of one engine run.
//
// Request is a value type: it carries the prompt and configuration but no
// runtime state. Zero values mean "engine default" for every field except
// Prompt.
type Request struct {
	// Prompt is the flattened prompt text.
	Prompt string `json:"prompt"`

	// ResumeID is the upstream engine session id to continue. Empty starts a
	// fresh conversation.
	ResumeID string `json:"resume_id,omitempty"`

	// CWD is the working directory for the run. Empty inherits the bridge's
	// working directory.
	CWD string `json:"cwd,omitempty"`

	// Model selects the engine model (e.g., "claude-sonnet-4-5").
	Model string `json:"model,omitempty"`

	// MaxTurns caps agentic turns for the run. Zero means no limit.
	MaxTurns int `json:"max_turns,omitempty"`

	// PermissionMode is the tool-permission mode for the run.
	PermissionMode PermissionMode `json:"permission_mode,omitempty"`
}

package bridge

import (
	"context"
	"errors"
	"fmt"

	acp "github.com/coder/acp-go-sdk"

	"github.com/dmora/claudeacp"
)

// Agent serves ACP requests from a host on top of a [Registry].
type Agent struct {
	reg *Registry
}

var (
	_ acp.Agent       = (*Agent)(nil)
	_ acp.AgentLoader = (*Agent)(nil)
)

// NewAgent returns an Agent backed by reg.
func NewAgent(reg *Registry) *Agent {
	return &Agent{reg: reg}
}

// SetAgentConnection routes session updates through conn.
func (a *Agent) SetAgentConnection(conn *acp.AgentSideConnection) {
	a.reg.SetUpdater(conn)
}

// Initialize implements acp.Agent.
func (a *Agent) Initialize(ctx context.Context, params acp.InitializeRequest) (acp.InitializeResponse, error) {
	a.reg.opts.logger.Debug("bridge: initialize", "protocol_version", params.ProtocolVersion)
	return acp.InitializeResponse{
		ProtocolVersion: acp.ProtocolVersionNumber,
		AgentCapabilities: acp.AgentCapabilities{
			LoadSession: true,
		},
	}, nil
}

// Authenticate implements acp.Agent. Credentials stay with the Claude CLI's
// own login, so there is nothing to do.
func (a *Agent) Authenticate(ctx context.Context, params acp.AuthenticateRequest) (acp.AuthenticateResponse, error) {
	return acp.AuthenticateResponse{}, nil
}

// NewSession implements acp.Agent.
func (a *Agent) NewSession(ctx context.Context, params acp.NewSessionRequest) (acp.NewSessionResponse, error) {
	return acp.NewSessionResponse{SessionId: a.reg.CreateSession(params.Cwd)}, nil
}

// LoadSession implements acp.AgentLoader.
func (a *Agent) LoadSession(ctx context.Context, params acp.LoadSessionRequest) (acp.LoadSessionResponse, error) {
	a.reg.LoadSession(params.SessionId, params.Cwd)
	return acp.LoadSessionResponse{}, nil
}

// SetSessionMode implements acp.Agent. Mode ids are permission modes.
func (a *Agent) SetSessionMode(ctx context.Context, params acp.SetSessionModeRequest) (acp.SetSessionModeResponse, error) {
	mode, err := claudeacp.ParsePermissionMode(string(params.ModeId))
	if err != nil {
		return acp.SetSessionModeResponse{}, err
	}
	if err := a.reg.SetMode(params.SessionId, mode); err != nil {
		return acp.SetSessionModeResponse{}, err
	}
	return acp.SetSessionModeResponse{}, nil
}

// Prompt implements acp.Agent.
func (a *Agent) Prompt(ctx context.Context, params acp.PromptRequest) (acp.PromptResponse, error) {
	reason, err := a.reg.Prompt(ctx, params.SessionId, params.Prompt)
	if err != nil {
		return acp.PromptResponse{}, fmt.Errorf("prompt %s: %w", params.SessionId, err)
	}
	return acp.PromptResponse{StopReason: reason}, nil
}

// Cancel implements acp.Agent. Cancel is a notification, so unknown
// sessions are ignored.
func (a *Agent) Cancel(ctx context.Context, params acp.CancelNotification) error {
	err := a.reg.Cancel(ctx, params.SessionId)
	if errors.Is(err, claudeacp.ErrSessionNotFound) {
		a.reg.opts.logger.Debug("bridge: cancel for unknown session", "session", params.SessionId)
		return nil
	}
	return err
}

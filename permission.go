package claudeacp

import (
	"fmt"
	"strings"
)

// PermissionMode controls how the engine asks for tool permissions.
// Values are the ones accepted by Claude Code's --permission-mode flag.
type PermissionMode string

const (
	// PermissionDefault uses the engine's default permission handling.
	PermissionDefault PermissionMode = "default"

	// PermissionAcceptEdits auto-accepts file edit operations.
	PermissionAcceptEdits PermissionMode = "acceptEdits"

	// PermissionBypass bypasses all permission prompts.
	PermissionBypass PermissionMode = "bypassPermissions"

	// PermissionPlan restricts the engine to planning without side effects.
	PermissionPlan PermissionMode = "plan"
)

// PermissionModes lists every valid mode, in display order.
var PermissionModes = []PermissionMode{
	PermissionDefault,
	PermissionAcceptEdits,
	PermissionBypass,
	PermissionPlan,
}

// Valid reports whether m is one of the known modes.
func (m PermissionMode) Valid() bool {
	for _, known := range PermissionModes {
		if m == known {
			return true
		}
	}
	return false
}

// ParsePermissionMode converts a configuration string into a PermissionMode.
// Matching is case-insensitive; the short aliases "bypass" and "accept-edits"
// are accepted. Empty input yields PermissionDefault.
func ParsePermissionMode(s string) (PermissionMode, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return PermissionDefault, nil
	}
	switch strings.ToLower(v) {
	case "default":
		return PermissionDefault, nil
	case "acceptedits", "accept-edits", "accept_edits":
		return PermissionAcceptEdits, nil
	case "bypasspermissions", "bypass":
		return PermissionBypass, nil
	case "plan":
		return PermissionPlan, nil
	}
	return "", fmt.Errorf("%w: %q; valid: default, acceptEdits, bypassPermissions, plan", ErrInvalidPermissionMode, s)
}

package bridge

import (
	"strings"

	"github.com/dmora/claudeacp"
)

// Permission directives recognised in prompt text.
const (
	MarkerAcceptEdits = "[ACP:PERMISSION:ACCEPT_EDITS]"
	MarkerBypass      = "[ACP:PERMISSION:BYPASS]"
	MarkerDefault     = "[ACP:PERMISSION:DEFAULT]"
)

// directives are checked in order; the first marker found wins.
var directives = []struct {
	marker string
	mode   claudeacp.PermissionMode
}{
	{MarkerAcceptEdits, claudeacp.PermissionAcceptEdits},
	{MarkerBypass, claudeacp.PermissionBypass},
	{MarkerDefault, claudeacp.PermissionDefault},
}

// ResolvePermissionMode returns the mode a prompt runs with. A directive in
// prompt replaces current and reports changed; otherwise current is returned
// unchanged. The prompt text itself is never modified.
func ResolvePermissionMode(current claudeacp.PermissionMode, prompt string) (mode claudeacp.PermissionMode, changed bool) {
	for _, d := range directives {
		if strings.Contains(prompt, d.marker) {
			return d.mode, true
		}
	}
	return current, false
}

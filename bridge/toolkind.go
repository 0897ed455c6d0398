package bridge

import (
	"strings"

	acp "github.com/coder/acp-go-sdk"
)

// toolKindRules is the classification priority: the first rule with a
// token contained in the tool name wins.
var toolKindRules = []struct {
	kind   acp.ToolKind
	tokens []string
}{
	{acp.ToolKindRead, []string{"read", "view", "get"}},
	{acp.ToolKindEdit, []string{"write", "create", "update", "edit"}},
	{acp.ToolKindDelete, []string{"delete", "remove"}},
	{acp.ToolKindMove, []string{"move", "rename"}},
	{acp.ToolKindSearch, []string{"search", "find", "grep"}},
	{acp.ToolKindExecute, []string{"run", "execute", "bash"}},
	{acp.ToolKindThink, []string{"think", "plan"}},
	{acp.ToolKindFetch, []string{"fetch", "download"}},
}

// ClassifyTool maps a tool name to the kind hosts use for icons and
// grouping. Matching is a case-insensitive substring test in priority
// order; unmatched names are acp.ToolKindOther.
func ClassifyTool(name string) acp.ToolKind {
	lower := strings.ToLower(name)
	for _, rule := range toolKindRules {
		for _, tok := range rule.tokens {
			if strings.Contains(lower, tok) {
				return rule.kind
			}
		}
	}
	return acp.ToolKindOther
}

package terminal

import (
	"fmt"
	"strings"

	"github.com/sonnes/sessionview/core"
)

// summarizeToolUse produces a compact one-liner like "[bash: git status]".
func summarizeToolUse(block core.ContentBlock) string {
	name := strings.ToLower(block.Name)
	summary := extractToolSummary(name, block.Input)
	if summary == "" {
		return fmt.Sprintf("[%s]", name)
	}
	return fmt.Sprintf("[%s: %s]", name, summary)
}

// extractToolSummary picks the most telling field of a tool input.
func extractToolSummary(name string, input any) string {
	m, ok := input.(map[string]any)
	if !ok || m == nil {
		return ""
	}

	switch name {
	case "bash":
		return core.StringField(m, "command")
	case "read", "write", "edit", "multiedit":
		return core.StringField(m, "file_path")
	case "notebookedit":
		return core.StringField(m, "notebook_path")
	case "glob", "grep":
		return core.StringField(m, "pattern")
	case "task", "agent":
		return core.StringField(m, "description")
	case "webfetch":
		return core.StringField(m, "url")
	case "websearch":
		return core.StringField(m, "query")
	case "todowrite":
		if todos, ok := m["todos"].([]any); ok {
			return fmt.Sprintf("%d items", len(todos))
		}
		return ""
	default:
		for _, key := range []string{"command", "file_path", "path", "pattern", "query", "url", "description"} {
			if v := core.StringField(m, key); v != "" {
				return v
			}
		}
		return ""
	}
}

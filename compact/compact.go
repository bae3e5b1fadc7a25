// Package compact provides a Transformer that replaces bulky tool payloads
// with short summaries, for skimming long transcripts.
package compact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/subagent"
)

// Config controls the compactor.
type Config struct {
	StripThinking bool
}

// Compactor summarizes tool results and file-writing tool inputs as line
// counts. References to subagents survive compaction.
type Compactor struct {
	stripThinking bool
}

// New returns a Compactor.
func New(cfg Config) *Compactor {
	return &Compactor{stripThinking: cfg.StripThinking}
}

// Transform implements core.Transformer.
func (c *Compactor) Transform(records []core.Record) error {
	for i := range records {
		rec := &records[i]
		rec.ToolUseResult = keepAgentID(rec.ToolUseResult)
		if rec.Message == nil {
			continue
		}
		if c.stripThinking {
			rec.Message.Content = filterThinking(rec.Message.Content)
		}
		for j := range rec.Message.Content {
			compactBlock(&rec.Message.Content[j])
		}
	}
	return nil
}

func filterThinking(blocks []core.ContentBlock) []core.ContentBlock {
	out := make([]core.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != core.BlockThinking {
			out = append(out, b)
		}
	}
	return out
}

func compactBlock(b *core.ContentBlock) {
	switch b.Type {
	case core.BlockToolResult:
		label := "output"
		if b.IsError {
			label = "error"
		}
		text := core.ToolResultText(b.Content)
		summary := lineSummary(label, text)
		if id := subagent.AgentIDFromText(text); id != "" {
			summary += " agentId: " + id
		}
		b.Content = summary
	case core.BlockToolUse:
		compactInput(b)
	}
}

func compactInput(b *core.ContentBlock) {
	m, ok := b.Input.(map[string]any)
	if !ok || m == nil {
		return
	}
	switch strings.ToLower(b.Name) {
	case "write":
		summarizeField(m, "content")
	case "edit":
		summarizeField(m, "old_string")
		summarizeField(m, "new_string")
	case "multiedit":
		edits, _ := m["edits"].([]any)
		for _, e := range edits {
			if em, ok := e.(map[string]any); ok {
				summarizeField(em, "old_string")
				summarizeField(em, "new_string")
			}
		}
	case "notebookedit":
		summarizeField(m, "new_source")
	}
}

// keepAgentID reduces a toolUseResult payload to its agentId, the only
// field spawn resolution reads. Payloads without one are dropped.
func keepAgentID(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var v struct {
		AgentID string `json:"agentId"`
	}
	if err := json.Unmarshal(raw, &v); err != nil || v.AgentID == "" {
		return nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}

// lineSummary formats "[output: 245 lines]" or "[error: 1 line]".
func lineSummary(label, s string) string {
	n := core.CountLines(s)
	if n == 1 {
		return fmt.Sprintf("[%s: 1 line]", label)
	}
	return fmt.Sprintf("[%s: %d lines]", label, n)
}

func summarizeField(m map[string]any, key string) {
	if s, ok := m[key].(string); ok {
		m[key] = lineSummary(key, s)
	}
}

// Package json renders transcripts as JSON documents, with expanded
// subagents nested under the spawn that started them.
package json

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/subagent"
)

// Renderer renders a transcript to JSON.
type Renderer struct {
	// Indent controls pretty-printing.
	Indent bool
	// Stats overrides the diff statistics computed from the records.
	Stats *core.DiffStats
}

// New returns an indenting Renderer.
func New() *Renderer {
	return &Renderer{Indent: true}
}

type document struct {
	*core.Transcript
	Title     string          `json:"title,omitempty"`
	DiffStats *core.DiffStats `json:"diffStats,omitempty"`
	Subagents []node          `json:"subagents,omitempty"`
}

type node struct {
	AgentID     string           `json:"agentId"`
	ToolUseID   string           `json:"toolUseId"`
	Description string           `json:"description,omitempty"`
	Type        string           `json:"type,omitempty"`
	Records     []core.Record    `json:"records,omitempty"`
	Errors      []core.LineError `json:"errors,omitempty"`
	Error       string           `json:"error,omitempty"`
	Subagents   []node           `json:"subagents,omitempty"`
}

// Render writes t without subagents.
func (r *Renderer) Render(w io.Writer, t *core.Transcript) error {
	return r.RenderTree(w, t, nil)
}

// RenderTree writes t with nodes nested under it.
func (r *Renderer) RenderTree(w io.Writer, t *core.Transcript, nodes []*subagent.Node) error {
	stats := r.Stats
	if stats == nil {
		stats = core.ComputeDiffStats(t.Records)
	}
	doc := document{
		Transcript: t,
		Title:      core.Title(t.Records, 120),
		DiffStats:  stats,
		Subagents:  convert(nodes),
	}
	return r.Encode(w, doc)
}

// Encode writes any value with the Renderer's formatting.
func (r *Renderer) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func convert(nodes []*subagent.Node) []node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]node, len(nodes))
	for i, n := range nodes {
		out[i] = node{
			AgentID:     n.Spawn.AgentID,
			ToolUseID:   n.Spawn.ToolUseID,
			Description: n.Spawn.Description,
			Subagents:   convert(n.Children),
		}
		if n.Subagent != nil {
			out[i].Type = n.Subagent.Type
			out[i].Records = n.Subagent.Records
			out[i].Errors = n.Subagent.Errors
		}
		if n.Err != nil {
			out[i].Error = n.Err.Error()
		}
	}
	return out
}

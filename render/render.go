// Package render defines how parsed transcripts are written out for people
// and programs.
package render

import (
	"io"

	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/subagent"
)

// Renderer writes a transcript to w.
type Renderer interface {
	Render(w io.Writer, t *core.Transcript) error
}

// TreeRenderer also writes expanded subagents inline.
type TreeRenderer interface {
	Renderer
	RenderTree(w io.Writer, t *core.Transcript, nodes []*subagent.Node) error
}

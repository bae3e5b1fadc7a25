package terminal

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/subagent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(text string) core.Record {
	return core.Record{Type: core.TypeUser, Message: &core.Message{Role: "user", Content: []core.ContentBlock{{Type: core.BlockText, Text: text}}}}
}

func assistant(blocks ...core.ContentBlock) core.Record {
	return core.Record{Type: core.TypeAssistant, Message: &core.Message{Role: "assistant", Model: "claude-sonnet-4-5", Content: blocks}}
}

func result(id string, content any, isError bool) core.Record {
	return core.Record{Type: core.TypeUser, Message: &core.Message{Role: "user", Content: []core.ContentBlock{
		{Type: core.BlockToolResult, ToolUseID: id, Content: content, IsError: isError},
	}}}
}

func render(t *testing.T, r *Renderer, tr *core.Transcript) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, tr))
	return ansi.Strip(buf.String())
}

func TestRenderHeader(t *testing.T) {
	first := user("Refactor the catalog resolver")
	first.Timestamp = "2025-06-01T10:00:00.000Z"
	last := assistant(
		core.ContentBlock{Type: core.BlockToolUse, ID: "t1", Name: "Edit", Input: map[string]any{"file_path": "c.go", "old_string": "a", "new_string": "b\nc"}},
	)
	last.Timestamp = "2025-06-01T10:02:30.000Z"

	out := render(t, &Renderer{Width: 100}, &core.Transcript{SessionID: "abc-123", Records: []core.Record{first, last}})

	assert.Contains(t, out, "Refactor the catalog resolver  +2 ~1 -1")
	assert.Contains(t, out, "abc-123  2 records  claude-sonnet-4-5")
	assert.Contains(t, out, "2m 30s")
}

func TestRenderHeaderOverrides(t *testing.T) {
	out := render(t, &Renderer{Width: 80, Title: "Subagent a1", Stats: &core.DiffStats{Added: 1200}},
		&core.Transcript{Records: []core.Record{user("hello")}})
	assert.Contains(t, out, "Subagent a1  +1,200")
	assert.Contains(t, out, "1 record")

	out = render(t, &Renderer{Width: 80}, &core.Transcript{SessionID: "s9", Records: []core.Record{}})
	assert.Contains(t, out, "Session s9")
	assert.Contains(t, out, "0 records")
}

func TestRenderBasicTranscript(t *testing.T) {
	tr := &core.Transcript{SessionID: "s1", Records: []core.Record{
		user("Fix the auth bug"),
		assistant(
			core.ContentBlock{Type: core.BlockThinking, Thinking: "hmm"},
			core.ContentBlock{Type: core.BlockToolUse, ID: "t1", Name: "Bash", Input: map[string]any{"command": "grep -rn auth src/"}},
			core.ContentBlock{Type: core.BlockText, Text: "Found the issue in the auth module."},
		),
		result("t1", "auth.go:12: func Auth()", false),
		{Type: "system", Message: &core.Message{Content: []core.ContentBlock{{Type: "image"}}}},
	}}

	out := render(t, &Renderer{Width: 80}, tr)

	assert.Contains(t, out, "USER")
	assert.Contains(t, out, "Fix the auth bug")
	assert.Contains(t, out, "ASSISTANT")
	assert.Contains(t, out, "▸ Thinking...")
	assert.Contains(t, out, "⚙ Bash  grep -rn auth src/")
	assert.Contains(t, out, "Found the issue in the auth module.")
	assert.Contains(t, out, "SYSTEM")
	assert.Contains(t, out, "[image]")
	assert.NotContains(t, out, "auth.go:12", "paired results are hidden in the short view")
	assert.Equal(t, 1, strings.Count(out, "USER"), "a record holding only consumed results has no card")
}

func TestRenderStripsInjectedMarkup(t *testing.T) {
	out := render(t, &Renderer{Width: 80}, &core.Transcript{Records: []core.Record{
		user("<system-reminder>be brief</system-reminder>"),
		user("<command-name>/review</command-name><command-args>pr 12</command-args>"),
	}})
	assert.NotContains(t, out, "be brief")
	assert.Contains(t, out, "/review pr 12")
	assert.Equal(t, 1, strings.Count(out, "USER"))
}

func TestRenderTruncation(t *testing.T) {
	out := render(t, &Renderer{Width: 60}, &core.Transcript{Records: []core.Record{user(strings.Repeat("a", 300) + "\nsecond line")}})
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "second line")
}

func TestRenderFull(t *testing.T) {
	tr := &core.Transcript{Records: []core.Record{
		user("Show me"),
		assistant(
			core.ContentBlock{Type: core.BlockText, Text: "# Plan\n\nUse **bold** and `code`.\n\n- one\n- two\n\n```go\nfunc main() {}\n```"},
			core.ContentBlock{Type: core.BlockToolUse, ID: "t1", Name: "Bash", Input: map[string]any{"command": "seq 20"}},
			core.ContentBlock{Type: core.BlockToolUse, ID: "t2", Name: "Bash", Input: map[string]any{"command": "false"}},
		),
		result("t1", strings.Repeat("n\n", 20), false),
		result("t2", []any{map[string]any{"type": "text", "text": "exit status 1"}}, true),
	}}

	out := render(t, &Renderer{Width: 80, Full: true}, tr)

	assert.Contains(t, out, "# Plan")
	assert.Contains(t, out, "Use bold and code.")
	assert.Contains(t, out, "• one")
	assert.Contains(t, out, "• two")
	assert.Contains(t, out, "func main() {}")
	assert.Equal(t, maxResultLines, strings.Count(out, "↳ n"))
	assert.Contains(t, out, "… 8 more lines")
	assert.Contains(t, out, "↳ exit status 1")
}

func TestRenderLineErrors(t *testing.T) {
	out := render(t, &Renderer{Width: 80}, &core.Transcript{
		Records: []core.Record{user("hi")},
		Errors:  []core.LineError{{Line: 3, Message: "invalid character 'x'"}},
	})
	assert.Contains(t, out, "⚠ 1 unreadable line")
	assert.Contains(t, out, "line 3: invalid character 'x'")
}

func spawnTranscript() *core.Transcript {
	return &core.Transcript{SessionID: "s1", Records: []core.Record{
		user("Investigate"),
		assistant(core.ContentBlock{Type: core.BlockToolUse, ID: "t1", Name: "Task", Input: map[string]any{"description": "Explore repo", "subagent_type": "Explore"}}),
		{
			Type:          core.TypeUser,
			Message:       &core.Message{Role: "user", Content: []core.ContentBlock{{Type: core.BlockToolResult, ToolUseID: "t1", Content: "done"}}},
			ToolUseResult: json.RawMessage(`{"agentId":"a1"}`),
		},
		assistant(core.ContentBlock{Type: core.BlockToolUse, ID: "t2", Name: "Task", Input: map[string]any{"agentId": "a2"}}),
	}}
}

func TestRenderSpawnLines(t *testing.T) {
	out := render(t, &Renderer{Width: 80}, spawnTranscript())
	assert.Contains(t, out, "→ agent a1 (Explore)")
	assert.Contains(t, out, "→ agent a2")
}

func TestRenderTree(t *testing.T) {
	nodes := []*subagent.Node{
		{
			Path:  subagent.Path{"a1"},
			Spawn: subagent.Spawn{ToolUseID: "t1", AgentID: "a1"},
			Subagent: &core.SubagentInvocation{AgentID: "a1", Type: "Explore", Records: []core.Record{
				{Type: "Explore", Message: &core.Message{Role: "user", Content: []core.ContentBlock{{Type: core.BlockText, Text: "Look around"}}}},
				assistant(core.ContentBlock{Type: core.BlockText, Text: "Found it"}),
			}},
		},
		{Path: subagent.Path{"a2"}, Spawn: subagent.Spawn{ToolUseID: "t2", AgentID: "a2"}, Err: errors.New("store unavailable\ndetails")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&Renderer{Width: 80}).RenderTree(&buf, spawnTranscript(), nodes))
	out := ansi.Strip(buf.String())

	assert.Contains(t, out, "┃  EXPLORE")
	assert.Contains(t, out, "┃   Look around")
	assert.Contains(t, out, "┃   Found it")
	assert.Contains(t, out, "✗ store unavailable")
	assert.NotContains(t, out, "details")
}

func TestRenderAnchorsAndFocus(t *testing.T) {
	var seen []string
	r := &Renderer{
		Width: 80,
		Focus: subagent.Path{"a2"},
		Subagent: func(parent subagent.Path, sp subagent.Spawn) *Expansion {
			seen = append(seen, parent.String()+">"+sp.AgentID)
			if sp.AgentID == "a1" {
				return &Expansion{Records: []core.Record{
					assistant(core.ContentBlock{Type: core.BlockToolUse, ID: "n1", Name: "Agent", Input: map[string]any{"agentId": "deep"}}),
				}}
			}
			if sp.AgentID == "deep" {
				return &Expansion{Note: "loading..."}
			}
			return nil
		},
	}

	var buf bytes.Buffer
	anchors, err := r.RenderAnchors(&buf, spawnTranscript())
	require.NoError(t, err)

	assert.Equal(t, []string{">a1", "a1>deep", ">a2"}, seen)
	require.Len(t, anchors, 3)
	assert.Equal(t, subagent.Path{"a1"}, anchors[0].Path)
	assert.Equal(t, subagent.Path{"a1", "deep"}, anchors[1].Path)
	assert.Equal(t, subagent.Path{"a2"}, anchors[2].Path)

	lines := strings.Split(ansi.Strip(buf.String()), "\n")
	for _, a := range anchors {
		assert.Contains(t, lines[a.Line], "→ agent "+a.Path.Leaf())
	}
	assert.Contains(t, lines[anchors[1].Line+1], "loading...")
}

func TestRenderCycle(t *testing.T) {
	r := &Renderer{
		Width: 80,
		Subagent: func(parent subagent.Path, sp subagent.Spawn) *Expansion {
			// Every agent claims to spawn a1 again.
			return &Expansion{Records: []core.Record{
				assistant(core.ContentBlock{Type: core.BlockToolUse, ID: "x", Name: "Task", Input: map[string]any{"agentId": "a1"}}),
			}}
		},
	}
	tr := &core.Transcript{Records: []core.Record{
		assistant(core.ContentBlock{Type: core.BlockToolUse, ID: "t", Name: "Task", Input: map[string]any{"agentId": "a1"}}),
	}}

	out := render(t, r, tr)
	assert.Contains(t, out, "subagent cycle")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-1,000", formatNumber(-1000))
	assert.Equal(t, "<1s", formatDuration(0))
	assert.Equal(t, "1h 5m", formatDuration(65*60e9))
	assert.Equal(t, "ab...", cut("abcdefgh", 5))
	assert.Equal(t, "2 records", plural(2, "record"))
}

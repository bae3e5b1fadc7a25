// Package terminal renders transcripts as ANSI-colored record cards, with
// subagent streams expanded inline under the tool call that spawned them.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/subagent"
)

const (
	defaultWidth   = 100
	maxResultLines = 12
	maxErrorLines  = 10
)

// Expansion is what the renderer shows under a spawn line. Records, when
// non-nil, are rendered nested; otherwise Err or Note is shown.
type Expansion struct {
	Type    string
	Records []core.Record
	Errors  []core.LineError
	Err     error
	Note    string
}

// Anchor is the output line of a rendered spawn, counted from zero.
type Anchor struct {
	Path subagent.Path
	Line int
}

// Renderer pretty-prints a transcript as record cards.
type Renderer struct {
	// Width overrides terminal width detection. Zero means auto-detect.
	Width int
	// Full renders complete text as markdown and shows tool results.
	// Otherwise each block is cut to its first line.
	Full bool
	// Title replaces the title derived from the first user prompt.
	Title string
	// Stats replaces the diff statistics computed from the records.
	Stats *core.DiffStats
	// Match selects the tool calls that spawn subagents. Nil uses
	// subagent.DefaultTools.
	Match subagent.Matcher
	// Subagent returns the expansion for a spawn found under parent, or nil
	// to show the spawn line alone.
	Subagent func(parent subagent.Path, sp subagent.Spawn) *Expansion
	// Focus highlights the spawn line with this path.
	Focus subagent.Path
}

// New creates a terminal Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render writes t as ANSI-colored record cards to w.
func (r *Renderer) Render(w io.Writer, t *core.Transcript) error {
	_, err := r.RenderAnchors(w, t)
	return err
}

// RenderTree writes t with the expanded nodes nested under their spawns.
func (r *Renderer) RenderTree(w io.Writer, t *core.Transcript, nodes []*subagent.Node) error {
	rr := *r
	rr.Subagent = NodeExpansions(nodes)
	return rr.Render(w, t)
}

// RenderAnchors renders like Render and also reports where each spawn line
// landed, in output order.
func (r *Renderer) RenderAnchors(w io.Writer, t *core.Transcript) ([]Anchor, error) {
	p := &printer{w: w, width: r.termWidth()}

	r.writeHeader(p, t)
	r.writeRecords(p, nil, t.Records)
	writeLineErrors(p, t.Errors)
	p.line("")
	return p.anchors, p.err
}

// NodeExpansions adapts an expanded tree to Renderer.Subagent.
func NodeExpansions(nodes []*subagent.Node) func(subagent.Path, subagent.Spawn) *Expansion {
	idx := subagent.Index(nodes)
	return func(parent subagent.Path, sp subagent.Spawn) *Expansion {
		key := append(append(subagent.Path{}, parent...), sp.AgentID).String()
		n, ok := idx[key]
		if !ok {
			return nil
		}
		if n.Err != nil {
			return &Expansion{Err: n.Err}
		}
		return &Expansion{Type: n.Subagent.Type, Records: n.Subagent.Records, Errors: n.Subagent.Errors}
	}
}

func (r *Renderer) termWidth() int {
	if r.Width > 0 {
		return r.Width
	}
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

func (r *Renderer) match() subagent.Matcher {
	if r.Match != nil {
		return r.Match
	}
	return subagent.ToolMatcher(subagent.DefaultTools...)
}

// printer writes prefixed lines and counts them.
type printer struct {
	w       io.Writer
	width   int
	prefix  string
	lines   int
	anchors []Anchor
	err     error
}

func (p *printer) line(s string) {
	for _, l := range strings.Split(s, "\n") {
		if p.err != nil {
			return
		}
		_, p.err = fmt.Fprintln(p.w, strings.TrimRight(p.prefix+l, " "))
		p.lines++
	}
}

// contentWidth is the room left for text after the prefix and card margin.
func (p *printer) contentWidth() int {
	return max(p.width-lipgloss.Width(p.prefix)-4, 40)
}

func (p *printer) nest(prefix string, fn func()) {
	old := p.prefix
	p.prefix += prefix
	fn()
	p.prefix = old
}

// writeHeader renders the title, diff stats, and stream metadata.
func (r *Renderer) writeHeader(p *printer, t *core.Transcript) {
	title := r.Title
	if title == "" {
		title = core.Title(t.Records, p.contentWidth())
	}
	if title == "" && t.SessionID != "" {
		title = "Session " + t.SessionID
	}
	row := styleTitle.Render(title)

	stats := r.Stats
	if stats == nil {
		stats = core.ComputeDiffStats(t.Records)
	}
	if stats != nil {
		var parts []string
		if stats.Added > 0 {
			parts = append(parts, styleAdded.Render("+"+formatNumber(stats.Added)))
		}
		if stats.Changed > 0 {
			parts = append(parts, styleChanged.Render("~"+formatNumber(stats.Changed)))
		}
		if stats.Removed > 0 {
			parts = append(parts, styleRemoved.Render("-"+formatNumber(stats.Removed)))
		}
		if len(parts) > 0 {
			row += "  " + strings.Join(parts, " ")
		}
	}
	p.line(row)

	var meta []string
	if t.SessionID != "" {
		meta = append(meta, t.SessionID)
	}
	meta = append(meta, plural(len(t.Records), "record"))
	if model := firstModel(t.Records); model != "" {
		meta = append(meta, model)
	}
	if first, last, ok := timeSpan(t.Records); ok {
		meta = append(meta, formatTime(first))
		if d := last.Sub(first); d > 0 {
			meta = append(meta, formatDuration(d))
		}
	}
	p.line(styleMeta.Render(strings.Join(meta, "  ")))
}

// writeRecords renders one stream. path is the stream's position in the
// subagent tree; the session itself is the empty path.
func (r *Renderer) writeRecords(p *printer, path subagent.Path, records []core.Record) {
	results := make(map[string]core.ContentBlock)
	for _, rec := range records {
		for _, b := range rec.Blocks() {
			if b.Type == core.BlockToolResult && b.ToolUseID != "" {
				results[b.ToolUseID] = b
			}
		}
	}
	uses := make(map[string]bool)
	spawns := make(map[string]subagent.Spawn)
	for _, rec := range records {
		for _, b := range rec.Blocks() {
			if b.Type == core.BlockToolUse {
				uses[b.ID] = true
			}
		}
	}
	for _, sp := range subagent.Spawns(records, r.match()) {
		spawns[sp.ToolUseID] = sp
	}

	var prev *time.Time
	for _, rec := range records {
		var duration string
		if ts, err := core.ParseTimestamp(rec.Timestamp); err == nil {
			if prev != nil {
				duration = formatDuration(ts.Sub(*prev))
			}
			prev = &ts
		}
		r.writeRecord(p, path, rec, duration, results, uses, spawns)
	}
}

// cardLine is one line of a record card. Spawns are emitted after the lines
// before them so their anchors and expansions land in order.
type cardLine struct {
	text  string
	spawn *subagent.Spawn
}

func (r *Renderer) writeRecord(p *printer, path subagent.Path, rec core.Record, duration string,
	results map[string]core.ContentBlock, uses map[string]bool, spawns map[string]subagent.Spawn) {
	width := p.contentWidth()

	var lines []cardLine
	add := func(s ...string) {
		for _, l := range s {
			lines = append(lines, cardLine{text: l})
		}
	}

	for _, b := range rec.Blocks() {
		switch b.Type {
		case core.BlockText:
			text := strings.TrimSpace(b.Text)
			if rec.Type == core.TypeUser {
				text = core.StripInjected(text)
			}
			if text == "" {
				continue
			}
			if r.Full {
				add(renderMarkdown(text, width)...)
			} else {
				add(truncate(text, width))
			}
		case core.BlockThinking:
			if r.Full && strings.TrimSpace(b.Thinking) != "" {
				for _, l := range renderMarkdown(b.Thinking, width) {
					add(styleThinking.Render(l))
				}
			} else {
				add(styleThinking.Render("▸ Thinking..."))
			}
		case core.BlockToolUse:
			add(toolLine(b, width))
			if r.Full {
				if res, ok := results[b.ID]; ok {
					add(resultLines(res, width)...)
				}
			}
			if sp, ok := spawns[b.ID]; ok {
				lines = append(lines, cardLine{spawn: &sp})
			}
		case core.BlockToolResult:
			if uses[b.ToolUseID] {
				continue
			}
			if r.Full {
				add(resultLines(b, width)...)
			} else {
				add(styleToolDetail.Render(truncate(core.ToolResultText(b.Content), width)))
			}
		default:
			label := "[" + string(b.Type) + "]"
			if b.Text != "" {
				label += " " + b.Text
			}
			add(styleToolDetail.Render(truncate(label, width)))
		}
	}

	if len(lines) == 0 {
		return
	}

	writeSeparator(p)
	header := recordBadge(rec.Type)
	var meta []string
	if ts, err := core.ParseTimestamp(rec.Timestamp); err == nil {
		meta = append(meta, formatTime(ts))
	}
	if duration != "" {
		meta = append(meta, duration)
	}
	if rec.Message != nil && rec.Message.Model != "" && rec.Type == core.TypeAssistant {
		meta = append(meta, rec.Message.Model)
	}
	if len(meta) > 0 {
		header += "    " + styleMeta.Render(strings.Join(meta, "    "))
	}
	p.line("")
	p.line(" " + header)

	for _, l := range lines {
		if l.spawn == nil {
			p.line("  " + l.text)
			continue
		}
		p.nest("  ", func() { r.writeSpawn(p, path, *l.spawn) })
	}
}

// writeSpawn renders the "→ agent" line of a spawn and, when the Subagent
// hook supplies one, its expansion.
func (r *Renderer) writeSpawn(p *printer, parent subagent.Path, sp subagent.Spawn) {
	child, cycleErr := parent.Child(sp.AgentID)
	if cycleErr != nil {
		child = append(append(subagent.Path{}, parent...), sp.AgentID)
	}

	var exp *Expansion
	if r.Subagent != nil && cycleErr == nil {
		exp = r.Subagent(parent, sp)
	}

	label := "→ agent " + sp.AgentID
	kind := sp.SubagentType
	if exp != nil && exp.Type != "" {
		kind = exp.Type
	}
	if kind != "" {
		label += " (" + kind + ")"
	}
	style := styleSpawn
	if r.Focus != nil && child.String() == r.Focus.String() {
		style = styleSpawnFocus
	}
	p.anchors = append(p.anchors, Anchor{Path: child, Line: p.lines})
	p.line(style.Render(label))

	switch {
	case cycleErr != nil:
		p.line("  " + styleError.Render("✗ "+cycleErr.Error()))
	case exp == nil:
	case exp.Records != nil:
		p.nest(styleNest.Render("┃")+" ", func() {
			r.writeRecords(p, child, exp.Records)
			writeLineErrors(p, exp.Errors)
		})
	case exp.Err != nil:
		p.line("  " + styleError.Render("✗ "+firstLine(exp.Err.Error())))
	case exp.Note != "":
		p.line("  " + styleMeta.Render(exp.Note))
	}
}

func toolLine(b core.ContentBlock, width int) string {
	name := b.Name
	if name == "" {
		name = "tool"
	}
	line := styleToolName.Render("⚙ " + name)
	if summary := extractToolSummary(strings.ToLower(name), b.Input); summary != "" {
		nameWidth := lipgloss.Width("⚙ " + name + "  ")
		line += "  " + styleToolDetail.Render(truncate(summary, width-nameWidth))
	}
	return line
}

// resultLines shows the head of a tool result, marking errors.
func resultLines(b core.ContentBlock, width int) []string {
	text := strings.TrimRight(core.ToolResultText(b.Content), "\n")
	if text == "" {
		return nil
	}
	style := styleToolDetail
	if b.IsError {
		style = styleError
	}
	all := strings.Split(text, "\n")
	shown := all[:min(len(all), maxResultLines)]
	out := make([]string, 0, len(shown)+1)
	for _, l := range shown {
		out = append(out, style.Render("  ↳ "+cut(l, width-4)))
	}
	if rest := len(all) - len(shown); rest > 0 {
		out = append(out, styleMeta.Render(fmt.Sprintf("    … %s", plural(rest, "more line"))))
	}
	return out
}

func writeLineErrors(p *printer, errs []core.LineError) {
	if len(errs) == 0 {
		return
	}
	p.line("")
	p.line(" " + styleError.Render("⚠ "+plural(len(errs), "unreadable line")))
	for i, e := range errs {
		if i == maxErrorLines {
			p.line("   " + styleMeta.Render(fmt.Sprintf("… %d more", len(errs)-i)))
			break
		}
		p.line("   " + styleMeta.Render(truncate(e.Error(), p.contentWidth())))
	}
}

func writeSeparator(p *printer) {
	p.line("")
	p.line(styleSeparator.Render(strings.Repeat("─", min(p.width-lipgloss.Width(p.prefix), 72))))
}

func recordBadge(typ string) string {
	switch typ {
	case core.TypeUser:
		return styleUserBadge.Render("USER")
	case core.TypeAssistant:
		return styleAssistantBadge.Render("ASSISTANT")
	case "":
		return styleAgentBadge.Render("RECORD")
	default:
		return styleAgentBadge.Render(strings.ToUpper(typ))
	}
}

func firstModel(records []core.Record) string {
	for _, r := range records {
		if r.Type == core.TypeAssistant && r.Message != nil && r.Message.Model != "" {
			return r.Message.Model
		}
	}
	return ""
}

func timeSpan(records []core.Record) (first, last time.Time, ok bool) {
	for _, r := range records {
		ts, err := core.ParseTimestamp(r.Timestamp)
		if err != nil {
			continue
		}
		if !ok {
			first, ok = ts, true
		}
		last = ts
	}
	return first, last, ok
}

// truncate shortens text to maxWidth, appending "..." if needed.
// Multi-line text is reduced to the first line.
func truncate(s string, maxWidth int) string {
	return cut(strings.TrimSpace(firstLine(s)), maxWidth)
}

func cut(s string, maxWidth int) string {
	if maxWidth < 4 {
		maxWidth = 4
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%s %ss", formatNumber(n), noun)
}

func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 3:04:05 PM")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return formatNumber(n/1000) + "," + fmt.Sprintf("%03d", n%1000)
}

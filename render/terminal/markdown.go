package terminal

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown lays out markdown as styled terminal lines no wider than
// width. Fenced code is syntax highlighted and never wrapped.
func renderMarkdown(src string, width int) []string {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	m := mdWriter{source: source}
	m.blocks(doc, width)
	return m.lines
}

type mdWriter struct {
	source []byte
	lines  []string
}

func (m *mdWriter) blocks(parent ast.Node, width int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if n.PreviousSibling() != nil && n.Kind() != ast.KindListItem {
			m.lines = append(m.lines, "")
		}
		m.block(n, width)
	}
}

func (m *mdWriter) block(n ast.Node, width int) {
	switch n := n.(type) {
	case *ast.Heading:
		m.wrap(styleHeading.Render(strings.Repeat("#", n.Level)+" "+m.inline(n)), width)
	case *ast.Paragraph, *ast.TextBlock:
		m.wrap(m.inline(n), width)
	case *ast.FencedCodeBlock:
		m.code(m.raw(n), string(n.Language(m.source)))
	case *ast.CodeBlock:
		m.code(m.raw(n), "")
	case *ast.HTMLBlock:
		m.lines = append(m.lines, strings.Split(strings.TrimRight(m.raw(n), "\n"), "\n")...)
	case *ast.ThematicBreak:
		m.lines = append(m.lines, styleSeparator.Render(strings.Repeat("─", min(width, 40))))
	case *ast.Blockquote:
		m.nested(n, width, "│ ", "│ ")
	case *ast.List:
		i := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "• "
			if n.IsOrdered() {
				marker = fmt.Sprintf("%d. ", i)
				i++
			}
			m.nested(item, width, marker, strings.Repeat(" ", len(marker)))
		}
	case *east.Table:
		m.table(n)
	default:
		m.blocks(n, width)
	}
}

// nested renders n's children into their own lines and prefixes them.
func (m *mdWriter) nested(n ast.Node, width int, first, rest string) {
	inner := mdWriter{source: m.source}
	inner.blocks(n, max(width-ansi.StringWidth(first), 10))
	for i, l := range inner.lines {
		if i == 0 {
			m.lines = append(m.lines, first+l)
		} else {
			m.lines = append(m.lines, rest+l)
		}
	}
}

func (m *mdWriter) table(t *east.Table) {
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, m.inline(cell))
		}
		line := strings.Join(cells, styleSeparator.Render(" │ "))
		if _, ok := row.(*east.TableHeader); ok {
			line = styleBold.Render(ansi.Strip(line))
		}
		m.lines = append(m.lines, line)
	}
}

func (m *mdWriter) wrap(s string, width int) {
	m.lines = append(m.lines, strings.Split(ansi.Wordwrap(s, width, ""), "\n")...)
}

func (m *mdWriter) code(src, lang string) {
	src = strings.TrimRight(src, "\n")
	var b strings.Builder
	if err := quick.Highlight(&b, src, lang, "terminal256", "monokai"); err != nil {
		b.Reset()
		b.WriteString(src)
	}
	for _, l := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		m.lines = append(m.lines, "  "+l)
	}
}

// raw returns the verbatim lines of a block node.
func (m *mdWriter) raw(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(m.source))
	}
	return b.String()
}

// inline flattens inline children into one styled string.
func (m *mdWriter) inline(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(m.source))
			switch {
			case c.HardLineBreak():
				b.WriteByte('\n')
			case c.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.CodeSpan:
			b.WriteString(styleCode.Render(ansi.Strip(m.inline(c))))
		case *ast.Emphasis:
			if c.Level >= 2 {
				b.WriteString(styleBold.Render(m.inline(c)))
			} else {
				b.WriteString(styleItalic.Render(m.inline(c)))
			}
		case *ast.Link:
			b.WriteString(styleLink.Render(m.inline(c)))
		case *ast.AutoLink:
			b.WriteString(styleLink.Render(string(c.URL(m.source))))
		case *ast.Image:
			b.WriteString("[image: " + m.inline(c) + "]")
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				b.Write(seg.Value(m.source))
			}
		case *east.TaskCheckBox:
			if c.IsChecked {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
		default:
			b.WriteString(m.inline(c))
		}
	}
	return b.String()
}

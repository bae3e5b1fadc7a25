package redact

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/sonnes/sessionview/core"
)

// Redactor replaces sensitive substrings in every string a record carries:
// text, thinking, tool inputs and results, and raw payloads such as
// toolUseResult or an image block.
// It implements core.Transformer.
type Redactor struct {
	rules     []Rule
	allowlist []*regexp.Regexp
}

// New returns a Redactor applying rules. Values matching an allowlist
// pattern are left untouched.
func New(rules []Rule, allowlist ...string) (*Redactor, error) {
	r := &Redactor{rules: rules}
	for _, pattern := range allowlist {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("allowlist pattern %q: %w", pattern, err)
		}
		r.allowlist = append(r.allowlist, re)
	}
	return r, nil
}

// Transform redacts records in place.
func (r *Redactor) Transform(records []core.Record) error {
	if len(r.rules) == 0 {
		return nil
	}
	for i := range records {
		rec := &records[i]
		if rec.Message != nil {
			for j := range rec.Message.Content {
				if err := r.redactBlock(&rec.Message.Content[j]); err != nil {
					return fmt.Errorf("record %s: block %d: %w", rec.UUID, j, err)
				}
			}
		}
		if len(rec.ToolUseResult) > 0 {
			raw, err := walkRaw(rec.ToolUseResult, r.redactString)
			if err != nil {
				return fmt.Errorf("record %s: toolUseResult: %w", rec.UUID, err)
			}
			rec.ToolUseResult = raw
		}
	}
	return nil
}

func (r *Redactor) redactBlock(b *core.ContentBlock) error {
	switch b.Type {
	case core.BlockText:
		b.Text = r.redactString(b.Text)
	case core.BlockThinking:
		b.Thinking = r.redactString(b.Thinking)
	case core.BlockToolUse:
		b.Input = walkAny(b.Input, r.redactString)
	case core.BlockToolResult:
		b.Content = walkAny(b.Content, r.redactString)
	default:
		b.Text = r.redactString(b.Text)
		raw, err := walkRaw(b.Raw, r.redactString)
		if err != nil {
			return err
		}
		b.Raw = raw
	}
	return nil
}

// redactString applies every rule to s. Overlapping matches resolve to the
// earliest start, then the longest match.
func (r *Redactor) redactString(s string) string {
	if s == "" {
		return s
	}

	type span struct {
		start, end int
		text       string
	}
	var spans []span
	for _, rule := range r.rules {
		for _, m := range rule.Detect(s) {
			if r.allowed(m.Value) {
				continue
			}
			spans = append(spans, span{m.Start, m.End, rule.Replacement(m)})
		}
	}
	if len(spans) == 0 {
		return s
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	out := make([]byte, 0, len(s))
	pos := 0
	for _, sp := range spans {
		if sp.start < pos {
			continue
		}
		out = append(out, s[pos:sp.start]...)
		out = append(out, sp.text...)
		pos = sp.end
	}
	out = append(out, s[pos:]...)
	return string(out)
}

func (r *Redactor) allowed(value string) bool {
	for _, re := range r.allowlist {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

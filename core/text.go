package core

import (
	"regexp"
	"strings"
)

var (
	slashNameRE = regexp.MustCompile(`<command-name>(/[^<]+)</command-name>`)
	slashArgsRE = regexp.MustCompile(`<command-args>([^<]*)</command-args>`)
	openTagRE   = regexp.MustCompile(`<([a-zA-Z_][a-zA-Z0-9_-]*)[^>]*>`)
)

// StripInjected removes markup the client injects into user turns (IDE
// context, system reminders) and shortens slash command invocations to
// "/name args".
func StripInjected(s string) string {
	if m := slashNameRE.FindStringSubmatch(s); m != nil {
		if a := slashArgsRE.FindStringSubmatch(s); a != nil {
			if args := strings.TrimSpace(a[1]); args != "" {
				return m[1] + " " + args
			}
		}
		return m[1]
	}

	// Go regexp has no backreferences, so each element is matched by hand.
	for loc := openTagRE.FindStringSubmatchIndex(s); loc != nil; loc = openTagRE.FindStringSubmatchIndex(s) {
		closing := "</" + s[loc[2]:loc[3]] + ">"
		end := loc[1]
		if i := strings.Index(s[loc[1]:], closing); i >= 0 {
			end = loc[1] + i + len(closing)
		}
		s = s[:loc[0]] + s[end:]
	}
	return strings.TrimSpace(s)
}

// Title derives a display title from the first human-authored user text in
// records, truncated to maxLen on a word boundary. It returns "" when no
// such text exists.
func Title(records []Record, maxLen int) string {
	for _, r := range records {
		if r.Type != TypeUser {
			continue
		}
		for _, b := range r.Blocks() {
			if b.Type != BlockText {
				continue
			}
			if text := StripInjected(b.Text); text != "" {
				return Truncate(text, maxLen)
			}
		}
	}
	return ""
}

// Truncate shortens s to at most maxLen bytes, cutting at the last space when
// possible and appending "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if i := strings.LastIndex(s[:maxLen], " "); i > 0 {
		return s[:i] + "..."
	}
	return s[:maxLen] + "..."
}

// ToolResultText flattens tool_result content, which is either a string or a
// list of {"type":"text","text":...} parts, into plain text.
func ToolResultText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		var parts []string
		for _, item := range c {
			if m, ok := item.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// CountLines returns the number of lines in s. An empty string has 0 lines;
// a trailing newline does not start a new line.
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n") + 1
	if strings.HasSuffix(s, "\n") {
		n--
	}
	return n
}

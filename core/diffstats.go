package core

import "strings"

// DiffStats summarizes file edits made through Write and Edit tool calls.
type DiffStats struct {
	Added   int `json:"added,omitempty"`   // lines added (Write content + Edit new_string)
	Removed int `json:"removed,omitempty"` // lines removed (Edit old_string)
	Changed int `json:"changed,omitempty"` // unique files touched
}

// ComputeDiffStats walks the tool_use blocks of records. It returns nil when
// no edits were made. Run it before compaction, which rewrites tool inputs.
func ComputeDiffStats(records []Record) *DiffStats {
	files := make(map[string]struct{})
	var stats DiffStats

	for _, r := range records {
		for _, b := range r.Blocks() {
			if b.Type != BlockToolUse {
				continue
			}
			input, ok := b.Input.(map[string]any)
			if !ok {
				continue
			}
			var touched bool
			switch strings.ToLower(b.Name) {
			case "write":
				stats.Added += CountLines(StringField(input, "content"))
				touched = true
			case "edit":
				stats.Removed += CountLines(StringField(input, "old_string"))
				stats.Added += CountLines(StringField(input, "new_string"))
				touched = true
			}
			if fp := StringField(input, "file_path"); touched && fp != "" {
				files[fp] = struct{}{}
			}
		}
	}

	stats.Changed = len(files)
	if stats == (DiffStats{}) {
		return nil
	}
	return &stats
}

// StringField returns m[key] when it is a string, else "".
func StringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

package subagent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sonnes/sessionview/core"
)

// DefaultTools are the tool names Claude Code uses to launch a subagent.
var DefaultTools = []string{"Task", "Agent"}

// Matcher reports whether a tool_use block launches a subagent. Which tools
// do is a presentation decision, so callers supply it.
type Matcher func(b core.ContentBlock) bool

// ToolMatcher matches tool_use blocks by exact tool name.
func ToolMatcher(names ...string) Matcher {
	return func(b core.ContentBlock) bool {
		return b.Type == core.BlockToolUse && slices.Contains(names, b.Name)
	}
}

// Spawn ties a tool call in a parent stream to the subagent stream it
// started. Record and Block locate the tool_use block in the parent records.
type Spawn struct {
	ToolUseID    string
	AgentID      string
	Description  string
	SubagentType string // the kind requested in the tool input
	Record       int
	Block        int
}

var agentIDLineRE = regexp.MustCompile(`agentId:\s*([A-Za-z0-9_-]+)`)

// Spawns lists the subagents launched in records, in stream order. The agent
// id of a matched tool_use comes from, in order: the tool input's agentId or
// agent_id field; the toolUseResult.agentId of the record carrying its
// tool_result; an "agentId: <id>" line in the tool_result text. Tool calls
// whose agent id cannot be determined yet are left out.
func Spawns(records []core.Record, match Matcher) []Spawn {
	type result struct {
		record int
		block  core.ContentBlock
	}
	results := make(map[string]result)
	for i, r := range records {
		for _, b := range r.Blocks() {
			if b.Type == core.BlockToolResult {
				results[b.ToolUseID] = result{record: i, block: b}
			}
		}
	}

	var spawns []Spawn
	for i, r := range records {
		for j, b := range r.Blocks() {
			if b.Type != core.BlockToolUse || !match(b) {
				continue
			}
			input, _ := b.Input.(map[string]any)
			sp := Spawn{
				ToolUseID:    b.ID,
				Description:  core.StringField(input, "description"),
				SubagentType: core.StringField(input, "subagent_type"),
				Record:       i,
				Block:        j,
			}
			sp.AgentID = firstNonEmpty(core.StringField(input, "agentId"), core.StringField(input, "agent_id"))
			if res, ok := results[b.ID]; ok && sp.AgentID == "" {
				sp.AgentID = firstNonEmpty(
					toolUseResultAgentID(records[res.record].ToolUseResult),
					AgentIDFromText(core.ToolResultText(res.block.Content)),
				)
			}
			if sp.AgentID != "" {
				spawns = append(spawns, sp)
			}
		}
	}
	return spawns
}

func toolUseResultAgentID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v struct {
		AgentID string `json:"agentId"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.AgentID
}

// AgentIDFromText returns the id of an "agentId: <id>" line in a tool
// result, or "".
func AgentIDFromText(s string) string {
	if m := agentIDLineRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ErrCycle is returned when a subagent would become a descendant of itself.
var ErrCycle = errors.New("subagent cycle")

// Path is the chain of agent ids from a session down to a subagent. The
// session itself is the empty path.
type Path []string

// Child extends p with agentID. It fails with ErrCycle when agentID already
// occurs in p, so a subagent can never contain one of its ancestors.
func (p Path) Child(agentID string) (Path, error) {
	if slices.Contains(p, agentID) {
		return nil, fmt.Errorf("%w: %s is an ancestor in %s", ErrCycle, agentID, p)
	}
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, agentID), nil
}

// Leaf returns the innermost agent id, or "" for the session root.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// String joins the ids with "/", suitable as a map key.
func (p Path) String() string {
	return strings.Join(p, "/")
}

// Package core defines the transcript data model shared by the parser, the
// stores, the resolvers, and the renderers: sessions, records, content
// blocks, and subagent invocations.
package core

import "encoding/json"

// Session is one entry in the session catalog. It is derived from a storage
// object on every listing and never persisted.
type Session struct {
	ID           string `json:"id"`
	LastModified string `json:"lastModified"` // ISO-8601, UTC, millisecond precision
}

// Record is a single event in a transcript, one JSONL line on disk. Records
// keep stream order; Timestamp is informational and never used for sorting.
type Record struct {
	Type          string          `json:"type,omitempty"` // "user", "assistant", anything else is agent-authored
	UUID          string          `json:"uuid,omitempty"`
	ParentUUID    string          `json:"parentUuid,omitempty"`
	SessionID     string          `json:"sessionId,omitempty"`
	AgentID       string          `json:"agentId,omitempty"`
	IsSidechain   bool            `json:"isSidechain,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Message       *Message        `json:"message,omitempty"`
	ToolUseResult json.RawMessage `json:"toolUseResult,omitempty"`
}

// Message is the conversational payload of a record.
type Message struct {
	Role    string         `json:"role"`
	Model   string         `json:"model,omitempty"`
	Content []ContentBlock `json:"content"`
}

// Record types with a fixed meaning.
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

// IsTurn reports whether the record is an ordinary user or assistant turn.
func (r Record) IsTurn() bool {
	return r.Type == TypeUser || r.Type == TypeAssistant
}

// Blocks returns the record's content blocks, or nil when it has no message.
func (r Record) Blocks() []ContentBlock {
	if r.Message == nil {
		return nil
	}
	return r.Message.Content
}

// ContentBlock is one piece of a message. The Type field determines which
// other fields are populated.
type ContentBlock struct {
	Type      BlockType `json:"type"`
	Text      string    `json:"text,omitempty"`        // set for "text"
	Thinking  string    `json:"thinking,omitempty"`    // set for "thinking"
	ID        string    `json:"id,omitempty"`          // set for "tool_use"
	Name      string    `json:"name,omitempty"`        // tool name, set for "tool_use"
	Input     any       `json:"input,omitempty"`       // tool input params, set for "tool_use"
	ToolUseID string    `json:"tool_use_id,omitempty"` // set for "tool_result"
	Content   any       `json:"content,omitempty"`     // string or structured, set for "tool_result"
	IsError   bool      `json:"is_error,omitempty"`    // set for "tool_result"

	// Raw is the undecoded block for kinds without a typed mapping (images,
	// documents). It is what the block encodes back to.
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON writes Raw verbatim when it is set.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	type plain ContentBlock
	return json.Marshal(plain(b))
}

// UnmarshalJSON keeps the raw form of blocks whose kind is not known.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type plain ContentBlock
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = ContentBlock(p)
	if !b.Type.Known() {
		b.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// BlockType enumerates content block kinds.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Known reports whether t has a typed mapping in ContentBlock.
func (t BlockType) Known() bool {
	switch t {
	case BlockText, BlockThinking, BlockToolUse, BlockToolResult:
		return true
	}
	return false
}

// Transcript is the parsed record stream of a top-level session.
type Transcript struct {
	SessionID string      `json:"sessionId"`
	Records   []Record    `json:"records"`
	Errors    []LineError `json:"errors,omitempty"`
}

// SubagentResponse is the structured payload the transcript store returns for
// one subagent. A nil Records slice means the field was absent or null.
type SubagentResponse struct {
	AgentID string      `json:"agentId"`
	Records []Record    `json:"records"`
	Errors  []LineError `json:"errors,omitempty"`
}

// SubagentInvocation is a resolved subagent: its own record stream plus the
// kind it declared. Children are not embedded; they are referenced from the
// records by agent id and fetched separately.
type SubagentInvocation struct {
	AgentID string      `json:"agentId"`
	Type    string      `json:"type,omitempty"` // empty when the stream declares no kind
	Records []Record    `json:"records"`
	Errors  []LineError `json:"errors,omitempty"`
}

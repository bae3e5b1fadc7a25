package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sonnes/sessionview/core"
)

// Raw JSON deserialization types. These mirror the JSONL structure written
// by Claude Code.

type rawEntry struct {
	Type          string          `json:"type"`
	UUID          string          `json:"uuid"`
	ParentUUID    *string         `json:"parentUuid"`
	SessionID     string          `json:"sessionId"`
	AgentID       string          `json:"agentId"`
	IsSidechain   bool            `json:"isSidechain"`
	Timestamp     string          `json:"timestamp"`
	Message       *rawMessage     `json:"message"`
	ToolUseResult json.RawMessage `json:"toolUseResult"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type rawContentBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Thinking  string `json:"thinking"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Input     any    `json:"input"`
	ToolUseID string `json:"tool_use_id"`
	Content   any    `json:"content"`
	IsError   bool   `json:"is_error"`
}

var errNotObject = errors.New("record is not a JSON object")

// decodeRecord validates and maps one JSONL line.
func decodeRecord(line []byte) (core.Record, error) {
	if line[0] != '{' {
		return core.Record{}, errNotObject
	}
	var entry rawEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		Type:        entry.Type,
		UUID:        entry.UUID,
		SessionID:   entry.SessionID,
		AgentID:     entry.AgentID,
		IsSidechain: entry.IsSidechain,
		Timestamp:   entry.Timestamp,
	}
	if entry.ParentUUID != nil {
		rec.ParentUUID = *entry.ParentUUID
	}
	if !isNull(entry.ToolUseResult) {
		rec.ToolUseResult = entry.ToolUseResult
	}
	if entry.Message != nil {
		blocks, err := mapContent(entry.Message.Content)
		if err != nil {
			return core.Record{}, fmt.Errorf("message content: %w", err)
		}
		rec.Message = &core.Message{
			Role:    entry.Message.Role,
			Model:   entry.Message.Model,
			Content: blocks,
		}
	}
	return rec, nil
}

// mapContent decodes message content, which is either a bare string (plain
// user prompts) or an array of typed blocks.
func mapContent(raw json.RawMessage) ([]core.ContentBlock, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return []core.ContentBlock{}, nil
	}

	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return []core.ContentBlock{{Type: core.BlockText, Text: text}}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		blocks := make([]core.ContentBlock, 0, len(items))
		for i, item := range items {
			b, err := mapContentBlock(item)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			blocks = append(blocks, b)
		}
		return blocks, nil
	default:
		return nil, errors.New("must be a string or an array of blocks")
	}
}

func mapContentBlock(raw json.RawMessage) (core.ContentBlock, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return core.ContentBlock{}, errors.New("block is not a JSON object")
	}
	var b rawContentBlock
	if err := json.Unmarshal(raw, &b); err != nil {
		return core.ContentBlock{}, err
	}

	switch core.BlockType(b.Type) {
	case "":
		return core.ContentBlock{}, errors.New("block has no type")
	case core.BlockText:
		return core.ContentBlock{Type: core.BlockText, Text: b.Text}, nil
	case core.BlockThinking:
		return core.ContentBlock{Type: core.BlockThinking, Thinking: b.Thinking}, nil
	case core.BlockToolUse:
		if b.ID == "" || b.Name == "" {
			return core.ContentBlock{}, errors.New("tool_use requires id and name")
		}
		return core.ContentBlock{
			Type:  core.BlockToolUse,
			ID:    b.ID,
			Name:  b.Name,
			Input: b.Input,
		}, nil
	case core.BlockToolResult:
		if b.ToolUseID == "" {
			return core.ContentBlock{}, errors.New("tool_result requires tool_use_id")
		}
		return core.ContentBlock{
			Type:      core.BlockToolResult,
			ToolUseID: b.ToolUseID,
			Content:   b.Content,
			IsError:   b.IsError,
		}, nil
	default:
		// Images, documents and future kinds are carried through untouched.
		return core.ContentBlock{
			Type: core.BlockType(b.Type),
			Text: b.Text,
			Raw:  append(json.RawMessage(nil), raw...),
		}, nil
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

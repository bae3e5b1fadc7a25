// Package transcript retrieves session and subagent logs from an object store
// and turns them into typed records.
//
// Keys are laid out under a namespace root the way Claude Code writes them:
//
//	<root><sessionID>.jsonl
//	<root><sessionID>/subagents/agent-<agentID>.jsonl
package transcript

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/reader"
	"github.com/sonnes/sessionview/store"
)

// Extension is the reserved suffix of session logs.
const Extension = ".jsonl"

// Store reads transcripts through an object store.
type Store struct {
	objects      store.Store
	prefix       string
	transformers []core.Transformer
}

// Option configures a Store.
type Option func(*Store)

// WithTransformers applies ts, in order, to every record stream the Store
// returns.
func WithTransformers(ts ...core.Transformer) Option {
	return func(s *Store) { s.transformers = append(s.transformers, ts...) }
}

// New returns a Store reading keys below prefix.
func New(objects store.Store, prefix string, opts ...Option) *Store {
	s := &Store{objects: objects, prefix: NormalizePrefix(prefix)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizePrefix makes a non-empty namespace root end in "/".
func NormalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// SessionKey returns the object key of a session log.
func SessionKey(prefix, sessionID string) string {
	return NormalizePrefix(prefix) + sessionID + Extension
}

// SubagentKey returns the object key of a subagent log.
func SubagentKey(prefix, sessionID, agentID string) string {
	return NormalizePrefix(prefix) + sessionID + "/subagents/agent-" + agentID + Extension
}

// ValidID reports whether id can be used as a single path segment of a key.
// Dots inside an id are fine; only the segments "." and ".." are refused.
func ValidID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// SessionRecords returns the raw log of a session.
func (s *Store) SessionRecords(ctx context.Context, sessionID string) ([]byte, error) {
	if !ValidID(sessionID) {
		return nil, fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound)
	}
	data, err := s.objects.Get(ctx, SessionKey(s.prefix, sessionID))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return data, nil
}

// Transcript returns the parsed records of a session.
func (s *Store) Transcript(ctx context.Context, sessionID string) (*core.Transcript, error) {
	data, err := s.SessionRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	res, err := reader.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := core.Chain(res.Records, s.transformers...); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return &core.Transcript{SessionID: sessionID, Records: res.Records, Errors: res.Errors}, nil
}

// SubagentRecords returns the parsed records of one subagent of a session.
func (s *Store) SubagentRecords(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error) {
	if !ValidID(sessionID) || !ValidID(agentID) {
		return nil, fmt.Errorf("subagent %q of session %q: %w", agentID, sessionID, core.ErrNotFound)
	}
	data, err := s.objects.Get(ctx, SubagentKey(s.prefix, sessionID, agentID))
	if err != nil {
		return nil, fmt.Errorf("subagent %s of session %s: %w", agentID, sessionID, err)
	}
	res, err := reader.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("subagent %s of session %s: %w", agentID, sessionID, err)
	}
	if err := core.Chain(res.Records, s.transformers...); err != nil {
		return nil, fmt.Errorf("subagent %s of session %s: %w", agentID, sessionID, err)
	}
	return &core.SubagentResponse{AgentID: agentID, Records: res.Records, Errors: res.Errors}, nil
}

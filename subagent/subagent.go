// Package subagent resolves subagent invocations referenced from a
// transcript. Subagents are fetched one level at a time; callers walk deeper
// by calling Fetch again for the spawns found in a fetched stream.
package subagent

import (
	"context"
	"fmt"

	"github.com/sonnes/sessionview/core"
)

// Source returns the raw record stream of one subagent.
type Source interface {
	SubagentRecords(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error)
}

// Resolver turns subagent responses into validated invocations.
type Resolver struct {
	src Source
}

// New returns a Resolver reading from src.
func New(src Source) *Resolver {
	return &Resolver{src: src}
}

// Fetch retrieves and validates the stream of agentID within sessionID. A
// response without an agent id or without records fails with
// core.ErrMalformedResponse; it is never coerced into an empty invocation.
func (r *Resolver) Fetch(ctx context.Context, sessionID, agentID string) (*core.SubagentInvocation, error) {
	resp, err := r.src.SubagentRecords(ctx, sessionID, agentID)
	if err != nil {
		return nil, err
	}
	if err := validate(resp, agentID); err != nil {
		return nil, fmt.Errorf("subagent %s of session %s: %w", agentID, sessionID, err)
	}
	return &core.SubagentInvocation{
		AgentID: resp.AgentID,
		Type:    DeclaredType(resp.Records),
		Records: resp.Records,
		Errors:  resp.Errors,
	}, nil
}

func validate(resp *core.SubagentResponse, agentID string) error {
	switch {
	case resp == nil:
		return fmt.Errorf("%w: empty response", core.ErrMalformedResponse)
	case resp.AgentID == "":
		return fmt.Errorf("%w: missing agentId", core.ErrMalformedResponse)
	case resp.Records == nil:
		return fmt.Errorf("%w: missing records", core.ErrMalformedResponse)
	case resp.AgentID != agentID:
		return fmt.Errorf("%w: agentId %q does not match request", core.ErrMalformedResponse, resp.AgentID)
	}
	return nil
}

// DeclaredType returns the kind a subagent stream declares: the type of its
// first record, unless that is empty, "user" or "assistant". An empty stream
// declares nothing.
func DeclaredType(records []core.Record) string {
	if len(records) == 0 {
		return ""
	}
	switch t := records[0].Type; t {
	case core.TypeUser, core.TypeAssistant:
		return ""
	default:
		return t
	}
}

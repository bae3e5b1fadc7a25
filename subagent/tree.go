package subagent

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/core"
)

// Node is one expanded subagent. Err is set when the subagent could not be
// fetched or would repeat an ancestor; its siblings are still expanded.
type Node struct {
	Path     Path
	Spawn    Spawn
	Subagent *core.SubagentInvocation
	Err      error
	Children []*Node
}

// Expand fetches the subagents spawned in records, and theirs, down to
// depth levels. A depth of zero or less expands nothing. Failures are
// recorded on the node and do not stop the walk; only a done ctx does.
func (r *Resolver) Expand(ctx context.Context, sessionID string, records []core.Record, match Matcher, depth int) ([]*Node, error) {
	return r.expand(ctx, sessionID, nil, records, match, depth)
}

func (r *Resolver) expand(ctx context.Context, sessionID string, parent Path, records []core.Record, match Matcher, depth int) ([]*Node, error) {
	if depth <= 0 {
		return nil, nil
	}
	var nodes []*Node
	for _, sp := range Spawns(records, match) {
		if err := ctx.Err(); err != nil {
			return nodes, err
		}
		n := &Node{Spawn: sp}
		nodes = append(nodes, n)

		path, err := parent.Child(sp.AgentID)
		if err != nil {
			n.Path, n.Err = append(append(Path{}, parent...), sp.AgentID), err
			continue
		}
		n.Path = path

		inv, err := r.Fetch(ctx, sessionID, sp.AgentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nodes, ctxErr
			}
			log.Debug("subagent unavailable", "session_id", sessionID, "path", path.String(), "error", err)
			n.Err = err
			continue
		}
		n.Subagent = inv

		n.Children, err = r.expand(ctx, sessionID, path, inv.Records, match, depth-1)
		if err != nil {
			return nodes, err
		}
	}
	return nodes, nil
}

// Index maps each node's path string to the node, across the whole tree.
func Index(nodes []*Node) map[string]*Node {
	idx := make(map[string]*Node)
	var walk func([]*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			idx[n.Path.String()] = n
			walk(n.Children)
		}
	}
	walk(nodes)
	return idx
}

package subagent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sonnes/sessionview/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawn(toolUseID, agentID string) core.Record {
	return assistant(core.ContentBlock{Type: core.BlockToolUse, ID: toolUseID, Name: "Task", Input: map[string]any{"agentId": agentID}})
}

// streams serves fixed subagent streams and counts fetches per agent.
type streams struct {
	records map[string][]core.Record
	fail    map[string]error
	fetched map[string]int
}

func (s *streams) SubagentRecords(_ context.Context, _, agentID string) (*core.SubagentResponse, error) {
	if s.fetched == nil {
		s.fetched = make(map[string]int)
	}
	s.fetched[agentID]++
	if err := s.fail[agentID]; err != nil {
		return nil, err
	}
	recs, ok := s.records[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, core.ErrNotFound)
	}
	return &core.SubagentResponse{AgentID: agentID, Records: recs}, nil
}

func TestExpand(t *testing.T) {
	src := &streams{
		records: map[string][]core.Record{
			"a": {{Type: "Explore"}, spawn("ta1", "a1")},
			"a1": {{Type: "Plan"}},
			"b":  {{Type: core.TypeAssistant}},
		},
		fail: map[string]error{"c": &core.StoreError{Op: "get", Err: errors.New("timeout")}},
	}
	root := []core.Record{spawn("t1", "a"), spawn("t2", "b"), spawn("t3", "c")}
	match := ToolMatcher(DefaultTools...)

	t.Run("depth two", func(t *testing.T) {
		nodes, err := New(src).Expand(context.Background(), "s1", root, match, 2)
		require.NoError(t, err)
		require.Len(t, nodes, 3)

		assert.Equal(t, Path{"a"}, nodes[0].Path)
		assert.Equal(t, "Explore", nodes[0].Subagent.Type)
		require.Len(t, nodes[0].Children, 1)
		assert.Equal(t, Path{"a", "a1"}, nodes[0].Children[0].Path)
		assert.Equal(t, "Plan", nodes[0].Children[0].Subagent.Type)

		assert.Equal(t, "", nodes[1].Subagent.Type, "an assistant-first stream declares no type")
		assert.Empty(t, nodes[1].Children)

		assert.Nil(t, nodes[2].Subagent)
		assert.ErrorIs(t, nodes[2].Err, core.ErrStoreUnavailable)
	})

	t.Run("depth one", func(t *testing.T) {
		nodes, err := New(src).Expand(context.Background(), "s1", root, match, 1)
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Empty(t, nodes[0].Children)
	})

	t.Run("depth zero", func(t *testing.T) {
		nodes, err := New(src).Expand(context.Background(), "s1", root, match, 0)
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})

	t.Run("index", func(t *testing.T) {
		nodes, err := New(src).Expand(context.Background(), "s1", root, match, 2)
		require.NoError(t, err)
		idx := Index(nodes)
		assert.Len(t, idx, 4)
		assert.Equal(t, "Plan", idx["a/a1"].Subagent.Type)
	})
}

func TestExpandStopsAtCycle(t *testing.T) {
	src := &streams{records: map[string][]core.Record{
		"a": {spawn("t2", "b")},
		"b": {spawn("t3", "a")},
	}}

	nodes, err := New(src).Expand(context.Background(), "s1", []core.Record{spawn("t1", "a")}, ToolMatcher(DefaultTools...), 10)
	require.NoError(t, err)

	b := nodes[0].Children[0]
	require.Len(t, b.Children, 1)
	cyc := b.Children[0]
	assert.ErrorIs(t, cyc.Err, ErrCycle)
	assert.Nil(t, cyc.Subagent)
	assert.Equal(t, Path{"a", "b", "a"}, cyc.Path)
	assert.Equal(t, 1, src.fetched["a"], "an ancestor is never refetched as a child")
}

func TestExpandCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := sourceFunc(func(context.Context, string, string) (*core.SubagentResponse, error) {
		cancel()
		return nil, fmt.Errorf("get: %w", context.Canceled)
	})
	root := []core.Record{spawn("t1", "a"), spawn("t2", "b")}

	nodes, err := New(src).Expand(ctx, "s1", root, ToolMatcher(DefaultTools...), 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, nodes, 1)
}

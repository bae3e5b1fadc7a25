package subagent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sonnes/sessionview/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error)

func (f sourceFunc) SubagentRecords(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error) {
	return f(ctx, sessionID, agentID)
}

func respond(resp *core.SubagentResponse) Source {
	return sourceFunc(func(context.Context, string, string) (*core.SubagentResponse, error) {
		return resp, nil
	})
}

func TestFetchDeclaredType(t *testing.T) {
	tests := []struct {
		name     string
		records  []core.Record
		wantType string
	}{
		{"declared kind", []core.Record{{Type: "Explore"}, {Type: "assistant"}}, "Explore"},
		{"assistant first", []core.Record{{Type: "assistant"}}, ""},
		{"user first", []core.Record{{Type: "user"}, {Type: "Plan"}}, ""},
		{"empty stream", []core.Record{}, ""},
		{"first record untyped", []core.Record{{}, {Type: "Explore"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(respond(&core.SubagentResponse{AgentID: "x", Records: tt.records}))
			inv, err := r.Fetch(context.Background(), "s1", "x")
			require.NoError(t, err)
			assert.Equal(t, "x", inv.AgentID)
			assert.Equal(t, tt.wantType, inv.Type)
			assert.Equal(t, tt.records, inv.Records)
		})
	}
}

func TestFetchMalformed(t *testing.T) {
	tests := []struct {
		name string
		resp *core.SubagentResponse
	}{
		{"nil response", nil},
		{"missing agentId", &core.SubagentResponse{Records: []core.Record{{Type: "Explore"}}}},
		{"missing records", &core.SubagentResponse{AgentID: "x"}},
		{"missing both", &core.SubagentResponse{}},
		{"different agent", &core.SubagentResponse{AgentID: "y", Records: []core.Record{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := New(respond(tt.resp)).Fetch(context.Background(), "s1", "x")
			assert.ErrorIs(t, err, core.ErrMalformedResponse)
			assert.Nil(t, inv, "never a partially populated success")
		})
	}
}

func TestFetchMalformedFromJSON(t *testing.T) {
	for _, body := range []string{`{"agentId":"x"}`, `{"agentId":"x","records":null}`, `{"records":[]}`} {
		var resp core.SubagentResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))

		_, err := New(respond(&resp)).Fetch(context.Background(), "s1", "x")
		assert.ErrorIs(t, err, core.ErrMalformedResponse, body)
	}
}

func TestFetchPassesSourceErrors(t *testing.T) {
	cause := &core.StoreError{Op: "get", Key: "k", Err: errors.New("503")}
	r := New(sourceFunc(func(_ context.Context, sessionID, agentID string) (*core.SubagentResponse, error) {
		assert.Equal(t, "s1", sessionID)
		assert.Equal(t, "x", agentID)
		return nil, cause
	}))

	_, err := r.Fetch(context.Background(), "s1", "x")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Same(t, cause, err, "store error returned unchanged")
}

func TestDeclaredTypeEmpty(t *testing.T) {
	assert.Equal(t, "", DeclaredType(nil))
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/sonnes/sessionview/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	var m Memory
	ctx := context.Background()

	objs, err := m.List(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)

	mod := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m.Put("b.jsonl", []byte("b"), mod)
	m.Put("a.jsonl", []byte("a"), time.Time{})
	m.Put("x/c.jsonl", []byte("c"), mod)

	objs, err = m.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "a.jsonl", objs[0].Key)
	assert.Nil(t, objs[0].LastModified)
	require.NotNil(t, objs[1].LastModified)
	assert.True(t, mod.Equal(*objs[1].LastModified))

	objs, err = m.List(ctx, "x/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "x/c.jsonl", objs[0].Key)

	data, err := m.Get(ctx, "a.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	_, err = m.Get(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NotErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestMemoryCancelledContext(t *testing.T) {
	var m Memory
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.List(ctx, "")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

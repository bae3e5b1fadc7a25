// Package store defines the object-store boundary the catalog and the
// transcript store read from.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sonnes/sessionview/core"
)

// Object is one listed key. LastModified is nil when the store did not
// report a modification time.
type Object struct {
	Key          string
	LastModified *time.Time
}

// Store is a read-only object store.
//
// List returns every object whose key starts with prefix; an empty namespace
// yields an empty slice, not an error. Get returns the object's bytes, or an
// error matching core.ErrNotFound when the key does not exist. Other
// failures match core.ErrStoreUnavailable.
type Store interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Memory is an in-memory Store. The zero value is empty and ready to use.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data    []byte
	modTime *time.Time
}

// Put stores data under key. A zero modTime is recorded as "not reported".
func (m *Memory) Put(key string, data []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]memObject)
	}
	obj := memObject{data: append([]byte(nil), data...)}
	if !modTime.IsZero() {
		obj.modTime = &modTime
	}
	m.objects[key] = obj
}

// List implements Store. Keys are returned in lexical order.
func (m *Memory) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "list", Key: prefix, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Object{}
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, Object{Key: key, LastModified: obj.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, core.ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

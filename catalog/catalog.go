// Package catalog lists the sessions available in an object store, newest
// first.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/store"
	"github.com/sonnes/sessionview/transcript"
)

// Resolver derives the session catalog from the keys below a namespace root.
type Resolver struct {
	objects store.Store
	prefix  string
}

// New returns a Resolver listing sessions directly below prefix.
func New(objects store.Store, prefix string) *Resolver {
	return &Resolver{objects: objects, prefix: transcript.NormalizePrefix(prefix)}
}

type entry struct {
	session core.Session
	mod     time.Time
}

// ListSessions returns one Session per top-level .jsonl object, sorted by
// LastModified descending with ties broken by ID ascending. Nested objects,
// other extensions and objects without a modification time are skipped. A
// listing failure is returned as is, wrapped with context.
func (r *Resolver) ListSessions(ctx context.Context) ([]core.Session, error) {
	objs, err := r.objects.List(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	seen := make(map[string]bool, len(objs))
	entries := make([]entry, 0, len(objs))
	for _, obj := range objs {
		id, ok := r.sessionID(obj.Key)
		if !ok {
			continue
		}
		if obj.LastModified == nil {
			log.Debug("skipping session without modification time", "key", obj.Key)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		// Sort on the serialized precision so order and output agree.
		mod := obj.LastModified.UTC().Truncate(time.Millisecond)
		entries = append(entries, entry{
			session: core.Session{ID: id, LastModified: core.FormatTimestamp(mod)},
			mod:     mod,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].mod.Equal(entries[j].mod) {
			return entries[i].mod.After(entries[j].mod)
		}
		return entries[i].session.ID < entries[j].session.ID
	})

	sessions := make([]core.Session, len(entries))
	for i, e := range entries {
		sessions[i] = e.session
	}
	return sessions, nil
}

// sessionID strips the namespace root and extension from key. It reports
// false for keys outside the root, nested keys, and non-log keys.
func (r *Resolver) sessionID(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix)
	if !ok || strings.Contains(rest, "/") {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, transcript.Extension)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

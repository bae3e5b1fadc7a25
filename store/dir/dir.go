// Package dir serves a local directory tree, such as a Claude Code project
// directory under ~/.claude/projects, as a read-only object store.
package dir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/store"
)

const debounceInterval = 300 * time.Millisecond

// Store maps slash-separated keys to files below Root.
type Store struct {
	root string
}

var _ store.Store = (*Store)(nil)

// New returns a Store rooted at root, which must be an existing directory.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("dir store: root is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("dir store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dir store: %s is not a directory", root)
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store reads from.
func (s *Store) Root() string { return s.root }

// List implements store.Store. Directories that cannot contain a key with
// the given prefix are not descended into.
func (s *Store) List(ctx context.Context, prefix string) ([]store.Object, error) {
	out := []store.Object{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)

		if d.IsDir() {
			if key == "." {
				return nil
			}
			dirKey := key + "/"
			if !strings.HasPrefix(dirKey, prefix) && !strings.HasPrefix(prefix, dirKey) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mod := info.ModTime()
		out = append(out, store.Object{Key: key, LastModified: &mod})
		return nil
	})
	if err != nil {
		return nil, &core.StoreError{Op: "list", Key: prefix, Err: err}
	}
	return out, nil
}

// Get implements store.Store. Keys that escape the root are reported as not
// found.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return nil, fmt.Errorf("get %q: %w", key, core.ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get %q: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// Watch calls fn whenever a top-level .jsonl file under the root is created,
// written, removed or renamed. Bursts of events are coalesced. Watch blocks
// until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.root, err)
	}
	defer w.Close()
	if err := w.Add(s.root); err != nil {
		return fmt.Errorf("watch %s: %w", s.root, err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".jsonl") || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, fn)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("directory watch error", "dir", s.root, "error", err)
		}
	}
}

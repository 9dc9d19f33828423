// Package filestore implements store.Store as a single JSON document on disk,
// the same shape a desktop app's settings store uses:
//
//	{
//	  "prompts": [...],
//	  "modes": [...],
//	  "currentMode": {...}
//	}
//
// ATOMIC WRITES:
// Every write goes to a temp file in the same directory and is then renamed
// over the original. rename(2) is atomic on one filesystem, so another process
// reading the file sees the old document or the new one, never a torn write.
// That is what makes a multi-key Set atomic here.
//
// WATCHING:
// Several surfaces (separate processes) may share one file. Watch uses
// fsnotify to tell a surface when somebody else changed keys, so an open
// picker can refresh. It is best-effort: events can be coalesced or missed,
// and surfaces still re-read on open.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sakif/snippet-picker/internal/store"
)

var (
	_ store.Store   = (*Store)(nil)
	_ store.Watcher = (*Store)(nil)
)

// Store is a file-backed key-value store.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	seen    map[string]json.RawMessage // last document reported or written; nil until Watch
	pending map[string]struct{}        // external changes folded into a local write, not yet reported
}

// New returns a store backed by path. The file and its directory are created
// on first write.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return doc, nil
	}

	result := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

func (s *Store) Set(_ context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	s.notePending(doc)
	for k, v := range entries {
		doc[k] = v
	}
	return s.save(doc)
}

func (s *Store) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	s.notePending(doc)
	for _, k := range keys {
		delete(doc, k)
	}
	return s.save(doc)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(map[string]json.RawMessage{})
}

// Watch reports keys changed by other writers until ctx is cancelled.
// Writes made through this Store value are not reported.
func (s *Store) Watch(ctx context.Context) (<-chan store.Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filestore: creating watcher: %w", err)
	}

	// Watch the directory, not the file: atomic renames replace the inode,
	// which silently ends a watch on the file itself.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("filestore: creating directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("filestore: watching %s: %w", dir, err)
	}

	// Prime the snapshot so the first external write diffs against
	// something real.
	s.prime()

	changes := make(chan store.Change, 8)
	base := filepath.Base(s.path)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				keys := s.refresh()
				if len(keys) == 0 {
					continue
				}
				select {
				case changes <- store.Change{Keys: keys}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("filestore: watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return changes, nil
}

// prime takes the first snapshot so the first external write diffs against
// something real.
func (s *Store) prime() {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		s.logger.Warn("filestore: initial read failed", slog.String("error", err.Error()))
		doc = map[string]json.RawMessage{}
	}
	s.seen = copyDoc(doc)
}

// refresh re-reads the file and returns the keys that differ from the last
// snapshot plus any pending external keys, sorted. Only refresh and save
// advance the snapshot; plain reads leave it alone so a Get between an
// external write and its event doesn't swallow the change.
func (s *Store) refresh() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	after, err := s.load()
	if err != nil {
		// Half-written by a non-atomic writer; the next event will retry.
		s.logger.Debug("filestore: skipping unreadable change", slog.String("error", err.Error()))
		return nil
	}

	keys := diffKeys(s.seen, after)
	for _, k := range keys {
		delete(s.pending, k)
	}
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.seen = copyDoc(after)
	s.pending = nil
	return keys
}

// notePending records keys another writer changed since the last snapshot.
// A local write is about to fold them into seen, so refresh could no longer
// see them by diffing. Callers hold mu.
func (s *Store) notePending(doc map[string]json.RawMessage) {
	if s.seen == nil {
		return
	}
	for _, k := range diffKeys(s.seen, doc) {
		if s.pending == nil {
			s.pending = map[string]struct{}{}
		}
		s.pending[k] = struct{}{}
	}
}

// load reads the document. A missing file is an empty store. Callers hold mu.
func (s *Store) load() (map[string]json.RawMessage, error) {
	doc := map[string]json.RawMessage{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: reading %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("filestore: decoding %s: %w", s.path, err)
		}
	}

	return doc, nil
}

// save writes the document atomically. Callers hold mu.
func (s *Store) save(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encoding document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("filestore: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("filestore: replacing %s: %w", s.path, err)
	}

	if s.seen != nil {
		s.seen = copyDoc(doc)
	}
	return nil
}

func copyDoc(doc map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// diffKeys returns keys added, removed or changed between two documents.
// Values are compared after compaction so whitespace-only rewrites by other
// tools don't count as changes.
func diffKeys(before, after map[string]json.RawMessage) []string {
	var keys []string
	for k, v := range after {
		old, ok := before[k]
		if !ok || !sameJSON(old, v) {
			keys = append(keys, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

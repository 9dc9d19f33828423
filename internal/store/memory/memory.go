// Package memory implements store.Store in process memory on top of
// patrickmn/go-cache. It backs tests and throwaway sessions (`picker
// --store memory`) where nothing should touch disk.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sakif/snippet-picker/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every key in a go-cache instance with no expiry.
//
// go-cache is safe for concurrent use key by key, but Set must apply several
// keys as one unit, so mu serialises whole operations on top of it.
type Store struct {
	mu    sync.RWMutex
	cache *gocache.Cache
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{cache: gocache.New(gocache.NoExpiration, 0)}
}

func (s *Store) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(keys) == 0 {
		items := s.cache.Items()
		result := make(map[string]json.RawMessage, len(items))
		for k, item := range items {
			result[k] = clone(item.Object.(json.RawMessage))
		}
		return result, nil
	}

	result := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := s.cache.Get(k); ok {
			result[k] = clone(v.(json.RawMessage))
		}
	}
	return result, nil
}

func (s *Store) Set(_ context.Context, entries map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.cache.Set(k, clone(v), gocache.NoExpiration)
	}
	return nil
}

func (s *Store) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		s.cache.Delete(k)
	}
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Flush()
	return nil
}

// clone copies a value so callers can't mutate what is stored.
func clone(v json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}

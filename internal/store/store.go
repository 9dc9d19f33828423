// Package store defines the key-value contract every picker surface persists
// through.
//
// THE CONTRACT:
// The surfaces never share memory. They share a handful of named keys
// ("prompts", "modes", "currentMode", ...) in whatever store the host offers:
// a local file, an embedded SQLite database, a Redis instance. All of those
// are realizations of the same four operations:
//
//	Get(keys...)    → {key: value}   (no keys = every key)
//	Set({key: value})                (all keys of one call land together)
//	Remove(keys...)
//	Clear()
//
// Values are opaque JSON documents. Decoding them into snippets and modes is
// the repository's job, not the store's.
//
// CONSISTENCY MODEL:
// Each Set is atomic on its own, but there is no locking across calls. Two
// surfaces doing read→modify→write at the same time race, and the last write
// wins. For a single-user local tool this is accepted behaviour.
package store

import (
	"context"
	"encoding/json"
)

// Store is the asynchronous key-value adapter shared by all surfaces.
type Store interface {
	// Get returns the stored values for keys. Missing keys are simply absent
	// from the result. Calling Get with no keys returns every key.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set writes all entries atomically: a concurrent reader sees either none
	// or all of them.
	Set(ctx context.Context, entries map[string]json.RawMessage) error

	// Remove deletes keys. Removing a missing key is not an error.
	Remove(ctx context.Context, keys ...string) error

	// Clear deletes every key.
	Clear(ctx context.Context) error
}

// Change describes keys written by someone else. Only stores that can observe
// external writes (see filestore.Watch) produce them, and delivery is
// best-effort: surfaces must still re-read the store when they open.
type Change struct {
	Keys []string
}

// Watcher is implemented by stores that can report external writes. The
// channel closes when ctx ends.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// Package storetest holds the behaviour every store.Store realization must
// share. Each adapter's tests call Run with a constructor for a fresh, empty
// store, so the sqlite, file, memory and redis adapters are held to one
// contract instead of four slightly different ones.
package storetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-picker/internal/store"
)

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key is absent", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(ctx, "prompts")
		require.NoError(t, err)
		_, ok := got["prompts"]
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, map[string]json.RawMessage{
			"prompts": json.RawMessage(`[{"id":"1","name":"a","content":"b"}]`),
			"modes":   json.RawMessage(`[{"id":"default","name":"Default"}]`),
		}))

		got, err := s.Get(ctx, "prompts", "modes")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"1","name":"a","content":"b"}]`, string(got["prompts"]))
		assert.JSONEq(t, `[{"id":"default","name":"Default"}]`, string(got["modes"]))
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, map[string]json.RawMessage{"currentMode": json.RawMessage(`{"id":"a","name":"A"}`)}))
		require.NoError(t, s.Set(ctx, map[string]json.RawMessage{"currentMode": json.RawMessage(`{"id":"b","name":"B"}`)}))

		got, err := s.Get(ctx, "currentMode")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"b","name":"B"}`, string(got["currentMode"]))
	})

	t.Run("get with no keys returns everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, map[string]json.RawMessage{
			"a": json.RawMessage(`1`),
			"b": json.RawMessage(`2`),
		}))

		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, map[string]json.RawMessage{
			"a": json.RawMessage(`1`),
			"b": json.RawMessage(`2`),
		}))
		require.NoError(t, s.Remove(ctx, "a", "missing"))

		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Contains(t, got, "b")
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, map[string]json.RawMessage{"a": json.RawMessage(`1`)}))
		require.NoError(t, s.Clear(ctx))

		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

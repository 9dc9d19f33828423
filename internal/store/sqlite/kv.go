package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/snippet-picker/internal/store"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing store.Store, this line fails to compile.
var _ store.Store = (*DB)(nil)

// Get reads the values stored under keys.
//
// With no keys it returns the whole table, mirroring the "get(null) means
// everything" behaviour of the browser storage APIs the surfaces grew up on.
//
// IN (?, ?, ?):
// database/sql has no slice parameter, so we build one placeholder per key.
// The keys themselves are still passed as parameters, never concatenated.
func (db *DB) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	query := `SELECT key, value FROM kv`
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		query += ` WHERE key IN (` + placeholders(len(keys)) + `)`
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading keys: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	result := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scanning kv row: %w", err)
		}
		result[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating kv rows: %w", err)
	}

	return result, nil
}

// Set upserts every entry inside one transaction.
//
// WHY A TRANSACTION?
// Deleting a mode writes "modes", "currentMode" and the pruned "prompts"
// together. If the process died between two separate INSERTs, a reader could
// see the mode gone while its snippets still reference it. Inside a
// transaction the three rows become visible at the same instant, or not at all.
func (db *DB) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning set: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so deferring it is safe.
	defer tx.Rollback()

	now := time.Now()
	for key, value := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(value), now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: writing key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing set: %w", err)
	}
	return nil
}

// Remove deletes the given keys. Missing keys are ignored.
func (db *DB) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM kv WHERE key IN (`+placeholders(len(keys))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing keys: %w", err)
	}
	return nil
}

// Clear deletes every key.
func (db *DB) Clear(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("sqlite: clearing kv: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

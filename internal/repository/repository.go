// Package repository owns the persisted snippet and mode collections.
//
// Every mutation is a read→modify→write transaction against a store.Store:
//
//  1. read the latest collection(s) from the store (never a cached copy:
//     another surface may have written since we last looked)
//  2. apply the change in memory
//  3. write the full collection(s) back
//  4. report success only after the write returned
//
// There is no locking across surfaces. Two surfaces racing on the same key
// both succeed and the later write wins.
package repository

import (
	"context"

	"github.com/sakif/snippet-picker/internal/model"
)

// Outcome tells a caller what a reorder actually did. Reordering an item that
// is already first is not an error, but surfaces show different feedback for
// it, so it gets its own value.
type Outcome int

const (
	OutcomeMoved Outcome = iota
	OutcomeAlreadyFirst
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMoved:
		return "moved"
	case OutcomeAlreadyFirst:
		return "already_first"
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// SnippetRepository persists the global snippet collection.
type SnippetRepository interface {
	ListSnippets(ctx context.Context) ([]model.Snippet, error)
	CreateSnippet(ctx context.Context, snippet model.Snippet) (model.Snippet, error)
	AppendSnippets(ctx context.Context, snippets []model.Snippet) ([]model.Snippet, error)
	UpdateSnippet(ctx context.Context, snippet model.Snippet) (model.Snippet, error)
	DeleteSnippet(ctx context.Context, id string) error
	DeleteSnippetsInMode(ctx context.Context, modeID string) (int, error)
	MoveSnippetUp(ctx context.Context, id string) (Outcome, error)
	MoveSnippetToTop(ctx context.Context, id string) (Outcome, error)
}

// ModeRepository persists the mode list and the current mode pointer.
type ModeRepository interface {
	ListModes(ctx context.Context) ([]model.Mode, error)
	CurrentMode(ctx context.Context) (model.Mode, error)
	CreateMode(ctx context.Context, name string) (model.Mode, error)
	RenameMode(ctx context.Context, id, name string) (model.Mode, error)
	DeleteMode(ctx context.Context, id string) (model.Mode, error)
	MoveModeUp(ctx context.Context, id string) (Outcome, error)
	MoveModeToTop(ctx context.Context, id string) (Outcome, error)
	SetCurrentMode(ctx context.Context, id string) (model.Mode, error)
	CycleMode(ctx context.Context, direction int) (model.Mode, error)
}

// FlagRepository stores small persisted booleans such as "the paste
// permission prompt was already shown".
type FlagRepository interface {
	Flag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string, value bool) error
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/store"
)

var (
	_ SnippetRepository = (*Repository)(nil)
	_ ModeRepository    = (*Repository)(nil)
	_ FlagRepository    = (*Repository)(nil)
)

// Repository implements the repository interfaces on top of any store.Store.
type Repository struct {
	store store.Store
	newID func() string
}

// New returns a Repository persisting through s.
//
// WHY xid FOR IDS?
// xid ids start with a timestamp, so they sort by creation time like the
// millisecond ids older collections used, but two snippets created in the
// same millisecond (a bulk import) still get distinct ids.
func New(s store.Store) *Repository {
	return &Repository{
		store: s,
		newID: func() string { return xid.New().String() },
	}
}

// =========================================================================
// READ HELPERS
// =========================================================================

func (r *Repository) read(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	data, err := r.store.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("repository: reading %v: %w", keys, err)
	}
	return data, nil
}

func decodeSnippets(raw json.RawMessage) ([]model.Snippet, error) {
	var snippets []model.Snippet
	if len(raw) == 0 || string(raw) == "null" {
		return []model.Snippet{}, nil
	}
	if err := json.Unmarshal(raw, &snippets); err != nil {
		return nil, fmt.Errorf("repository: decoding snippets: %w", err)
	}
	return snippets, nil
}

// decodeModes never returns an empty list: a store without modes has the
// implicit default mode.
func decodeModes(raw json.RawMessage) ([]model.Mode, error) {
	var modes []model.Mode
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &modes); err != nil {
			return nil, fmt.Errorf("repository: decoding modes: %w", err)
		}
	}
	if len(modes) == 0 {
		modes = []model.Mode{model.DefaultMode()}
	}
	return modes, nil
}

// decodeCurrent falls back to the first mode when nothing is stored.
func decodeCurrent(raw json.RawMessage, modes []model.Mode) (model.Mode, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return modes[0], nil
	}
	var current model.Mode
	if err := json.Unmarshal(raw, &current); err != nil {
		return model.Mode{}, fmt.Errorf("repository: decoding current mode: %w", err)
	}
	return current, nil
}

func encode(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("repository: encoding: %w", err)
	}
	return data, nil
}

func (r *Repository) write(ctx context.Context, values map[string]any) error {
	entries := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		raw, err := encode(v)
		if err != nil {
			return err
		}
		entries[k] = raw
	}
	if err := r.store.Set(ctx, entries); err != nil {
		return fmt.Errorf("repository: writing: %w", err)
	}
	return nil
}

func (r *Repository) loadSnippets(ctx context.Context) ([]model.Snippet, error) {
	data, err := r.read(ctx, model.KeySnippets)
	if err != nil {
		return nil, err
	}
	return decodeSnippets(data[model.KeySnippets])
}

func (r *Repository) loadModes(ctx context.Context) ([]model.Mode, model.Mode, error) {
	data, err := r.read(ctx, model.KeyModes, model.KeyCurrentMode)
	if err != nil {
		return nil, model.Mode{}, err
	}
	modes, err := decodeModes(data[model.KeyModes])
	if err != nil {
		return nil, model.Mode{}, err
	}
	current, err := decodeCurrent(data[model.KeyCurrentMode], modes)
	if err != nil {
		return nil, model.Mode{}, err
	}
	return modes, current, nil
}

func indexOfSnippet(snippets []model.Snippet, id string) int {
	for i, s := range snippets {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func indexOfMode(modes []model.Mode, id string) int {
	for i, m := range modes {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// =========================================================================
// SNIPPETS
// =========================================================================

// ListSnippets returns the global collection in stored order.
func (r *Repository) ListSnippets(ctx context.Context) ([]model.Snippet, error) {
	return r.loadSnippets(ctx)
}

// CreateSnippet assigns an id and appends the snippet to the end of the
// global collection.
func (r *Repository) CreateSnippet(ctx context.Context, snippet model.Snippet) (model.Snippet, error) {
	created, err := r.AppendSnippets(ctx, []model.Snippet{snippet})
	if err != nil {
		return model.Snippet{}, err
	}
	return created[0], nil
}

// AppendSnippets appends several snippets in one write. Import uses it so a
// bulk import is a single transaction.
func (r *Repository) AppendSnippets(ctx context.Context, snippets []model.Snippet) ([]model.Snippet, error) {
	all, err := r.loadSnippets(ctx)
	if err != nil {
		return nil, err
	}

	created := make([]model.Snippet, len(snippets))
	for i, s := range snippets {
		s.ID = r.newID()
		created[i] = s
	}
	all = append(all, created...)

	if err := r.write(ctx, map[string]any{model.KeySnippets: all}); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateSnippet replaces the stored snippet with the same id, keeping its
// position. A missing id returns NotFound and nothing is written.
func (r *Repository) UpdateSnippet(ctx context.Context, snippet model.Snippet) (model.Snippet, error) {
	all, err := r.loadSnippets(ctx)
	if err != nil {
		return model.Snippet{}, err
	}

	i := indexOfSnippet(all, snippet.ID)
	if i < 0 {
		return model.Snippet{}, apperror.NotFound("snippet", snippet.ID)
	}
	all[i] = snippet

	if err := r.write(ctx, map[string]any{model.KeySnippets: all}); err != nil {
		return model.Snippet{}, err
	}
	return snippet, nil
}

// DeleteSnippet removes one snippet.
func (r *Repository) DeleteSnippet(ctx context.Context, id string) error {
	all, err := r.loadSnippets(ctx)
	if err != nil {
		return err
	}

	i := indexOfSnippet(all, id)
	if i < 0 {
		return apperror.NotFound("snippet", id)
	}
	all = append(all[:i], all[i+1:]...)

	return r.write(ctx, map[string]any{model.KeySnippets: all})
}

// DeleteSnippetsInMode removes every snippet of modeID and returns how many
// were removed. Nothing is written when the mode has no snippets.
func (r *Repository) DeleteSnippetsInMode(ctx context.Context, modeID string) (int, error) {
	all, err := r.loadSnippets(ctx)
	if err != nil {
		return 0, err
	}

	kept := withoutMode(all, modeID)
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := r.write(ctx, map[string]any{model.KeySnippets: kept}); err != nil {
		return 0, err
	}
	return removed, nil
}

func withoutMode(snippets []model.Snippet, modeID string) []model.Snippet {
	kept := make([]model.Snippet, 0, len(snippets))
	for _, s := range snippets {
		if s.EffectiveModeID() != modeID {
			kept = append(kept, s)
		}
	}
	return kept
}

// modeMembers returns the global indexes of every snippet in modeID, in order.
func modeMembers(snippets []model.Snippet, modeID string) []int {
	var members []int
	for i, s := range snippets {
		if s.EffectiveModeID() == modeID {
			members = append(members, i)
		}
	}
	return members
}

// locateInMode finds id and returns the global indexes of its mode's members
// plus its position among them.
func locateInMode(snippets []model.Snippet, id string) (members []int, pos int, err error) {
	i := indexOfSnippet(snippets, id)
	if i < 0 {
		return nil, 0, apperror.NotFound("snippet", id)
	}
	members = modeMembers(snippets, snippets[i].EffectiveModeID())
	for p, gi := range members {
		if gi == i {
			return members, p, nil
		}
	}
	// unreachable: i is a member of its own mode
	return members, 0, nil
}

// MoveSnippetUp swaps a snippet with the previous snippet OF THE SAME MODE.
//
// WHY GLOBAL INDEXES?
// All modes share one stored slice and their members are interleaved:
//
//	global:  [w1, d1, w2, d2, w3]     (w = work, d = default)
//	work:    [w1,     w2,     w3]  at global indexes 0, 2, 4
//
// Moving w3 up within "work" must swap global positions 4 and 2. Swapping
// with the global neighbour (d2) would change nothing the user can see.
func (r *Repository) MoveSnippetUp(ctx context.Context, id string) (Outcome, error) {
	all, err := r.loadSnippets(ctx)
	if err != nil {
		return 0, err
	}

	members, pos, err := locateInMode(all, id)
	if err != nil {
		return 0, err
	}
	if pos == 0 {
		return OutcomeAlreadyFirst, nil
	}

	cur, prev := members[pos], members[pos-1]
	all[cur], all[prev] = all[prev], all[cur]

	if err := r.write(ctx, map[string]any{model.KeySnippets: all}); err != nil {
		return 0, err
	}
	return OutcomeMoved, nil
}

// MoveSnippetToTop moves a snippet to the front of its mode: it is spliced
// out and re-inserted at the global index the mode's first member held.
// Snippets of other modes keep their relative order.
func (r *Repository) MoveSnippetToTop(ctx context.Context, id string) (Outcome, error) {
	all, err := r.loadSnippets(ctx)
	if err != nil {
		return 0, err
	}

	members, pos, err := locateInMode(all, id)
	if err != nil {
		return 0, err
	}
	if pos == 0 {
		return OutcomeAlreadyFirst, nil
	}

	from, to := members[pos], members[0]
	moved := all[from]
	all = append(all[:from], all[from+1:]...)
	all = append(all[:to], append([]model.Snippet{moved}, all[to:]...)...)

	if err := r.write(ctx, map[string]any{model.KeySnippets: all}); err != nil {
		return 0, err
	}
	return OutcomeMoved, nil
}

// =========================================================================
// MODES
// =========================================================================

// ListModes returns the modes in stored order. Never empty.
func (r *Repository) ListModes(ctx context.Context) ([]model.Mode, error) {
	modes, _, err := r.loadModes(ctx)
	return modes, err
}

// CurrentMode returns the persisted current mode, or the first mode if none
// was ever chosen.
func (r *Repository) CurrentMode(ctx context.Context) (model.Mode, error) {
	_, current, err := r.loadModes(ctx)
	return current, err
}

// CreateMode appends a mode and makes it current.
func (r *Repository) CreateMode(ctx context.Context, name string) (model.Mode, error) {
	modes, _, err := r.loadModes(ctx)
	if err != nil {
		return model.Mode{}, err
	}

	mode := model.Mode{ID: r.newID(), Name: name}
	modes = append(modes, mode)

	err = r.write(ctx, map[string]any{
		model.KeyModes:       modes,
		model.KeyCurrentMode: mode,
	})
	if err != nil {
		return model.Mode{}, err
	}
	return mode, nil
}

// RenameMode renames a mode in place. The current mode record is a copy,
// so when the renamed mode is current both are written together.
// An unchanged name writes nothing.
func (r *Repository) RenameMode(ctx context.Context, id, name string) (model.Mode, error) {
	modes, current, err := r.loadModes(ctx)
	if err != nil {
		return model.Mode{}, err
	}

	i := indexOfMode(modes, id)
	if i < 0 {
		return model.Mode{}, apperror.NotFound("mode", id)
	}
	if modes[i].Name == name {
		return modes[i], nil
	}
	modes[i].Name = name

	values := map[string]any{model.KeyModes: modes}
	if current.ID == id {
		current.Name = name
		values[model.KeyCurrentMode] = current
	}
	if err := r.write(ctx, values); err != nil {
		return model.Mode{}, err
	}
	return modes[i], nil
}

// DeleteMode removes a mode together with all of its snippets and returns
// the mode that is current afterwards.
//
// THE ONE-WRITE RULE:
// modes, currentMode and prompts are written in a single Set. A reader must
// never see the mode gone while its snippets remain (or the current pointer
// aimed at a deleted mode).
func (r *Repository) DeleteMode(ctx context.Context, id string) (model.Mode, error) {
	data, err := r.read(ctx, model.KeyModes, model.KeyCurrentMode, model.KeySnippets)
	if err != nil {
		return model.Mode{}, err
	}
	modes, err := decodeModes(data[model.KeyModes])
	if err != nil {
		return model.Mode{}, err
	}
	current, err := decodeCurrent(data[model.KeyCurrentMode], modes)
	if err != nil {
		return model.Mode{}, err
	}
	snippets, err := decodeSnippets(data[model.KeySnippets])
	if err != nil {
		return model.Mode{}, err
	}

	i := indexOfMode(modes, id)
	if i < 0 {
		return model.Mode{}, apperror.NotFound("mode", id)
	}
	if len(modes) <= 1 {
		return model.Mode{}, apperror.LastItemProtected("mode")
	}

	if current.ID == id {
		// First other mode in list order.
		for _, m := range modes {
			if m.ID != id {
				current = m
				break
			}
		}
	}
	modes = append(modes[:i], modes[i+1:]...)

	err = r.write(ctx, map[string]any{
		model.KeyModes:       modes,
		model.KeyCurrentMode: current,
		model.KeySnippets:    withoutMode(snippets, id),
	})
	if err != nil {
		return model.Mode{}, err
	}
	return current, nil
}

// MoveModeUp swaps a mode with the one before it.
func (r *Repository) MoveModeUp(ctx context.Context, id string) (Outcome, error) {
	modes, _, err := r.loadModes(ctx)
	if err != nil {
		return 0, err
	}

	i := indexOfMode(modes, id)
	if i < 0 {
		return 0, apperror.NotFound("mode", id)
	}
	if i == 0 {
		return OutcomeAlreadyFirst, nil
	}
	modes[i], modes[i-1] = modes[i-1], modes[i]

	if err := r.write(ctx, map[string]any{model.KeyModes: modes}); err != nil {
		return 0, err
	}
	return OutcomeMoved, nil
}

// MoveModeToTop moves a mode to the front of the list.
func (r *Repository) MoveModeToTop(ctx context.Context, id string) (Outcome, error) {
	modes, _, err := r.loadModes(ctx)
	if err != nil {
		return 0, err
	}

	i := indexOfMode(modes, id)
	if i < 0 {
		return 0, apperror.NotFound("mode", id)
	}
	if i == 0 {
		return OutcomeAlreadyFirst, nil
	}
	moved := modes[i]
	copy(modes[1:i+1], modes[:i])
	modes[0] = moved

	if err := r.write(ctx, map[string]any{model.KeyModes: modes}); err != nil {
		return 0, err
	}
	return OutcomeMoved, nil
}

// SetCurrentMode points the current mode at an existing mode.
func (r *Repository) SetCurrentMode(ctx context.Context, id string) (model.Mode, error) {
	modes, _, err := r.loadModes(ctx)
	if err != nil {
		return model.Mode{}, err
	}

	i := indexOfMode(modes, id)
	if i < 0 {
		return model.Mode{}, apperror.NotFound("mode", id)
	}

	if err := r.write(ctx, map[string]any{model.KeyCurrentMode: modes[i]}); err != nil {
		return model.Mode{}, err
	}
	return modes[i], nil
}

// CycleMode moves the current mode one step forward (direction > 0) or back
// (direction < 0), wrapping at both ends. With a single mode, or direction 0,
// nothing is written and the current mode is returned unchanged.
func (r *Repository) CycleMode(ctx context.Context, direction int) (model.Mode, error) {
	modes, current, err := r.loadModes(ctx)
	if err != nil {
		return model.Mode{}, err
	}
	if len(modes) <= 1 || direction == 0 {
		return current, nil
	}

	step := 1
	if direction < 0 {
		step = -1
	}
	// An unknown current mode counts as index 0.
	cur := max(0, indexOfMode(modes, current.ID))
	next := modes[(cur+step+len(modes))%len(modes)]
	if next.ID == current.ID {
		return current, nil
	}

	if err := r.write(ctx, map[string]any{model.KeyCurrentMode: next}); err != nil {
		return model.Mode{}, err
	}
	return next, nil
}

// =========================================================================
// FLAGS
// =========================================================================

// Flag reads a persisted boolean. Missing keys read as false.
func (r *Repository) Flag(ctx context.Context, key string) (bool, error) {
	data, err := r.read(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := data[key]
	if !ok {
		return false, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("repository: decoding flag %s: %w", key, err)
	}
	return v, nil
}

// SetFlag persists a boolean.
func (r *Repository) SetFlag(ctx context.Context, key string, value bool) error {
	return r.write(ctx, map[string]any{key: value})
}

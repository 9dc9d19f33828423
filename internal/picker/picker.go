// Package picker holds the state one picker surface keeps while it is open:
// the query, the mode it shows, the ranked results and the highlighted row.
//
// Every surface (terminal picker, in-page overlay, desktop panel) owns its
// own Picker. Nothing here is shared; the store is the only thing surfaces
// have in common, and a Picker re-reads it on Refresh.
package picker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/store"
)

// Searcher ranks the snippets of a mode, or of every mode when global.
type Searcher interface {
	Search(ctx context.Context, query, modeID string, global bool) ([]model.ScoredSnippet, error)
}

// ModeSwitcher moves the current mode.
type ModeSwitcher interface {
	Current(ctx context.Context) (model.Mode, error)
	Cycle(ctx context.Context, direction int) (model.Mode, error)
}

// Deliverer puts content into a target.
type Deliverer interface {
	Deliver(ctx context.Context, content string, target delivery.Target) (delivery.Result, error)
}

// TargetResolver finds the input the picker was opened from. Discovery is
// best-effort: ok is false when nothing usable was found, and delivery falls
// back to the native target.
type TargetResolver interface {
	Resolve(ctx context.Context) (field delivery.TextField, ok bool)
}

// Picker is one surface's picker state. Methods are safe for concurrent
// use; a storage change notification may refresh it while a key is handled.
type Picker struct {
	search   Searcher
	modes    ModeSwitcher
	deliver  Deliverer
	resolver TargetResolver
	logger   *slog.Logger

	mu      sync.Mutex
	visible bool
	query   string
	modeID  string
	global  bool
	results []model.ScoredSnippet
	cursor  Cursor
}

// Config wires a Picker. Resolver may be nil for surfaces that always
// deliver to the native target.
type Config struct {
	Search   Searcher
	Modes    ModeSwitcher
	Deliver  Deliverer
	Resolver TargetResolver
	Logger   *slog.Logger
}

func New(cfg Config) *Picker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Picker{
		search:   cfg.Search,
		modes:    cfg.Modes,
		deliver:  cfg.Deliver,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
	}
}

// View is a snapshot of what the surface should render.
type View struct {
	Visible  bool
	Query    string
	ModeID   string
	Global   bool
	Results  []model.ScoredSnippet
	Selected int
}

func (p *Picker) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		Visible:  p.visible,
		Query:    p.query,
		ModeID:   p.modeID,
		Global:   p.global,
		Results:  append([]model.ScoredSnippet(nil), p.results...),
		Selected: p.cursor.Index(),
	}
}

// Show opens the picker on the current mode with an empty query.
func (p *Picker) Show(ctx context.Context) error {
	mode, err := p.modes.Current(ctx)
	if err != nil {
		return fmt.Errorf("picker: reading current mode: %w", err)
	}

	p.mu.Lock()
	p.visible = true
	p.query = ""
	p.modeID = mode.ID
	p.mu.Unlock()

	return p.Refresh(ctx)
}

// Hide closes the picker. It satisfies delivery.PickerHider.
func (p *Picker) Hide(context.Context) error {
	p.mu.Lock()
	p.visible = false
	p.mu.Unlock()
	return nil
}

func (p *Picker) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// SetQuery changes the query and re-ranks.
func (p *Picker) SetQuery(ctx context.Context, query string) error {
	p.mu.Lock()
	p.query = query
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// SetGlobal switches between searching the shown mode and every mode.
func (p *Picker) SetGlobal(ctx context.Context, global bool) error {
	p.mu.Lock()
	p.global = global
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// SetMode shows another mode.
func (p *Picker) SetMode(ctx context.Context, modeID string) error {
	p.mu.Lock()
	p.modeID = modeID
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// Refresh re-reads the store and ranks against the current query. The
// highlight goes back to the first row.
func (p *Picker) Refresh(ctx context.Context) error {
	p.mu.Lock()
	query, modeID, global := p.query, p.modeID, p.global
	p.mu.Unlock()

	results, err := p.search.Search(ctx, query, modeID, global)
	if err != nil {
		return fmt.Errorf("picker: searching: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// A newer query landed while this one was searching; its own Refresh
	// owns the results.
	if p.query != query || p.modeID != modeID || p.global != global {
		return nil
	}
	p.results = results
	p.cursor.Reset(len(results))
	return nil
}

// StorageChanged re-ranks an open picker when another surface wrote
// snippets or modes. Closed pickers re-read on Show anyway.
func (p *Picker) StorageChanged(ctx context.Context, change store.Change) error {
	if !p.Visible() || !touchesSnippets(change) {
		return nil
	}
	return p.Refresh(ctx)
}

func touchesSnippets(change store.Change) bool {
	for _, k := range change.Keys {
		switch k {
		case model.KeySnippets, model.KeyModes, model.KeyCurrentMode:
			return true
		}
	}
	return false
}

// Select highlights row i (a mouse hover or click).
func (p *Picker) Select(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor.Set(i)
}

// Selected returns the highlighted snippet.
func (p *Picker) Selected() (model.ScoredSnippet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.cursor.Index()
	if i < 0 {
		return model.ScoredSnippet{}, false
	}
	return p.results[i], true
}

// HandleKey applies one key press through keymap. When the key confirms a
// selection the delivery result is returned; otherwise res is nil.
func (p *Picker) HandleKey(ctx context.Context, keymap Keymap, key Key) (action Action, res *delivery.Result, err error) {
	action = keymap(key)

	switch action {
	case ActionPrev:
		p.mu.Lock()
		p.cursor.Prev()
		p.mu.Unlock()
	case ActionNext:
		p.mu.Lock()
		p.cursor.Next()
		p.mu.Unlock()
	case ActionHide:
		err = p.Hide(ctx)
	case ActionModeNext, ActionModePrev:
		dir := 1
		if action == ActionModePrev {
			dir = -1
		}
		mode, cerr := p.modes.Cycle(ctx, dir)
		if cerr != nil {
			return action, nil, fmt.Errorf("picker: cycling mode: %w", cerr)
		}
		err = p.SetMode(ctx, mode.ID)
	case ActionConfirm:
		r, cerr := p.Confirm(ctx)
		if cerr != nil {
			return action, nil, cerr
		}
		res = &r
	}
	return action, res, err
}

// Confirm delivers the highlighted snippet. With nothing highlighted the
// picker just closes.
func (p *Picker) Confirm(ctx context.Context) (delivery.Result, error) {
	selected, ok := p.Selected()
	if !ok {
		p.Hide(ctx)
		return delivery.Result{}, nil
	}

	var target delivery.Target = delivery.NativeTarget{}
	if p.resolver != nil {
		if field, found := p.resolver.Resolve(ctx); found {
			target = delivery.ElementTarget{Field: field}
		}
	}

	p.logger.Info("delivering snippet",
		slog.String("snippet_id", selected.ID),
		slog.String("name", selected.Name),
	)
	res, err := p.deliver.Deliver(ctx, selected.Content, target)
	if err != nil {
		return res, fmt.Errorf("picker: delivering %s: %w", selected.ID, err)
	}
	return res, nil
}

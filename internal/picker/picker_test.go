package picker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/repository"
	"github.com/sakif/snippet-picker/internal/service"
	"github.com/sakif/snippet-picker/internal/store"
	"github.com/sakif/snippet-picker/internal/store/memory"
)

// =========================================================================
// TEST SETUP
// =========================================================================

type recordingDeliverer struct {
	contents []string
	targets  []delivery.Target
	hider    delivery.PickerHider
}

func (d *recordingDeliverer) Deliver(ctx context.Context, content string, target delivery.Target) (delivery.Result, error) {
	d.contents = append(d.contents, content)
	d.targets = append(d.targets, target)
	if d.hider != nil {
		d.hider.Hide(ctx)
	}
	return delivery.Result{Outcome: delivery.OutcomePasted, Message: delivery.MessagePasted}, nil
}

type staticResolver struct{ field delivery.TextField }

func (r staticResolver) Resolve(context.Context) (delivery.TextField, bool) {
	return r.field, r.field != nil
}

type nopField struct{}

func (nopField) Text() string        { return "" }
func (nopField) Caret() int          { return 0 }
func (nopField) SetText(string, int) {}
func (nopField) Focus()              {}
func (nopField) DispatchInput()      {}

type fixture struct {
	snippets *service.SnippetService
	modes    *service.ModeService
	deliver  *recordingDeliverer
	picker   *Picker
}

func newFixture(t *testing.T, resolver TargetResolver) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.New(memory.New())
	f := &fixture{
		snippets: service.NewSnippetService(repo, repo, logger, nil),
		modes:    service.NewModeService(repo, logger, nil),
		deliver:  &recordingDeliverer{},
	}
	f.picker = New(Config{
		Search:   f.snippets,
		Modes:    f.modes,
		Deliver:  f.deliver,
		Resolver: resolver,
		Logger:   logger,
	})
	f.deliver.hider = f.picker
	return f
}

func (f *fixture) add(t *testing.T, name, content, modeID string) model.Snippet {
	t.Helper()
	s, err := f.snippets.Create(context.Background(), name, content, modeID)
	require.NoError(t, err)
	return s
}

func names(results []model.ScoredSnippet) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

// =========================================================================
// SHOW + SEARCH
// =========================================================================

func TestShow_ListsCurrentModeInStoredOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.add(t, "b", "B", "")
	f.add(t, "a", "A", "")

	require.NoError(t, f.picker.Show(ctx))

	v := f.picker.View()
	assert.True(t, v.Visible)
	assert.Equal(t, model.DefaultModeID, v.ModeID)
	assert.Equal(t, []string{"b", "a"}, names(v.Results))
	assert.Equal(t, 0, v.Selected)
}

func TestSetQuery_RanksAndResetsCursor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.add(t, "xyz", "mentions code", "")
	f.add(t, "code", "exact", "")
	f.add(t, "codex", "prefix", "")

	require.NoError(t, f.picker.Show(ctx))
	f.picker.Select(2)

	require.NoError(t, f.picker.SetQuery(ctx, "code"))

	v := f.picker.View()
	assert.Equal(t, []string{"code", "codex", "xyz"}, names(v.Results))
	assert.Equal(t, 0, v.Selected, "new results start at the first row")
}

func TestSetQuery_NoMatchesHasNoSelection(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.add(t, "a", "A", "")

	require.NoError(t, f.picker.Show(ctx))
	require.NoError(t, f.picker.SetQuery(ctx, "zzz"))

	assert.Equal(t, -1, f.picker.View().Selected)
	_, ok := f.picker.Selected()
	assert.False(t, ok)
}

func TestSetGlobal_SearchesEveryMode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	work, err := f.modes.Create(ctx, "Work")
	require.NoError(t, err)
	f.add(t, "deploy", "kubectl", work.ID)
	f.add(t, "greet", "hello", model.DefaultModeID)

	require.NoError(t, f.picker.Show(ctx))
	require.NoError(t, f.picker.SetQuery(ctx, "e"))
	assert.Equal(t, []string{"deploy"}, names(f.picker.View().Results), "Create switched to Work")

	require.NoError(t, f.picker.SetGlobal(ctx, true))
	v := f.picker.View()
	assert.ElementsMatch(t, []string{"deploy", "greet"}, names(v.Results))
	for _, r := range v.Results {
		assert.NotEmpty(t, r.ModeName)
	}
}

// =========================================================================
// KEYS
// =========================================================================

func TestHandleKey_NavigationWraps(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.add(t, "one", "1", "")
	f.add(t, "two", "2", "")
	require.NoError(t, f.picker.Show(ctx))

	f.picker.HandleKey(ctx, OverlayKeys, Key{Name: "ArrowUp"})
	assert.Equal(t, 1, f.picker.View().Selected, "up from the first row wraps to the last")

	f.picker.HandleKey(ctx, OverlayKeys, Key{Name: "s"})
	assert.Equal(t, 0, f.picker.View().Selected, "down from the last row wraps to the first")

	f.picker.HandleKey(ctx, OverlayKeys, Key{Name: "Tab"})
	assert.Equal(t, 1, f.picker.View().Selected)
}

func TestHandleKey_EnterDeliversSelection(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.add(t, "one", "first", "")
	f.add(t, "two", "second", "")
	require.NoError(t, f.picker.Show(ctx))

	f.picker.HandleKey(ctx, PanelKeys, Key{Name: "ArrowDown"})
	action, res, err := f.picker.HandleKey(ctx, PanelKeys, Key{Name: "Enter"})
	require.NoError(t, err)

	assert.Equal(t, ActionConfirm, action)
	require.NotNil(t, res)
	assert.Equal(t, delivery.OutcomePasted, res.Outcome)
	assert.Equal(t, []string{"second"}, f.deliver.contents)
	assert.Equal(t, delivery.NativeTarget{}, f.deliver.targets[0])
	assert.False(t, f.picker.Visible(), "delivery hides the picker")
}

func TestHandleKey_EnterWithNothingSelectedHides(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.picker.Show(ctx))

	_, res, err := f.picker.HandleKey(ctx, OverlayKeys, Key{Name: "Enter"})
	require.NoError(t, err)

	assert.NotNil(t, res)
	assert.Empty(t, f.deliver.contents)
	assert.False(t, f.picker.Visible())
}

func TestHandleKey_EscapeHides(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.picker.Show(ctx))

	action, res, err := f.picker.HandleKey(ctx, OverlayKeys, Key{Name: "Escape"})
	require.NoError(t, err)
	assert.Equal(t, ActionHide, action)
	assert.Nil(t, res)
	assert.False(t, f.picker.Visible())
}

func TestHandleKey_TabCyclesModeOnPanel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	work, err := f.modes.Create(ctx, "Work")
	require.NoError(t, err)
	f.add(t, "deploy", "kubectl", work.ID)
	f.add(t, "greet", "hello", model.DefaultModeID)
	_, err = f.modes.Switch(ctx, model.DefaultModeID)
	require.NoError(t, err)
	require.NoError(t, f.picker.Show(ctx))

	_, _, err = f.picker.HandleKey(ctx, PanelKeys, Key{Name: "Tab"})
	require.NoError(t, err)

	v := f.picker.View()
	assert.Equal(t, work.ID, v.ModeID)
	assert.Equal(t, []string{"deploy"}, names(v.Results))

	current, err := f.modes.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, work.ID, current.ID, "mode switch is persisted")

	_, _, err = f.picker.HandleKey(ctx, PanelKeys, Key{Name: "Tab", Shift: true})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultModeID, f.picker.View().ModeID)
}

// =========================================================================
// TARGETS + LIVE REFRESH
// =========================================================================

func TestConfirm_UsesResolvedField(t *testing.T) {
	f := newFixture(t, staticResolver{field: nopField{}})
	ctx := context.Background()
	f.add(t, "one", "1", "")
	require.NoError(t, f.picker.Show(ctx))

	_, err := f.picker.Confirm(ctx)
	require.NoError(t, err)

	require.Len(t, f.deliver.targets, 1)
	assert.IsType(t, delivery.ElementTarget{}, f.deliver.targets[0])
}

func TestConfirm_FallsBackToNativeWhenNothingResolved(t *testing.T) {
	f := newFixture(t, staticResolver{})
	ctx := context.Background()
	f.add(t, "one", "1", "")
	require.NoError(t, f.picker.Show(ctx))

	_, err := f.picker.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, delivery.NativeTarget{}, f.deliver.targets[0])
}

func TestStorageChanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.add(t, "one", "1", "")
	require.NoError(t, f.picker.Show(ctx))

	// Another surface adds a snippet.
	f.add(t, "two", "2", "")

	require.NoError(t, f.picker.StorageChanged(ctx, store.Change{Keys: []string{model.KeyPermissionPrompted}}))
	assert.Len(t, f.picker.View().Results, 1, "unrelated keys do not refresh")

	require.NoError(t, f.picker.StorageChanged(ctx, store.Change{Keys: []string{model.KeySnippets}}))
	assert.Len(t, f.picker.View().Results, 2)

	f.picker.Hide(ctx)
	f.add(t, "three", "3", "")
	require.NoError(t, f.picker.StorageChanged(ctx, store.Change{Keys: []string{model.KeySnippets}}))
	assert.Len(t, f.picker.View().Results, 2, "hidden pickers wait for Show")
}

package commands_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-picker/internal/app"
	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/auth"
	"github.com/sakif/snippet-picker/internal/commands"
	"github.com/sakif/snippet-picker/internal/config"
	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/picker"
	"github.com/sakif/snippet-picker/internal/relay"
)

// =========================================================================
// TEST SETUP
// =========================================================================

// fakeDeliverer records deliveries and hides the picker like the real
// controller does.
type fakeDeliverer struct {
	mu       sync.Mutex
	hider    delivery.PickerHider
	contents []string
}

func (f *fakeDeliverer) Deliver(ctx context.Context, content string, _ delivery.Target) (delivery.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, content)
	if f.hider != nil {
		f.hider.Hide(ctx)
	}
	return delivery.Result{Outcome: delivery.OutcomePasted, Message: delivery.MessagePasted}, nil
}

func (f *fakeDeliverer) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.contents...)
}

type cli struct {
	cfg       *config.Config
	deliverer *fakeDeliverer
}

// newCLI shares one store file between invocations, the way separate
// `picker` runs share the user's store.
func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{
		cfg: &config.Config{
			Port:        config.DefaultPort,
			StoreDriver: config.DriverFile,
			StoreFile:   filepath.Join(t.TempDir(), "store.json"),
			LogLevel:    slog.LevelWarn,
		},
		deliverer: &fakeDeliverer{},
	}
}

func (c *cli) exec(stdin string, args ...string) (stdout, stderr string, err error) {
	root := commands.New(commands.Options{
		Config: c.cfg,
		Stdin:  strings.NewReader(stdin),
		NewDeliverer: func(_ *app.App, hider delivery.PickerHider, _ io.Writer) picker.Deliverer {
			c.deliverer.hider = hider
			return c.deliverer
		},
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (c *cli) run(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := c.exec("", args...)
	require.NoError(t, err, "picker %v: %s", args, stderr)
	return out
}

var idPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// idOf pulls the "[id]" out of an "Added name [id]" line.
func idOf(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.NotNil(t, m, "no id in %q", out)
	return m[1]
}

// =========================================================================
// SNIPPET COMMANDS
// =========================================================================

func TestAddListSearch(t *testing.T) {
	c := newCLI(t)

	c.run(t, "add", "greet", "Hello there!")
	c.run(t, "add", "sign-off", "Best regards")

	out := c.run(t, "list")
	assert.Contains(t, out, "1. greet")
	assert.Contains(t, out, "2. sign-off")
	assert.Contains(t, out, "Hello there!")

	out = c.run(t, "search", "regards")
	assert.Contains(t, out, "1. sign-off")
	assert.Contains(t, out, "score=10")
	assert.NotContains(t, out, "greet")

	out = c.run(t, "search", "nothing-matches-this")
	assert.Equal(t, "No snippets.\n", out)
}

func TestAdd_FromStdin(t *testing.T) {
	c := newCLI(t)

	_, stderr, err := c.exec("line one\nline two\n", "add", "multi", "-")
	require.NoError(t, err, stderr)

	out := c.run(t, "export")
	assert.Equal(t, "multi\nline one\nline two\n\n", out)
}

func TestAdd_ValidationError(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.exec("", "add", "   ", "content")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEdit_KeepsUnchangedFields(t *testing.T) {
	c := newCLI(t)
	id := idOf(t, c.run(t, "add", "greet", "Hello!"))

	c.run(t, "edit", id, "--name", "hello")

	out := c.run(t, "export")
	assert.Equal(t, "hello\nHello!\n\n", out)
}

func TestEdit_UnknownID(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.exec("", "edit", "nope", "--name", "x")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRmUpTop(t *testing.T) {
	c := newCLI(t)
	a := idOf(t, c.run(t, "add", "a", "1"))
	c.run(t, "add", "b", "2")
	cID := idOf(t, c.run(t, "add", "c", "3"))

	assert.Equal(t, "already_first\n", c.run(t, "up", a))
	assert.Equal(t, "moved\n", c.run(t, "top", cID))

	out := c.run(t, "list")
	assert.Less(t, strings.Index(out, ". c "), strings.Index(out, ". a "))

	c.run(t, "rm", a)
	assert.NotContains(t, c.run(t, "list"), ". a ")
}

func TestClearMode_RequiresYes(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "a", "1")
	c.run(t, "add", "b", "2")

	_, _, err := c.exec("", "clear-mode")
	require.Error(t, err)
	assert.Contains(t, c.run(t, "list"), ". a ")

	assert.Equal(t, "Deleted 2 snippet(s)\n", c.run(t, "clear-mode", "--yes"))
	assert.Equal(t, "No snippets.\n", c.run(t, "list"))
}

func TestImportExport(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("greet\nHello!\n\nlonely\n\nsign-off\nBest,\nSam\n"), 0o644))

	out := c.run(t, "import", src)
	assert.Equal(t, "Imported 2 snippet(s), skipped 1 invalid block(s)\n", out)

	// -o with a directory uses the suggested file name.
	c.run(t, "export", "-o", dir)
	b, err := os.ReadFile(filepath.Join(dir, "prompts_Default_export.txt"))
	require.NoError(t, err)
	assert.Equal(t, "greet\nHello!\n\nsign-off\nBest,\nSam\n\n", string(b))
}

// A mode name with path segments still lands inside the -o directory.
func TestExport_ModeNameWithSeparatorsStaysInDir(t *testing.T) {
	c := newCLI(t)
	c.run(t, "mode", "add", "a/../../x")
	c.run(t, "add", "greet", "Hello!")

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.Mkdir(dir, 0o755))
	c.run(t, "export", "-o", dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prompts_a_.._.._x_export.txt", entries[0].Name())
}

func TestImport_FromStdin(t *testing.T) {
	c := newCLI(t)

	out, stderr, err := c.exec("a\n1\n\nb\n2\n", "import", "-")
	require.NoError(t, err, stderr)
	assert.Equal(t, "Imported 2 snippet(s)\n", out)
}

// =========================================================================
// MODE COMMANDS
// =========================================================================

func TestModeLifecycle(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "d", "in default")

	work := idOf(t, c.run(t, "mode", "add", "Work"))
	c.run(t, "add", "w", "in work")

	out := c.run(t, "mode", "list")
	assert.Contains(t, out, "  Default [default]")
	assert.Contains(t, out, "* Work ["+work+"]")

	// The current mode scopes list and search.
	assert.NotContains(t, c.run(t, "list"), ". d ")
	assert.Contains(t, c.run(t, "search", "in", "--global"), "(Default)")

	assert.Contains(t, c.run(t, "mode", "next"), "Current mode: Default")
	assert.Contains(t, c.run(t, "mode", "prev"), "Current mode: Work")
	assert.Contains(t, c.run(t, "mode", "use", "default"), "Current mode: Default")

	assert.Equal(t, "moved\n", c.run(t, "mode", "top", work))
	assert.Equal(t, "already_first\n", c.run(t, "mode", "up", work))

	assert.Contains(t, c.run(t, "mode", "rename", work, "Job"), "Renamed to Job")

	_, _, err := c.exec("", "mode", "rm", work)
	require.Error(t, err)

	out = c.run(t, "mode", "rm", work, "--yes")
	assert.Contains(t, out, "Current mode: Default")
	assert.Contains(t, c.run(t, "list", "--all"), ". d ")
	assert.NotContains(t, c.run(t, "list", "--all"), ". w ")
}

func TestModeRm_LastModeProtected(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.exec("", "mode", "rm", "default", "--yes")
	assert.ErrorIs(t, err, apperror.ErrLastItemProtected)
}

// =========================================================================
// INSERT
// =========================================================================

func TestInsert_ByQuery(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello there!")
	c.run(t, "add", "greeting-long", "Hello and welcome!")

	out := c.run(t, "insert", "greet")
	assert.Equal(t, "greet: pasted\n", out)

	out = c.run(t, "insert", "greet", "--index", "2")
	assert.Equal(t, "greeting-long: pasted\n", out)

	assert.Equal(t, []string{"Hello there!", "Hello and welcome!"}, c.deliverer.delivered())
}

func TestInsert_ByID(t *testing.T) {
	c := newCLI(t)
	id := idOf(t, c.run(t, "add", "greet", "Hello!"))

	assert.Equal(t, "greet: pasted\n", c.run(t, "insert", id))
	assert.Equal(t, []string{"Hello!"}, c.deliverer.delivered())
}

func TestInsert_NoMatch(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello!")

	_, _, err := c.exec("", "insert", "zzz")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, _, err = c.exec("", "insert", "greet", "--index", "2")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Empty(t, c.deliverer.delivered())
}

func TestInsert_GlobalFindsOtherModes(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello!")
	c.run(t, "mode", "add", "Work")

	_, _, err := c.exec("", "insert", "greet")
	require.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Equal(t, "greet: pasted\n", c.run(t, "insert", "greet", "--global"))
}

func TestInsert_Relay(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello overlay!")

	hub := relay.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.New())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	overlay, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer overlay.Close()
	overlay.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello relay.Message
	require.NoError(t, overlay.ReadJSON(&hello))
	require.Equal(t, relay.TypeConnected, hello.Type)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	out := c.run(t, "insert", "greet", "--relay", "--daemon", url)
	assert.Equal(t, "greet: relayed\n", out)

	var msg relay.Message
	require.NoError(t, overlay.ReadJSON(&msg))
	assert.Equal(t, relay.TypeInsertPrompt, msg.Type)
	assert.Equal(t, "Hello overlay!", msg.Content)
	assert.Empty(t, c.deliverer.delivered())
}

func TestInsert_RelayWithNoOverlayDeliversLocally(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello overlay!")

	hub := relay.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.New())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	out := c.run(t, "insert", "greet", "--relay", "--daemon", url)

	assert.Equal(t, "greet: pasted\n", out)
	assert.Equal(t, []string{"Hello overlay!"}, c.deliverer.delivered())
}

func TestInsert_RelayDaemonDownDeliversLocally(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello!")

	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	out := c.run(t, "insert", "greet", "--relay", "--daemon", url)

	assert.Equal(t, "greet: pasted\n", out)
	assert.Equal(t, []string{"Hello!"}, c.deliverer.delivered())
}

// =========================================================================
// TOKEN + INFO
// =========================================================================

func TestToken(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.exec("", "token", "overlay")
	require.Error(t, err)

	c.cfg.TokenSecret = "0123456789abcdef0123"
	out := c.run(t, "token", "overlay", "--ttl", "1h")

	tokens, err := auth.NewTokenService(c.cfg.TokenSecret)
	require.NoError(t, err)
	surface, err := tokens.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "overlay", surface)
}

func TestInfo(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello!")

	out := c.run(t, "info")
	assert.Contains(t, out, "store:    file ("+c.cfg.StoreFile+")")
	assert.Contains(t, out, "modes:    1 (current: Default)")
	assert.Contains(t, out, "snippets: 1")
}

func TestStoreOverride(t *testing.T) {
	c := newCLI(t)
	c.run(t, "add", "greet", "Hello!")

	// The memory store starts empty on every run.
	out := c.run(t, "--store", "memory", "list")
	assert.Equal(t, "No snippets.\n", out)
}

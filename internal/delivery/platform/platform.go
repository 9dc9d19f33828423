// Package platform holds the real OS capabilities behind delivery: the system
// clipboard, the macOS paste keystroke and the "previous frontmost app"
// tracker.
//
// macOS is the only platform with automatic paste. Everywhere else the
// simulator reports UnsupportedPlatform and deliveries stop at the
// clipboard, which is the documented degraded mode.
package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/delivery"
)

var (
	_ delivery.Clipboard      = Clipboard{}
	_ delivery.PasteSimulator = (*PasteSimulator)(nil)
	_ delivery.FocusTracker   = (*FocusTracker)(nil)
)

// Runner executes a command and returns its combined output. Tests replace it
// to script osascript responses.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// =========================================================================
// CLIPBOARD
// =========================================================================

// Clipboard writes to the system clipboard through atotto/clipboard
// (pbcopy on macOS, xclip/xsel/wl-copy on Linux, the Win32 API on Windows).
type Clipboard struct{}

func (Clipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// =========================================================================
// PASTE
// =========================================================================

const pasteScript = `tell application "System Events" to keystroke "v" using command down`

// PasteSimulator sends ⌘V with AppleScript.
type PasteSimulator struct {
	goos string
	run  Runner
}

// NewPasteSimulator returns a simulator for the running OS.
func NewPasteSimulator() *PasteSimulator {
	return &PasteSimulator{goos: runtime.GOOS, run: ExecRunner}
}

// SimulatePaste returns nil on success, a PermissionDenied error when macOS
// refuses to let this process send keystrokes, and UnsupportedPlatform on
// anything that is not macOS.
func (p *PasteSimulator) SimulatePaste(ctx context.Context) error {
	if p.goos != "darwin" {
		return apperror.UnsupportedPlatform(p.goos)
	}

	out, err := p.run(ctx, "osascript", "-e", pasteScript)
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = err.Error()
	}
	if IsPermissionDenied(msg) {
		return apperror.PermissionDenied(msg)
	}
	return fmt.Errorf("platform: simulating paste: %s: %w", msg, err)
}

// IsPermissionDenied recognises the System Events errors macOS returns when
// the process lacks the Accessibility permission:
//
//	System Events got an error: osascript is not allowed to send keystrokes. (1002)
func IsPermissionDenied(message string) bool {
	return strings.Contains(message, "not allowed to send keystrokes") ||
		strings.Contains(message, " 1002") ||
		strings.Contains(message, "(1002)")
}

// =========================================================================
// FOCUS
// =========================================================================

const frontmostScript = `tell application "System Events" to get bundle identifier of first application process whose frontmost is true`

// FocusTracker remembers the app that was frontmost when the picker opened
// and re-activates it before pasting.
type FocusTracker struct {
	goos   string
	selfID string
	run    Runner

	mu       sync.Mutex
	previous string
}

// NewFocusTracker returns a tracker that ignores selfID (the bundle id of the
// picker's own app, e.g. the terminal it runs in) when recording.
func NewFocusTracker(selfID string) *FocusTracker {
	return NewFocusTrackerFor(runtime.GOOS, selfID, ExecRunner)
}

// NewFocusTrackerFor builds a tracker for goos that runs scripts through
// run. Tests use it to script osascript from other packages.
func NewFocusTrackerFor(goos, selfID string, run Runner) *FocusTracker {
	return &FocusTracker{goos: goos, selfID: selfID, run: run}
}

// Record reads the frontmost app. Call it right before showing the picker.
// A reading of the picker itself is discarded so the previous valid app is
// kept.
func (f *FocusTracker) Record(ctx context.Context) error {
	if f.goos != "darwin" {
		return nil
	}
	out, err := f.run(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return fmt.Errorf("platform: reading frontmost app: %w", err)
	}

	id := strings.TrimSpace(string(out))
	if id == "" || id == f.selfID {
		return nil
	}

	f.mu.Lock()
	f.previous = id
	f.mu.Unlock()
	return nil
}

// Previous returns the recorded app, if any.
func (f *FocusTracker) Previous() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previous
}

// Restore activates the recorded app. With nothing recorded it does nothing:
// hiding the picker usually hands focus back on its own.
func (f *FocusTracker) Restore(ctx context.Context) error {
	id := f.Previous()
	if f.goos != "darwin" || id == "" {
		return nil
	}
	script := fmt.Sprintf(`tell application id %q to activate`, id)
	if out, err := f.run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("platform: activating %s: %s: %w", id, strings.TrimSpace(string(out)), err)
	}
	return nil
}

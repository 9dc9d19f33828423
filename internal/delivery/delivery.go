// Package delivery gets a chosen snippet into the place the user was typing.
//
// THE PROTOCOL:
//
//	Idle → Copying → Hiding → Inserting             → Done   (element target)
//	                        → Restoring → Pasting   → Done   (native target)
//	       Copying → Failed                                  (clipboard write failed)
//
// Step by step:
//
//  1. Copy: the content always goes to the clipboard first. If everything
//     after this fails, the user can still paste by hand.
//  2. Hide: the picker goes away before anything is typed, so a simulated
//     keystroke is not swallowed by the picker itself and the OS hands focus
//     back to the previous app.
//  3. Place: for an element target (in-page overlay) the "/" that opened the
//     menu is replaced with the content, the page is notified and the field
//     refocused. For a native target (desktop panel) the app that was
//     frontmost before the picker opened is re-activated, then ⌘V is sent.
//
// Paste failures are not delivery failures. A denied or unsupported paste
// still reports success-with-a-hint ("copied, paste manually"), because the
// clipboard already holds the content. Only a failed clipboard write aborts.
//
// Every platform touchpoint is an interface so tests can drive each path
// with doubles; delivery/platform holds the real implementations.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/metrics"
)

// Default settle times. Clipboard managers and window servers need a moment
// before the next step sees the new state.
const (
	DefaultClipboardSettle = 50 * time.Millisecond
	DefaultFocusSettle     = 150 * time.Millisecond
)

// User-facing result messages.
const (
	MessageInserted     = "inserted"
	MessagePasted       = "pasted"
	MessageManualPaste  = "copied to clipboard, paste manually (⌘V)"
	MessageCopyFailed   = "could not copy to clipboard"
	MessageNothingToAdd = "nothing to deliver"
)

// =========================================================================
// CAPABILITIES
// =========================================================================

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// PickerHider dismisses the picker UI.
type PickerHider interface {
	Hide(ctx context.Context) error
}

// HiderFunc adapts a function to PickerHider.
type HiderFunc func(ctx context.Context) error

func (f HiderFunc) Hide(ctx context.Context) error { return f(ctx) }

// FocusTracker re-activates the application that was frontmost when the
// picker opened. Implementations discard readings of the picker's own app.
type FocusTracker interface {
	Restore(ctx context.Context) error
}

// PasteSimulator sends the platform paste keystroke. It returns an error
// matching apperror.ErrPermissionDenied when the OS refuses input injection
// and apperror.ErrUnsupportedPlatform when there is no way to do it at all.
type PasteSimulator interface {
	SimulatePaste(ctx context.Context) error
}

// PromptFlag remembers whether the permission explanation was already shown.
type PromptFlag interface {
	Prompted(ctx context.Context) (bool, error)
	MarkPrompted(ctx context.Context) error
}

// PermissionGuide shows the one-time "grant accessibility permission"
// explanation.
type PermissionGuide interface {
	ExplainPastePermission(ctx context.Context) error
}

// Notifier shows a short transient message (toast, status line).
type Notifier interface {
	Notify(message string)
}

// TextField is an input the overlay is attached to. Caret positions count
// runes, not bytes.
type TextField interface {
	Text() string
	Caret() int
	SetText(text string, caret int)
	Focus()
	// DispatchInput tells the host page the value changed so its own state
	// (a chat app's draft, a React store) catches up.
	DispatchInput()
}

// =========================================================================
// TARGETS
// =========================================================================

// Target says where delivered content should end up.
type Target interface {
	kind() string
}

// ElementTarget is a specific input field the picker was opened from.
type ElementTarget struct {
	Field TextField
}

func (ElementTarget) kind() string { return "element" }

// NativeTarget is whatever application held focus before the picker opened.
type NativeTarget struct{}

func (NativeTarget) kind() string { return "native" }

// =========================================================================
// STATE + RESULT
// =========================================================================

type State int

const (
	StateIdle State = iota
	StateCopying
	StateHiding
	StateInserting
	StateRestoring
	StatePasting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCopying:
		return "copying"
	case StateHiding:
		return "hiding"
	case StateInserting:
		return "inserting"
	case StateRestoring:
		return "restoring"
	case StatePasting:
		return "pasting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is how far a delivery got.
type Outcome string

const (
	OutcomeInserted   Outcome = "inserted"    // written into the element
	OutcomePasted     Outcome = "pasted"      // paste keystroke sent to the previous app
	OutcomeCopiedOnly Outcome = "copied_only" // on the clipboard, user pastes by hand
	OutcomeFailed     Outcome = "failed"      // clipboard write failed
)

// Result describes a finished delivery.
type Result struct {
	Outcome Outcome
	Message string
	// PasteErr is why a native delivery degraded to OutcomeCopiedOnly.
	PasteErr error
	// States lists every state the delivery passed through, in order.
	States []State
}

// =========================================================================
// CONTROLLER
// =========================================================================

// Config wires a Controller. Only Clipboard is required; a nil capability
// skips its step (a nil PasteSimulator behaves like an unsupported platform).
type Config struct {
	Clipboard Clipboard
	Hider     PickerHider
	Focus     FocusTracker
	Paste     PasteSimulator
	Flag      PromptFlag
	Guide     PermissionGuide
	Notifier  Notifier

	Clock           clockwork.Clock
	ClipboardSettle time.Duration
	FocusSettle     time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Controller runs deliveries. It holds no per-delivery state and is safe for
// concurrent use as long as its capabilities are.
type Controller struct {
	cfg Config
}

// NewController fills defaults and returns a Controller.
func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.ClipboardSettle <= 0 {
		cfg.ClipboardSettle = DefaultClipboardSettle
	}
	if cfg.FocusSettle <= 0 {
		cfg.FocusSettle = DefaultFocusSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{cfg: cfg}
}

// Deliver puts content into target.
//
// The returned error is non-nil only when nothing useful happened: empty
// content (ValidationError) or a failed clipboard write (ClipboardError).
// Paste problems come back as a nil error with OutcomeCopiedOnly.
//
// CANCELLATION:
// Once the clipboard write starts, the delivery runs to completion even if
// ctx is cancelled (the user pressed Escape, the HTTP client went away).
// Stopping halfway would leave the clipboard written and the picker in an
// unknown state.
func (c *Controller) Deliver(ctx context.Context, content string, target Target) (Result, error) {
	if content == "" {
		return Result{Outcome: OutcomeFailed, Message: MessageNothingToAdd}, apperror.ValidationFailed("content", MessageNothingToAdd)
	}
	if target == nil {
		target = NativeTarget{}
	}

	ctx = context.WithoutCancel(ctx)
	start := c.cfg.Clock.Now()
	var states []State
	enter := func(s State) {
		states = append(states, s)
		c.cfg.Logger.Debug("delivery state", slog.String("state", s.String()), slog.String("target", target.kind()))
	}

	finish := func(res Result, err error) (Result, error) {
		res.States = states
		c.cfg.Metrics.RecordDelivery(target.kind(), string(res.Outcome), c.cfg.Clock.Since(start))
		if c.cfg.Notifier != nil && res.Message != "" {
			c.cfg.Notifier.Notify(res.Message)
		}
		return res, err
	}

	// 1. Clipboard first: the safety net for every later step.
	enter(StateCopying)
	if err := c.cfg.Clipboard.WriteText(content); err != nil {
		enter(StateFailed)
		c.cfg.Logger.Error("clipboard write failed", slog.String("error", err.Error()))
		return finish(Result{Outcome: OutcomeFailed, Message: MessageCopyFailed}, apperror.Clipboard(err))
	}
	c.cfg.Clock.Sleep(c.cfg.ClipboardSettle)

	// 2. Get the picker out of the way.
	enter(StateHiding)
	if c.cfg.Hider != nil {
		if err := c.cfg.Hider.Hide(ctx); err != nil {
			c.cfg.Logger.Warn("hiding picker failed", slog.String("error", err.Error()))
		}
	}

	// 3. Put the content where the user was.
	switch t := target.(type) {
	case ElementTarget:
		enter(StateInserting)
		insertIntoField(t.Field, content)
		enter(StateDone)
		return finish(Result{Outcome: OutcomeInserted, Message: MessageInserted}, nil)

	default:
		res := c.pasteNative(ctx, enter)
		enter(StateDone)
		return finish(res, nil)
	}
}

// insertIntoField replaces the trigger "/" before the caret (or inserts at
// the caret), notifies the page and leaves the field focused.
func insertIntoField(field TextField, content string) {
	if field == nil {
		return
	}
	text, caret := InsertAtTrigger(field.Text(), field.Caret(), content)
	field.SetText(text, caret)
	field.DispatchInput()
	field.Focus()
}

func (c *Controller) pasteNative(ctx context.Context, enter func(State)) Result {
	enter(StateRestoring)
	if c.cfg.Focus != nil {
		if err := c.cfg.Focus.Restore(ctx); err != nil {
			// Pasting anyway is still the best bet: the OS usually re-activates
			// the previous app on its own once the picker hides.
			c.cfg.Logger.Warn("restoring previous app failed", slog.String("error", err.Error()))
		}
	}
	c.cfg.Clock.Sleep(c.cfg.FocusSettle)

	enter(StatePasting)
	var err error
	if c.cfg.Paste == nil {
		err = apperror.UnsupportedPlatform("this surface")
	} else {
		err = c.cfg.Paste.SimulatePaste(ctx)
	}
	if err == nil {
		return Result{Outcome: OutcomePasted, Message: MessagePasted}
	}

	switch {
	case errors.Is(err, apperror.ErrPermissionDenied):
		c.cfg.Logger.Warn("paste permission denied", slog.String("error", err.Error()))
		c.explainPermissionOnce(ctx)
	case errors.Is(err, apperror.ErrUnsupportedPlatform):
		c.cfg.Logger.Info("automatic paste unavailable", slog.String("reason", err.Error()))
	default:
		c.cfg.Logger.Error("simulated paste failed", slog.String("error", err.Error()))
	}
	return Result{Outcome: OutcomeCopiedOnly, Message: MessageManualPaste, PasteErr: err}
}

// explainPermissionOnce shows the permission guide the first time a denial
// is ever seen. The flag is persisted so restarts don't repeat the prompt.
func (c *Controller) explainPermissionOnce(ctx context.Context) {
	if c.cfg.Guide == nil {
		return
	}
	if c.cfg.Flag != nil {
		prompted, err := c.cfg.Flag.Prompted(ctx)
		if err != nil {
			c.cfg.Logger.Warn("reading permission prompt flag", slog.String("error", err.Error()))
			return
		}
		if prompted {
			return
		}
	}

	if err := c.cfg.Guide.ExplainPastePermission(ctx); err != nil {
		c.cfg.Logger.Warn("showing permission guide", slog.String("error", err.Error()))
		return
	}
	if c.cfg.Flag != nil {
		if err := c.cfg.Flag.MarkPrompted(ctx); err != nil {
			c.cfg.Logger.Warn("saving permission prompt flag", slog.String("error", err.Error()))
		}
	}
}

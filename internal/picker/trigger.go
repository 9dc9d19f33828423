package picker

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sakif/snippet-picker/internal/delivery"
)

// DefaultPasteCooldown is how long after a paste-like input the trigger
// stays deaf. Pasted text full of slashes must not pop the menu.
const DefaultPasteCooldown = time.Second

// Input types as reported by the browser's InputEvent.inputType.
const (
	InputInsertText        = "insertText"
	InputInsertFromPaste   = "insertFromPaste"
	InputInsertFromDrop    = "insertFromDrop"
	InputInsertComposition = "insertCompositionText"
	InputInsertFromYank    = "insertFromYank"
)

// InputEvent is one edit of a monitored field.
type InputEvent struct {
	Type      string
	Data      string // the inserted text, if any
	Composing bool   // an IME composition is in progress
	Text      string // the field's full value after the edit
}

// Decision is what the detector wants done with the menu.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionOpen
	DecisionHide
)

func (d Decision) String() string {
	switch d {
	case DecisionOpen:
		return "open"
	case DecisionHide:
		return "hide"
	}
	return "none"
}

func isBulkInput(inputType string) bool {
	switch inputType {
	case InputInsertFromPaste, InputInsertFromDrop, InputInsertComposition, InputInsertFromYank:
		return true
	}
	return false
}

// TriggerDetector decides when a typed "/" opens the picker.
//
// The cooldown is a timestamp comparison on every event. Nothing waits, so a
// burst of input after a paste costs one clock read per event.
type TriggerDetector struct {
	clock    clockwork.Clock
	cooldown time.Duration

	mu       sync.Mutex
	lastBulk time.Time
}

// NewTriggerDetector returns a detector on clock. A nil clock means the
// real one; a non-positive cooldown means DefaultPasteCooldown.
func NewTriggerDetector(clock clockwork.Clock, cooldown time.Duration) *TriggerDetector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cooldown <= 0 {
		cooldown = DefaultPasteCooldown
	}
	return &TriggerDetector{clock: clock, cooldown: cooldown}
}

// Observe classifies ev given whether the menu is currently open.
func (d *TriggerDetector) Observe(ev InputEvent, menuOpen bool) Decision {
	if ev.Type == InputInsertText && ev.Data == "?" {
		if menuOpen {
			return DecisionHide
		}
		return DecisionNone
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if isBulkInput(ev.Type) {
		d.lastBulk = now
		return DecisionHide
	}
	if !d.lastBulk.IsZero() && now.Sub(d.lastBulk) < d.cooldown {
		return DecisionNone
	}

	if ev.Type == InputInsertText && ev.Data == string(delivery.TriggerChar) && !ev.Composing {
		return DecisionOpen
	}
	// The trigger was deleted while the menu was up.
	if menuOpen && !strings.ContainsRune(ev.Text, delivery.TriggerChar) {
		return DecisionHide
	}
	return DecisionNone
}

// Cooling reports whether a paste-like input happened within the cooldown.
func (d *TriggerDetector) Cooling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.lastBulk.IsZero() && d.clock.Since(d.lastBulk) < d.cooldown
}

package picker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultAutoHideDelay is how long a panel may stay unfocused before it
// hides itself. Short enough to feel immediate, long enough to survive the
// focus bounce of opening a context menu or dialog.
const DefaultAutoHideDelay = 200 * time.Millisecond

// AutoHide hides a panel shortly after it loses focus, unless it gets focus
// back first.
type AutoHide struct {
	clock clockwork.Clock
	delay time.Duration
	hide  func()

	mu      sync.Mutex
	pending clockwork.Timer
	gen     uint64
}

// NewAutoHide calls hide delay after a Blur that is not followed by a Focus.
func NewAutoHide(clock clockwork.Clock, delay time.Duration, hide func()) *AutoHide {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if delay <= 0 {
		delay = DefaultAutoHideDelay
	}
	return &AutoHide{clock: clock, delay: delay, hide: hide}
}

// Blur schedules the hide, replacing any earlier schedule.
func (a *AutoHide) Blur() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		a.pending.Stop()
	}
	a.gen++
	gen := a.gen
	a.pending = a.clock.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Focus cancels a scheduled hide.
func (a *AutoHide) Focus() {
	a.Stop()
}

// Stop cancels a scheduled hide. It reports whether one was pending.
func (a *AutoHide) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return false
	}
	stopped := a.pending.Stop()
	a.pending = nil
	a.gen++
	return stopped
}

// Pending reports whether a hide is scheduled.
func (a *AutoHide) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// fire runs the hide unless the timer that scheduled it was superseded
// between expiring and getting the lock.
func (a *AutoHide) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.mu.Unlock()
	a.hide()
}

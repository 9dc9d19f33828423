package picker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func newAutoHide(t *testing.T) (*AutoHide, clockwork.FakeClock, *atomic.Int32) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	var hidden atomic.Int32
	a := NewAutoHide(clock, 0, func() { hidden.Add(1) })
	return a, clock, &hidden
}

func TestAutoHide_HidesAfterDelay(t *testing.T) {
	a, clock, hidden := newAutoHide(t)

	a.Blur()
	assert.True(t, a.Pending())

	clock.Advance(DefaultAutoHideDelay - time.Millisecond)
	assert.Equal(t, int32(0), hidden.Load(), "hidden before the delay")

	clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return hidden.Load() == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !a.Pending() }, time.Second, time.Millisecond)
}

func TestAutoHide_FocusCancels(t *testing.T) {
	a, clock, hidden := newAutoHide(t)

	a.Blur()
	clock.Advance(100 * time.Millisecond)
	a.Focus()
	assert.False(t, a.Pending())

	clock.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), hidden.Load())
}

func TestAutoHide_BlurRestartsTimer(t *testing.T) {
	a, clock, hidden := newAutoHide(t)

	a.Blur()
	clock.Advance(150 * time.Millisecond)
	a.Blur()
	clock.Advance(150 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), hidden.Load(), "second blur should restart the delay")

	clock.Advance(50 * time.Millisecond)
	assert.Eventually(t, func() bool { return hidden.Load() == 1 }, time.Second, time.Millisecond)
}

func TestAutoHide_StopWithNothingPending(t *testing.T) {
	a, _, _ := newAutoHide(t)
	assert.False(t, a.Stop())
}

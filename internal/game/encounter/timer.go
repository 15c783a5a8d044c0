package encounter

import (
	"sync"
	"time"
)

// Timer fires a callback after a duration unless stopped or paused. One
// implementation serves phase timers, reaction windows, loot deadlines,
// enemy pacing, and matchmaking waits.
//
// A stopped, paused, or superseded schedule never fires its callback,
// even if the underlying runtime timer has already expired and the
// callback is racing the stop. Each arm gets a generation number; a
// callback from an older generation is dropped. Safe for concurrent use.
type Timer struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	stopped  bool
	gen      uint64
}

// NewTimer creates and starts a timer that calls onFire after duration.
// onFire runs on its own goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
func NewTimer(duration time.Duration, onFire func()) *Timer {
	t := &Timer{}
	t.mu.Lock()
	t.armLocked(duration, onFire)
	t.mu.Unlock()
	return t
}

// armLocked installs a fresh schedule under the next generation.
// Caller holds mu.
func (t *Timer) armLocked(duration time.Duration, onFire func()) {
	t.gen++
	gen := t.gen
	t.stopped = false
	t.deadline = time.Now().Add(duration)
	t.timer = time.AfterFunc(duration, func() {
		t.mu.Lock()
		live := !t.stopped && t.gen == gen
		t.mu.Unlock()
		if live {
			onFire()
		}
	})
}

// Reset cancels the current schedule and re-arms with a new duration and
// callback. An expired prior schedule whose callback has not yet run is
// superseded, not revived.
//
// Precondition: duration > 0; onFire must not be nil.
func (t *Timer) Reset(duration time.Duration, onFire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer.Stop()
	t.armLocked(duration, onFire)
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.timer.Stop()
}

// Pause stops the timer and returns the unelapsed remainder, captured
// once at pause time. A later Reset with the returned value resumes the
// original schedule.
//
// Postcondition: return value >= 0; onFire will not be called until the
// timer is re-armed.
func (t *Timer) Pause() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.timer.Stop()
	remaining := time.Until(t.deadline)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

package encounter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_Fires(t *testing.T) {
	fired := make(chan struct{})
	NewTimer(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTimer_StopPreventsFire(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := NewTimer(30*time.Millisecond, func() { fired <- struct{}{} })
	timer.Stop()

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimer_PauseCapturesRemainder(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := NewTimer(5*time.Second, func() { fired <- struct{}{} })

	remaining := timer.Pause()
	assert.Greater(t, remaining, 4*time.Second)
	assert.LessOrEqual(t, remaining, 5*time.Second)

	select {
	case <-fired:
		t.Fatal("paused timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimer_PauseAfterDeadlineIsZero(t *testing.T) {
	done := make(chan struct{})
	timer := NewTimer(5*time.Millisecond, func() { close(done) })
	<-done

	assert.Equal(t, time.Duration(0), timer.Pause())
}

func TestTimer_ResetResumesWithRemainder(t *testing.T) {
	first := make(chan struct{}, 1)
	timer := NewTimer(5*time.Second, func() { first <- struct{}{} })
	remaining := timer.Pause()
	require.Greater(t, remaining, time.Duration(0))

	resumed := make(chan struct{})
	timer.Reset(10*time.Millisecond, func() { close(resumed) })

	select {
	case <-resumed:
	case <-time.After(2 * time.Second):
		t.Fatal("reset timer did not fire")
	}
	select {
	case <-first:
		t.Fatal("original callback fired after pause")
	default:
	}
}

func TestTimer_ResetSupersedesExpiredSchedule(t *testing.T) {
	old := make(chan struct{}, 1)
	timer := NewTimer(5*time.Millisecond, func() { old <- struct{}{} })
	timer.Stop()
	// Let the stopped schedule's runtime timer pass its deadline.
	time.Sleep(20 * time.Millisecond)

	fresh := make(chan struct{})
	timer.Reset(10*time.Millisecond, func() { close(fresh) })

	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("reset timer did not fire")
	}
	select {
	case <-old:
		t.Fatal("superseded callback fired after reset")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	timer := NewTimer(time.Minute, func() {})
	timer.Stop()
	timer.Stop()
}

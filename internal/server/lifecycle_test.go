package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// blockingService runs until stopped, flagging both transitions.
type blockingService struct {
	started atomic.Bool
	stopped atomic.Bool
	startFn func() error
}

func (b *blockingService) Start() error {
	b.started.Store(true)
	if b.startFn != nil {
		return b.startFn()
	}
	for !b.stopped.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (b *blockingService) Stop() {
	b.stopped.Store(true)
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestLifecycle_RunStartsAllAndStopsOnCancel(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	first := &blockingService{}
	second := &blockingService{}
	lc.Add("first", first)
	lc.Add("second", second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	waitFor(t, func() bool { return first.started.Load() && second.started.Load() }, "services to start")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	assert.True(t, first.stopped.Load())
	assert.True(t, second.stopped.Load())
}

func TestLifecycle_ServiceFailureTriggersShutdown(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	healthy := &blockingService{}
	broken := &blockingService{startFn: func() error { return errors.New("bind failed") }}
	lc.Add("healthy", healthy)
	lc.Add("broken", broken)

	done := make(chan error, 1)
	go func() { done <- lc.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err, "run swallows the failure after stopping everything")
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.True(t, healthy.stopped.Load())
}

func TestFuncService(t *testing.T) {
	var started, stopped bool
	svc := &FuncService{
		StartFn: func() error { started = true; return nil },
		StopFn:  func() { stopped = true },
	}

	require.NoError(t, svc.Start())
	assert.True(t, started)
	svc.Stop()
	assert.True(t, stopped)
}

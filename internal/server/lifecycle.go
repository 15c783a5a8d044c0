// Package server supervises the long-running pieces of a process:
// start them together, stop them in reverse on a signal or failure.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is one supervised component.
type Service interface {
	// Start runs the service and blocks until it stops or fails.
	Start() error
	// Stop asks the service to wind down.
	Stop()
}

// FuncService wraps a start/stop pair as a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }
func (f *FuncService) Stop()        { f.StopFn() }

// Lifecycle runs a set of named services. Startup follows registration
// order; shutdown walks it backwards so dependents go first.
type Lifecycle struct {
	logger  *zap.Logger
	entries []entry
	mu      sync.Mutex
}

type entry struct {
	name string
	svc  Service
}

// NewLifecycle creates an empty supervisor.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a service under name. Registration order is start
// order.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run launches every registered service and blocks until SIGINT,
// SIGTERM, a service failure, or context cancellation, then stops them
// all in reverse order.
//
// Postcondition: every service has been stopped when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, len(l.entries))
	for _, e := range l.entries {
		e := e
		go func() {
			l.logger.Info("starting service", zap.String("service", e.name))
			up := time.Now()
			if err := e.svc.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(up)))
				failures <- fmt.Errorf("service %s: %w", e.name, err)
				cancel()
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(l.entries)),
		zap.Duration("startup", time.Since(began)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-failures:
		l.logger.Error("service error, shutting down", zap.Error(err))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.stopAll()
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(began)))
	return nil
}

// stopAll winds the services down, last registered first.
func (l *Lifecycle) stopAll() {
	began := time.Now()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		stopStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", e.name))
		e.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(stopStart)))
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(began)))
}

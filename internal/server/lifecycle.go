// Package server runs the process lifecycle for the game server. The binary
// registers its long-lived pieces (HTTP listener, room drain, store
// connections, health polls) as services; Run starts them, waits for
// SIGINT/SIGTERM, and stops them in reverse registration order so the
// listener closes before rooms drain and rooms drain before their stores go
// away.
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

// Service is one long-running component of the game server.
type Service interface {
	// Start runs the service and blocks until it is stopped or fails.
	Start() error
	// Stop asks the service to wind down.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }

func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts registered services in order and stops them in reverse.
//
// Invariant: Stop order is the exact reverse of Add order. The binary relies
// on this to close the listener before room drain and room drain before the
// stores.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
	}
}

// Add registers a named service. Services start in registration order.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// AddPoll registers a recurring health check as a managed service: check runs
// every interval under a per-call timeout, and a failed check logs a warning
// rather than taking the server down. Stop ends the ticker goroutine, waits
// for any in-flight check, and then runs onStop (close the client, release
// the pool; nil means nothing to release).
//
// Postcondition: After Stop returns, check is never called again.
func (l *Lifecycle) AddPoll(name string, interval, timeout time.Duration, check func(context.Context) error, onStop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	var once sync.Once

	l.Add(name, &FuncService{
		StartFn: func() error {
			defer close(exited)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return nil
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					err := check(ctx)
					cancel()
					if err != nil {
						l.logger.Warn("health check failed",
							zap.String("service", name),
							zap.Error(err),
						)
					}
				}
			}
		},
		StopFn: func() {
			once.Do(func() { close(done) })
			<-exited
			if onStop != nil {
				onStop()
			}
		},
	})
}

// Run starts every registered service and blocks until a termination signal
// arrives (SIGINT or SIGTERM), the context is cancelled, or a service fails.
// It then stops all services in reverse order.
//
// Postcondition: Every service's Stop has been called when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(l.services))
	for _, ns := range l.services {
		ns := ns
		go func() {
			l.logger.Info("starting service",
				zap.String("service", ns.name),
			)
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(l.services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-errCh:
		l.logger.Error("service error, shutting down",
			zap.Error(err),
		)
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown()

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return nil
}

// shutdown stops services newest-first so dependents go before dependencies.
func (l *Lifecycle) shutdown() {
	shutdownStart := time.Now()
	for i := len(l.services) - 1; i >= 0; i-- {
		ns := l.services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service",
			zap.String("service", ns.name),
		)
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}

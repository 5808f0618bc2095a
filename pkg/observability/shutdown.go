package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedShutdownFunc struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager runs registered shutdown steps in registration order
type ShutdownManager struct {
	logger          logrus.FieldLogger
	shutdownTimeout time.Duration

	mu    sync.Mutex
	funcs []namedShutdownFunc
	done  bool
}

// NewShutdownManager creates a new shutdown manager. A zero timeout means steps are
// never abandoned.
func NewShutdownManager(logger logrus.FieldLogger, timeout time.Duration) *ShutdownManager {
	return &ShutdownManager{
		logger:          logger,
		shutdownTimeout: timeout,
	}
}

// RegisterShutdownFunc registers a named step
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedShutdownFunc{name: name, fn: fn})
}

// WaitForShutdown blocks until SIGINT/SIGTERM or ctx is done, then shuts down
func (sm *ShutdownManager) WaitForShutdown(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	sm.logger.Info("Starting graceful shutdown")

	return sm.Shutdown(context.Background())
}

// Shutdown runs every step once, sequentially. Later calls are no-ops.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	if sm.done {
		sm.mu.Unlock()
		return nil
	}
	sm.done = true
	funcs := sm.funcs
	sm.mu.Unlock()

	if sm.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.shutdownTimeout)
		defer cancel()
	}

	var errs []error
	for _, step := range funcs {
		if err := ctx.Err(); err != nil {
			sm.logger.WithField("step", step.name).Warn("Shutdown timeout reached, skipping remaining steps")
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			break
		}

		sm.logger.WithField("step", step.name).Debug("Executing shutdown step")
		if err := step.fn(ctx); err != nil {
			sm.logger.WithError(err).WithField("step", step.name).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors: %w", len(errs), errors.Join(errs...))
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}

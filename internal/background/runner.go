// Package background runs fire-and-forget reconciliation tasks after the
// triggering request has already responded. Best-effort by design: failures
// are logged and counted, never retried, never surfaced to a caller. There
// is no durable queue; a crash between submit and execution drops the task.
package background

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/metrics"
)

// Runner executes submitted tasks on detached goroutines.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a task runner. timeout bounds each task's context,
// which is detached from any request cancellation scope.
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Submit schedules a task and returns immediately.
func (r *Runner) Submit(name string, task func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("background task panicked",
					zap.String("task", name),
					zap.Any("panic", rec),
					zap.Stack("stacktrace"),
				)
				metrics.BackgroundTasksTotal.WithLabelValues(name, "error").Inc()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := task(ctx); err != nil {
			r.logger.Error("background task failed", zap.String("task", name), zap.Error(err))
			metrics.BackgroundTasksTotal.WithLabelValues(name, "error").Inc()
			return
		}
		metrics.BackgroundTasksTotal.WithLabelValues(name, "ok").Inc()
	}()
}

// Wait blocks until all in-flight tasks finish or the timeout expires.
// Used during graceful shutdown.
func (r *Runner) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

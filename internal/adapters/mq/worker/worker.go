// Package worker runs the single reconciliation loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/mq/queue"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// Queue defines how the loop receives tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
	Len(ctx context.Context) int
}

// Worker runs tasks one at a time.
type Worker interface {
	// Run drains the queue until ctx is cancelled, Shutdown is called or the
	// queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for the task in flight.
	Shutdown(ctx context.Context) error
}

// Loop implements Worker. Every task runs to completion before the next
// one starts, so tasks may touch shared domain state without locking.
type Loop struct {
	queue Queue
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewLoop creates a loop over q.
func NewLoop(q Queue, opts ...Option) *Loop {
	w := &Loop{
		queue:    q,
		name:     "loop",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "loop" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the loop.
func (w *Loop) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			w.runTask(ctx, t)
		}
	}
}

// Done is closed when Run returns.
func (w *Loop) Done() <-chan struct{} { return w.done }

// Shutdown signals the loop to stop and waits for it.
func (w *Loop) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// runTask executes one task, recovering from panics so a bad task cannot
// take the loop down.
func (w *Loop) runTask(ctx context.Context, t queue.Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "task panicked",
				logger.String("task", t.Name),
				logger.Any("panic", r),
			)
		}
		metrics.RecordTaskLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.UpdateQueueSize(w.queue.Len(ctx))
	}()

	if t.Run == nil {
		return
	}
	t.Run(ctx)
}

// Package queue is the FIFO feeding the reconciliation loop.
//
// Fetch completions, timer ticks and operator commands are all enqueued as
// tasks and drained by a single consumer, which gives arrival-order
// processing without locks around domain state.
package queue

import (
	"context"
	"sync"

	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Task is one unit of work for the loop.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task. It fails with ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue returns the channel tasks are delivered on. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Task

	Len(ctx context.Context) int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a task to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	select {
	case q.tasks <- t:
		metrics.UpdateQueueSize(len(q.tasks))
		return nil
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the task channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Task {
	return q.tasks
}

// Len returns the number of pending tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.tasks)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting tasks and closes the dequeue channel. Pending tasks
// can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

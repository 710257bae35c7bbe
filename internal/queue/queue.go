// Package queue provides an unbounded FIFO queue that is safe for concurrent
// producers and consumers.
//
// It backs both the ingress queue of every execution context and the result
// queue of a batch run. Consumers block on Pop until an item arrives or the
// queue is closed; Close plays the role of an end-of-stream sentinel, so
// consumers drain whatever is left and then observe ErrClosed.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

var ErrClosed = errors.New("queue is closed")

// Queue is an unbounded, thread-safe FIFO queue.
type Queue[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	ready  chan struct{} // closed when the queue leaves the empty state or is closed
	closed bool
}

// New creates an empty, open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: queue.New(),
		ready: make(chan struct{}),
	}
}

// Push appends v to the tail of the queue. It never blocks.
// Returns ErrClosed if Close has already been called.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.items.Add(v)
	if q.items.Length() == 1 {
		// Wake every consumer parked on the empty queue.
		close(q.ready)
		q.ready = make(chan struct{})
	}
	return nil
}

// Pop removes and returns the head of the queue, blocking until an item is
// available, the queue is closed and drained, or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if q.items.Length() > 0 {
			v := q.items.Remove().(T)
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		wait := q.ready
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-wait:
		}
	}
}

// TryPop removes and returns the head of the queue without blocking.
// The boolean is false if the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Remove().(T), true
}

// Drain removes and returns every queued item.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, q.items.Length())
	for q.items.Length() > 0 {
		out = append(out, q.items.Remove().(T))
	}
	return out
}

// Close marks the end of the stream. Items already queued can still be
// popped. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

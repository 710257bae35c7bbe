package types

import (
	"context"
	"sync"
)

// Future is a handle to a task that is in flight or already finished.
//
// It is shared between the submitter, who waits on it, and the executor,
// which completes it and runs completion callbacks. The first call to
// Complete wins; every waiter observes the same result.
type Future[R any] struct {
	id        int64
	done      chan struct{}
	once      sync.Once
	mu        sync.Mutex
	result    Result[R]
	callbacks []func(Result[R])
}

// NewFuture creates a pending future for the task with the given id.
func NewFuture[R any](id int64) *Future[R] {
	return &Future[R]{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the submission sequence number of the task.
func (f *Future[R]) ID() int64 {
	return f.id
}

// Complete resolves the future with r and fires the registered callbacks in
// registration order. It returns false if the future was already resolved.
func (f *Future[R]) Complete(r Result[R]) bool {
	completed := false
	f.once.Do(func() {
		r.ID = f.id

		f.mu.Lock()
		f.result = r
		callbacks := f.callbacks
		f.callbacks = nil
		close(f.done)
		f.mu.Unlock()

		for _, cb := range callbacks {
			cb(r)
		}
		completed = true
	})
	return completed
}

// OnComplete registers fn to run once the future resolves. If it has already
// resolved, fn runs immediately on the calling goroutine.
func (f *Future[R]) OnComplete(fn func(Result[R])) {
	f.mu.Lock()
	select {
	case <-f.done:
		r := f.result
		f.mu.Unlock()
		fn(r)
		return
	default:
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// Get blocks until the task finishes and returns its value and error.
// Subsequent calls return the same result.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.result.Value, f.result.Error
}

// GetWithContext waits for the result like Get, but gives up when ctx is done.
// The task itself is not cancelled.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Error
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking. ready is false while the task
// is still in flight.
func (f *Future[R]) TryGet() (value R, err error, ready bool) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Error, true
	default:
		var zero R
		return zero, nil, false
	}
}

// Done returns a channel that is closed once the future resolves.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the future has resolved.
func (f *Future[R]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the future resolves and returns the full Result.
func (f *Future[R]) Result() Result[R] {
	<-f.done
	return f.result
}

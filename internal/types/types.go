package types

import "context"

// Task is an opaque unit of asynchronous work. It receives the context of the
// execution context it runs on and produces a value or an error.
//
// Type parameters:
//   - R: The type of result produced by the task
type Task[R any] func(ctx context.Context) (R, error)

// Result represents the outcome of running a single task.
//
// Fields:
//   - Value: The value produced by the task (only valid if Error is nil)
//   - Error: Any error returned (or panic recovered) while running the task
//   - ID: The submission sequence number assigned by the executor
type Result[R any] struct {
	Value R
	Error error
	ID    int64
}

// Erase converts a typed task into one producing an untyped value, so it can
// travel through executors that are not generic.
func Erase[R any](task Task[R]) Task[any] {
	return func(ctx context.Context) (any, error) {
		return task(ctx)
	}
}

// Narrow converts an untyped result back to R. A nil value yields the zero R.
func Narrow[R any](r Result[any]) Result[R] {
	v, _ := r.Value.(R)
	return Result[R]{Value: v, Error: r.Error, ID: r.ID}
}

package pool

import (
	"context"

	"github.com/utkarsh5026/loopme/internal/types"
)

// Submit schedules a typed task on ex and returns a typed future for it.
//
// Example:
//
//	f, err := pool.Submit(ctx, ex, func(ctx context.Context) (int, error) {
//	    return 42, nil
//	})
//	v, err := f.Get()
func Submit[R any](ctx context.Context, ex Executor, task Task[R]) (*Future[R], error) {
	f, err := ex.Submit(ctx, types.Erase(task))
	if err != nil {
		return nil, err
	}

	typed := types.NewFuture[R](f.ID())
	f.OnComplete(func(r Result[any]) {
		typed.Complete(types.Narrow[R](r))
	})
	return typed, nil
}

// Run runs a typed task on ex and blocks until it finishes.
func Run[R any](ctx context.Context, ex Executor, task Task[R]) (R, error) {
	v, err := ex.Run(ctx, types.Erase(task))
	r, _ := v.(R)
	return r, err
}

// RunAsync runs a typed task on ex and waits for it until ctx is done.
func RunAsync[R any](ctx context.Context, ex Executor, task Task[R]) (R, error) {
	v, err := ex.RunAsync(ctx, types.Erase(task))
	r, _ := v.(R)
	return r, err
}

// RunMultiple runs typed tasks on ex with at most maxConcurrency in flight.
//
// Example:
//
//	batch, err := pool.RunMultiple(ctx, ex, tasks, pool.DefaultMaxConcurrency)
//	if err != nil {
//	    return err
//	}
//	for r := range batch.All() {
//	    fmt.Println(r.Index, r.Value, r.Err)
//	}
func RunMultiple[R any](ctx context.Context, ex Executor, tasks []Task[R], maxConcurrency int) (*Batch[R], error) {
	erased := make([]Task[any], len(tasks))
	for i, t := range tasks {
		erased[i] = types.Erase(t)
	}

	b, err := ex.RunMultiple(ctx, erased, maxConcurrency)
	if err != nil {
		return nil, err
	}
	return narrowBatch[R](b), nil
}

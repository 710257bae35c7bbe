package pool

import (
	"context"
	"errors"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/utkarsh5026/loopme/internal/queue"
)

// Batch is the result stream of a RunMultiple call. Results arrive in the
// order tasks finish, not the order they were submitted, and every task
// yields exactly one result. A Batch can be consumed once.
type Batch[R any] struct {
	results *queue.Queue[BatchResult[any]]
	size    int
}

// Len returns the number of tasks in the batch.
func (b *Batch[R]) Len() int {
	return b.size
}

// Next waits for the next finished task. ok is false once every result has
// been consumed. err is non-nil only if ctx ended first; the batch itself
// keeps running and a later Next picks up where this one left off.
func (b *Batch[R]) Next(ctx context.Context) (r BatchResult[R], ok bool, err error) {
	raw, err := b.results.Pop(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}

	v, _ := raw.Value.(R)
	return BatchResult[R]{Index: raw.Index, OK: raw.OK, Value: v, Err: raw.Err}, true, nil
}

// All returns an iterator over the results in completion order. Each step
// blocks until the next task finishes.
func (b *Batch[R]) All() iter.Seq[BatchResult[R]] {
	return func(yield func(BatchResult[R]) bool) {
		for {
			r, ok, _ := b.Next(context.Background())
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Collect blocks until the batch is finished and returns every result in
// completion order.
func (b *Batch[R]) Collect() []BatchResult[R] {
	return slices.Collect(b.All())
}

// narrowBatch views an untyped batch as a batch of R. Both share one stream.
func narrowBatch[R any](b *Batch[any]) *Batch[R] {
	return &Batch[R]{results: b.results, size: b.size}
}

// startBatch submits tasks to ex from a producer goroutine, keeping at most
// maxConcurrency of them in flight, and returns a Batch fed as they finish.
//
// If ctx ends before every task has been admitted, the remaining tasks are
// reported as failed with the admission error, usually ctx.Err().
func startBatch(ctx context.Context, ex Executor, tasks []Task[any], maxConcurrency int, cfg *executorConfig) (*Batch[any], error) {
	if maxConcurrency <= 0 {
		return nil, ErrInvalidConcurrency
	}

	b := &Batch[any]{
		results: queue.New[BatchResult[any]](),
		size:    len(tasks),
	}

	if len(tasks) == 0 {
		b.results.Close()
		return b, nil
	}

	cfg.logger.Debug("batch started", "tasks", len(tasks), "max_concurrency", maxConcurrency)
	go produce(ctx, ex, tasks, maxConcurrency, cfg, b.results)
	return b, nil
}

func produce(ctx context.Context, ex Executor, tasks []Task[any], maxConcurrency int, cfg *executorConfig, results *queue.Queue[BatchResult[any]]) {
	defer results.Close()

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var g errgroup.Group

	push := func(r BatchResult[any]) {
		_ = results.Push(r)
	}

	var stopErr error
	admitted := 0
	for i, task := range tasks {
		if stopErr = sem.Acquire(ctx, 1); stopErr != nil {
			break
		}
		if cfg.rateLimiter != nil {
			if stopErr = cfg.rateLimiter.Wait(ctx); stopErr != nil {
				sem.Release(1)
				break
			}
		}
		admitted++

		f, err := ex.Submit(ctx, task)
		if err != nil {
			sem.Release(1)
			push(BatchResult[any]{Index: i, Err: err})
			continue
		}

		g.Go(func() error {
			defer sem.Release(1)
			v, err := f.Get()
			push(BatchResult[any]{Index: i, OK: err == nil, Value: v, Err: err})
			return nil
		})
	}

	for i := admitted; i < len(tasks); i++ {
		push(BatchResult[any]{Index: i, Err: stopErr})
	}

	_ = g.Wait()
	cfg.logger.Debug("batch finished", "tasks", len(tasks), "admitted", admitted)
}

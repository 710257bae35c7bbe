package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/loopme/internal/scheduler"
)

// Executor runs tasks on one or more execution contexts and delivers their
// results back to synchronous or asynchronous callers.
//
// All methods are safe for concurrent use, including from inside a task that
// is itself running on the executor.
type Executor interface {
	// Submit schedules task and returns immediately with a future for its
	// outcome. It fails only with ErrExecutorClosed.
	Submit(ctx context.Context, task Task[any]) (*Future[any], error)

	// Run schedules task and blocks the calling goroutine until it finishes.
	// The task's error is returned unchanged.
	Run(ctx context.Context, task Task[any]) (any, error)

	// RunAsync schedules task and waits for it until ctx is done. When ctx
	// ends first the task keeps running and ctx.Err() is returned.
	RunAsync(ctx context.Context, task Task[any]) (any, error)

	// RunMultiple runs tasks with at most maxConcurrency in flight and
	// streams their results in completion order.
	RunMultiple(ctx context.Context, tasks []Task[any], maxConcurrency int) (*Batch[any], error)

	// Shutdown stops the executor. With wait set it blocks until running
	// tasks have returned. Calling it again is a no-op.
	Shutdown(ctx context.Context, wait bool) error
}

// taskRunner carries what both executor variants need to run a task: the
// configuration, the hooks and the submission sequence.
type taskRunner struct {
	config *executorConfig
	ids    atomic.Int64
}

func newTaskRunner(cfg *executorConfig) *taskRunner {
	return &taskRunner{config: cfg}
}

func (r *taskRunner) nextID() int64 {
	return r.ids.Add(1)
}

// execute runs task with hooks, the task timeout and panic recovery.
func (r *taskRunner) execute(ctx context.Context, id int64, task Task[any]) Result[any] {
	if r.config.beforeTaskStart != nil {
		r.config.beforeTaskStart(id)
	}

	start := time.Now()
	v, err := scheduler.ExecuteTask(ctx, task, r.config.taskTimeout)

	if errors.Is(err, ErrTaskPanicked) {
		r.config.logger.Warn("task panicked", "task_id", id, "error", err)
	}
	r.config.logger.Debug("task finished", "task_id", id, "duration", time.Since(start), "failed", err != nil)

	if r.config.onTaskEnd != nil {
		r.config.onTaskEnd(id, err)
	}
	return Result[any]{Value: v, Error: err, ID: id}
}

func await(f *Future[any], err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return f.Get()
}

func awaitContext(ctx context.Context, f *Future[any], err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return f.GetWithContext(ctx)
}

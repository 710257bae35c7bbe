package pool

import (
	"context"
	"slices"

	"github.com/utkarsh5026/loopme/internal/scheduler"
	"github.com/utkarsh5026/loopme/internal/types"
)

var _ Executor = (*LoopPool)(nil)

// LoopPool is an Executor backed by a fixed number of execution contexts.
// Every task goes to the context with the fewest tasks in flight and runs on
// its own goroutine under that context, which owns the task's ctx. With
// WithThreadPinning the task's thread is also restricted to the context's
// core.
type LoopPool struct {
	config *executorConfig
	runner *taskRunner
	group  *scheduler.Group
}

// NewLoopPool starts the execution contexts and returns once all of them are
// ready. If any context fails to start, those already running are torn down
// and a *StartError is returned.
//
// Example:
//
//	p, err := NewLoopPool(WithPoolSize(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(context.Background(), true)
func NewLoopPool(opts ...ExecutorOption) (*LoopPool, error) {
	cfg := newConfig(opts...)

	group, err := scheduler.NewGroup(scheduler.GroupConfig{
		Size:            cfg.poolSize,
		Pin:             cfg.pinThreads,
		ShutdownTimeout: cfg.shutdownTimeout,
		Logger:          cfg.logger,
	})
	if err != nil {
		return nil, err
	}

	return &LoopPool{
		config: cfg,
		runner: newTaskRunner(cfg),
		group:  group,
	}, nil
}

// NewBackgroundExecutor returns a LoopPool with a single execution context.
func NewBackgroundExecutor(opts ...ExecutorOption) (*LoopPool, error) {
	return NewLoopPool(append(slices.Clip(opts), WithPoolSize(1))...)
}

// Size returns the number of execution contexts.
func (p *LoopPool) Size() int {
	return p.group.Size()
}

// Stats returns the current and peak load of every execution context.
func (p *LoopPool) Stats() []LoadStat {
	return p.group.Stats()
}

func (p *LoopPool) Submit(ctx context.Context, task Task[any]) (*Future[any], error) {
	id := p.runner.nextID()
	f := types.NewFuture[any](id)

	err := p.group.Dispatch(ctx, &scheduler.Job{
		Run: func(lctx context.Context) {
			f.Complete(p.runner.execute(lctx, id, task))
		},
		Abort: func(err error) {
			f.Complete(Result[any]{Error: closedError(err)})
		},
	})
	if err != nil {
		return nil, closedError(err)
	}

	p.config.logger.Debug("task submitted", "task_id", id)
	return f, nil
}

func (p *LoopPool) Run(ctx context.Context, task Task[any]) (any, error) {
	return await(p.Submit(ctx, task))
}

func (p *LoopPool) RunAsync(ctx context.Context, task Task[any]) (any, error) {
	f, err := p.Submit(ctx, task)
	return awaitContext(ctx, f, err)
}

func (p *LoopPool) RunMultiple(ctx context.Context, tasks []Task[any], maxConcurrency int) (*Batch[any], error) {
	return startBatch(ctx, p, tasks, maxConcurrency, p.config)
}

// Shutdown stops every execution context. Tasks still queued fail with
// ErrExecutorClosed and running tasks see their context cancelled. With wait
// set it joins the contexts, except the one the caller is running on.
func (p *LoopPool) Shutdown(ctx context.Context, wait bool) error {
	return p.group.Shutdown(ctx, wait)
}

package pool

import (
	"context"
	"sync"

	"github.com/utkarsh5026/loopme/internal/scheduler"
	"github.com/utkarsh5026/loopme/internal/types"
)

type inlineKey struct{}

var _ Executor = (*InlineExecutor)(nil)

// InlineExecutor runs tasks on the caller's own scheduler instead of on
// dedicated execution contexts. Run executes the task on the calling
// goroutine; Submit starts it as a new goroutine.
//
// It is the executor a Manager installs until multithreading is enabled.
type InlineExecutor struct {
	config *executorConfig
	runner *taskRunner

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
	members scheduler.Members
}

// NewInlineExecutor creates an InlineExecutor. WithPoolSize and
// WithThreadPinning have no effect on it.
func NewInlineExecutor(opts ...ExecutorOption) *InlineExecutor {
	cfg := newConfig(opts...)
	return &InlineExecutor{
		config: cfg,
		runner: newTaskRunner(cfg),
	}
}

// track registers a task about to run. It returns false once the executor
// has been shut down.
func (e *InlineExecutor) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	e.running.Add(1)
	return true
}

func (e *InlineExecutor) Submit(ctx context.Context, task Task[any]) (*Future[any], error) {
	if !e.track() {
		return nil, ErrExecutorClosed
	}

	id := e.runner.nextID()
	f := types.NewFuture[any](id)
	// Submitted tasks outlive the submitter's cancellation.
	tctx := context.WithValue(context.WithoutCancel(ctx), inlineKey{}, e)

	go func() {
		defer e.running.Done()
		leave := e.members.Enter()
		defer leave()
		f.Complete(e.runner.execute(tctx, id, task))
	}()

	e.config.logger.Debug("task submitted", "task_id", id)
	return f, nil
}

func (e *InlineExecutor) Run(ctx context.Context, task Task[any]) (any, error) {
	if !e.track() {
		return nil, ErrExecutorClosed
	}
	defer e.running.Done()
	leave := e.members.Enter()
	defer leave()

	r := e.runner.execute(context.WithValue(ctx, inlineKey{}, e), e.runner.nextID(), task)
	return r.Value, r.Error
}

func (e *InlineExecutor) RunAsync(ctx context.Context, task Task[any]) (any, error) {
	f, err := e.Submit(ctx, task)
	return awaitContext(ctx, f, err)
}

func (e *InlineExecutor) RunMultiple(ctx context.Context, tasks []Task[any], maxConcurrency int) (*Batch[any], error) {
	return startBatch(ctx, e, tasks, maxConcurrency, e.config)
}

// Shutdown stops accepting tasks. With wait set it blocks until the tasks
// already started have returned, unless the caller is one of them.
func (e *InlineExecutor) Shutdown(ctx context.Context, wait bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if !wait {
		return nil
	}
	if owner, _ := ctx.Value(inlineKey{}).(*InlineExecutor); owner == e || e.members.Current() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.running.Wait()
		close(done)
	}()
	return scheduler.WaitUntil(ctx, done, e.config.shutdownTimeout)
}

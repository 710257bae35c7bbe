package pool

import (
	"context"
	"slices"
	"sync"
)

// Manager owns the executor that tasks are routed to and lets callers swap
// it at runtime. It is itself an Executor.
//
// Until an executor is installed, a Manager lazily creates an
// InlineExecutor on first use.
type Manager struct {
	mu       sync.Mutex
	executor Executor
	config   *executorConfig
	opts     []ExecutorOption
}

// NewManager creates a Manager. opts are applied to every executor the
// Manager builds itself.
func NewManager(opts ...ExecutorOption) *Manager {
	return &Manager{
		config: newConfig(opts...),
		opts:   opts,
	}
}

// Executor returns the installed executor, creating the default one if
// none is installed.
func (m *Manager) Executor() Executor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.executor == nil {
		m.executor = NewInlineExecutor(m.opts...)
	}
	return m.executor
}

// install replaces the current executor with next and returns the previous
// one, which may be nil.
func (m *Manager) install(next Executor) Executor {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.executor
	m.executor = next
	return prev
}

// EnableMultithreading switches to a LoopPool with poolSize execution
// contexts. The new pool is started before anything else changes: if it
// fails to start, the current executor stays installed and the error is
// returned. Otherwise the previous executor is shut down and waited for.
func (m *Manager) EnableMultithreading(ctx context.Context, poolSize int) error {
	next, err := NewLoopPool(append(slices.Clip(m.opts), WithPoolSize(poolSize))...)
	if err != nil {
		m.config.logger.Error("failed to enable multithreading", "pool_size", poolSize, "error", err)
		return err
	}

	m.config.logger.Info("multithreading enabled", "pool_size", poolSize)
	return m.retire(ctx, m.install(next))
}

// DisableMultithreading switches back to an InlineExecutor, shutting down
// the previous executor and waiting for it.
func (m *Manager) DisableMultithreading(ctx context.Context) error {
	m.config.logger.Info("multithreading disabled")
	return m.retire(ctx, m.install(NewInlineExecutor(m.opts...)))
}

// SetExecutor installs ex and returns the executor it replaced, or nil.
// The replaced executor is not shut down; the caller owns it.
func (m *Manager) SetExecutor(ex Executor) Executor {
	return m.install(ex)
}

func (m *Manager) retire(ctx context.Context, prev Executor) error {
	if prev == nil {
		return nil
	}
	if err := prev.Shutdown(ctx, true); err != nil {
		m.config.logger.Warn("previous executor did not shut down cleanly", "error", err)
		return err
	}
	return nil
}

func (m *Manager) Submit(ctx context.Context, task Task[any]) (*Future[any], error) {
	return m.Executor().Submit(ctx, task)
}

func (m *Manager) Run(ctx context.Context, task Task[any]) (any, error) {
	return m.Executor().Run(ctx, task)
}

func (m *Manager) RunAsync(ctx context.Context, task Task[any]) (any, error) {
	return m.Executor().RunAsync(ctx, task)
}

func (m *Manager) RunMultiple(ctx context.Context, tasks []Task[any], maxConcurrency int) (*Batch[any], error) {
	return m.Executor().RunMultiple(ctx, tasks, maxConcurrency)
}

// Shutdown shuts down the installed executor. The next use of the Manager
// installs a fresh default executor.
func (m *Manager) Shutdown(ctx context.Context, wait bool) error {
	prev := m.install(nil)
	if prev == nil {
		return nil
	}
	return prev.Shutdown(ctx, wait)
}

var _ Executor = (*Manager)(nil)

var defaultManager = NewManager()

// Default returns the process-wide Manager.
func Default() *Manager {
	return defaultManager
}

// EnableMultithreading switches the process-wide Manager to a LoopPool of
// poolSize execution contexts.
func EnableMultithreading(poolSize int) error {
	return defaultManager.EnableMultithreading(context.Background(), poolSize)
}

// DisableMultithreading switches the process-wide Manager back to an
// InlineExecutor.
func DisableMultithreading() error {
	return defaultManager.DisableMultithreading(context.Background())
}

// SetExecutor installs ex on the process-wide Manager and returns the
// executor it replaced.
func SetExecutor(ex Executor) Executor {
	return defaultManager.SetExecutor(ex)
}

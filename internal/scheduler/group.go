package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utkarsh5026/loopme/internal/cpu"
)

// Group is a fixed-size set of execution contexts plus the load table used
// to balance jobs across them.
type Group struct {
	mu     sync.RWMutex
	loops  []*Loop
	table  *LoadTable
	config GroupConfig
	logger *slog.Logger
}

// NewGroup starts conf.Size execution contexts and returns once every one of
// them is bound to its thread. If any context fails to start, the ones already
// running are stopped and joined and a *StartError is returned.
func NewGroup(conf GroupConfig) (*Group, error) {
	if conf.Size < 1 {
		return nil, ErrInvalidPoolSize
	}

	logger := conf.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lock := conf.lockThread
	if lock == nil {
		lock = func(id int) (func(), error) {
			return cpu.LockWorkerThread(id, conf.Pin)
		}
	}

	var bind func(id int) error
	if conf.Pin {
		bind = conf.bindJob
		if bind == nil {
			bind = cpu.PinJobThread
		}
	}

	loops := make([]*Loop, 0, conf.Size)
	for i := range conf.Size {
		l := newLoop(i, logger, bind)
		if err := l.start(lock); err != nil {
			for _, started := range loops {
				started.Stop()
			}
			for _, started := range loops {
				<-started.Done()
			}
			logger.Error("execution context failed to start", "context", i, "error", err)
			return nil, &StartError{Context: i, Err: err}
		}
		loops = append(loops, l)
	}

	logger.Info("execution contexts started", "pool_size", conf.Size, "pinned", conf.Pin)

	return &Group{
		loops:  loops,
		table:  NewLoadTable(conf.Size),
		config: conf,
		logger: logger,
	}, nil
}

// Size returns the number of execution contexts the group was created with.
func (g *Group) Size() int {
	return g.config.Size
}

// Closed reports whether Shutdown has been called.
func (g *Group) Closed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loops == nil
}

// Stats returns the load of every context.
func (g *Group) Stats() []LoadStat {
	return g.table.Stats()
}

// Dispatch sends job to the least-loaded context. The context's charge is
// released exactly once, after the job has run or been aborted.
func (g *Group) Dispatch(ctx context.Context, job *Job) error {
	g.mu.RLock()
	loops := g.loops
	g.mu.RUnlock()

	if len(loops) == 0 {
		return ErrSchedulerClosed
	}

	idx := g.table.Acquire()

	var once sync.Once
	release := func() {
		once.Do(func() { g.table.Release(idx) })
	}

	wrapped := &Job{
		Run: func(ctx context.Context) {
			defer release()
			job.Run(ctx)
		},
		Abort: func(err error) {
			defer release()
			job.Abort(err)
		},
	}

	if err := loops[idx].Schedule(ctx, wrapped); err != nil {
		release()
		return err
	}
	return nil
}

// Shutdown stops every context and, if wait is set, joins them. The context
// the caller is running on is not joined: it is recognised either through ctx
// or, when the job did not forward its context, through the calling
// goroutine. The join is bounded by the configured shutdown timeout and by
// ctx. Calling Shutdown again is a no-op.
func (g *Group) Shutdown(ctx context.Context, wait bool) error {
	g.mu.Lock()
	loops := g.loops
	g.loops = nil
	g.mu.Unlock()

	if len(loops) == 0 {
		return nil
	}

	g.logger.Info("stopping execution contexts", "pool_size", len(loops), "wait", wait)
	for _, l := range loops {
		l.Stop()
	}

	if !wait {
		return nil
	}

	self := FromContext(ctx)
	joins := make([]*Loop, 0, len(loops))
	for _, l := range loops {
		if l == self || l.Hosts() {
			g.logger.Debug("not joining the caller's own context", "context", l.id)
			continue
		}
		joins = append(joins, l)
	}

	joined := make(chan struct{})
	go func() {
		defer close(joined)
		for _, l := range joins {
			<-l.Done()
		}
	}()

	if err := WaitUntil(ctx, joined, g.config.ShutdownTimeout); err != nil {
		g.logger.Warn("execution contexts did not stop", "error", err)
		return err
	}

	g.logger.Info("execution contexts stopped", "pool_size", len(loops))
	return nil
}

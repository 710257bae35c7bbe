package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utkarsh5026/loopme/internal/queue"
)

type loopKey struct{}

// Loop is a single execution context: a long-lived goroutine holding its own
// OS thread that accepts jobs from any goroutine through an unbounded ingress
// queue.
//
// Every accepted job runs as its own goroutine, so jobs on the same loop may
// block or wait on each other without starving their siblings. When the loop
// is pinned, each job goroutine is bound to a thread restricted to the loop's
// core before it runs. The loop owns the context passed to its jobs and
// cancels it when stopped.
type Loop struct {
	id      int
	ingress *queue.Queue[*Job]
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger

	// bind restricts a job goroutine's thread to the loop's core; nil when
	// the loop is not pinned.
	bind func(id int) error

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
	members Members
	done    chan struct{}
}

func newLoop(id int, logger *slog.Logger, bind func(id int) error) *Loop {
	base, cancel := context.WithCancel(context.Background())
	l := &Loop{
		id:      id,
		ingress: queue.New[*Job](),
		cancel:  cancel,
		logger:  logger,
		bind:    bind,
		done:    make(chan struct{}),
	}
	l.ctx = context.WithValue(base, loopKey{}, l)
	return l
}

// FromContext returns the loop a job is running on, or nil if ctx was not
// handed out by a loop.
func FromContext(ctx context.Context) *Loop {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(loopKey{}).(*Loop)
	return l
}

// ID returns the index of the loop inside its group.
func (l *Loop) ID() int {
	return l.id
}

// Hosts reports whether the calling goroutine is one of the loop's jobs.
func (l *Loop) Hosts() bool {
	return l.members.Current()
}

// Done returns a channel that is closed once the loop goroutine has exited
// and every job it started has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// start launches the loop goroutine and waits until it is bound to its
// thread. A binding failure is returned and leaves the loop stopped.
func (l *Loop) start(lock func(id int) (func(), error)) error {
	ready := make(chan error, 1)
	go l.run(lock, ready)

	if err := <-ready; err != nil {
		l.Stop()
		return err
	}
	return nil
}

func (l *Loop) run(lock func(id int) (func(), error), ready chan<- error) {
	defer close(l.done)

	unlock, err := lock(l.id)
	if err != nil {
		ready <- err
		return
	}
	defer unlock()

	ready <- nil
	l.logger.Debug("execution context started", "context", l.id)

	for {
		job, err := l.ingress.Pop(l.ctx)
		if err != nil {
			break
		}
		if !l.spawn(job) {
			job.Abort(ErrSchedulerClosed)
		}
	}

	aborted := l.ingress.Drain()
	for _, job := range aborted {
		job.Abort(ErrSchedulerClosed)
	}

	l.running.Wait()
	l.logger.Debug("execution context stopped", "context", l.id, "aborted", len(aborted))
}

// Schedule hands job to the loop. It never blocks. When the caller is a job
// already running on this loop the new job is started directly, without a
// trip through the ingress queue.
func (l *Loop) Schedule(ctx context.Context, job *Job) error {
	if FromContext(ctx) == l || l.Hosts() {
		if !l.spawn(job) {
			return ErrSchedulerClosed
		}
		return nil
	}

	if err := l.ingress.Push(job); err != nil {
		return ErrSchedulerClosed
	}
	return nil
}

// spawn starts job on its own goroutine. It reports false once the loop has
// been stopped.
func (l *Loop) spawn(job *Job) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.running.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.running.Done()

		leave := l.members.Enter()
		defer leave()

		if l.bind != nil {
			if err := l.bind(l.id); err != nil {
				l.logger.Warn("failed to bind job to its context's core", "context", l.id, "error", err)
			}
		}
		job.Run(l.ctx)
	}()
	return true
}

// Stop signals the loop to exit. Jobs still queued are aborted and running
// jobs see their context cancelled. Stop does not wait; use Done for that.
// Stop is idempotent and safe to call from a job running on the loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()

	l.ingress.Close()
	l.cancel()
}

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is a unit of work handed to a Loop.
type Job struct {
	// Run executes the job. ctx identifies the loop it runs on and is
	// cancelled when that loop stops.
	Run func(ctx context.Context)

	// Abort is called instead of Run when the loop stops before the job
	// could start. err is ErrSchedulerClosed.
	Abort func(err error)
}

// GroupConfig holds the configuration of a group of execution contexts.
type GroupConfig struct {
	// Number of execution contexts. Must be at least one.
	Size int

	// If true, pin every context's OS thread to its own core and run each
	// job on a thread restricted to the core of the context it went to.
	Pin bool

	// Upper bound on joining the contexts during Shutdown (0 = wait forever).
	ShutdownTimeout time.Duration

	// Logger for lifecycle events. Defaults to a logger that discards everything.
	Logger *slog.Logger

	// lockThread binds a loop goroutine to its thread. Replaced in tests.
	lockThread func(id int) (func(), error)

	// bindJob binds a job goroutine to its context's core when Pin is set.
	// Replaced in tests.
	bindJob func(id int) error
}

// LoadStat is a snapshot of one execution context's load.
type LoadStat struct {
	// Index of the context in the group.
	Context int

	// Jobs dispatched to the context and not yet finished.
	Pending int

	// Highest Pending value observed since the group started.
	Peak int
}

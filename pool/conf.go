package pool

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultPoolSize is the number of execution contexts a LoopPool starts
	// when WithPoolSize is not given.
	DefaultPoolSize = 1

	// DefaultMaxConcurrency is the batch concurrency used by callers that
	// have no better value.
	DefaultMaxConcurrency = 10
)

// ExecutorOption is a functional option for configuring an executor.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	poolSize        int
	logger          *slog.Logger
	pinThreads      bool
	shutdownTimeout time.Duration
	taskTimeout     time.Duration
	rateLimit       float64
	rateBurst       int
	rateLimiter     *rate.Limiter
	beforeTaskStart func(id int64)
	onTaskEnd       func(id int64, err error)
}

func newConfig(opts ...ExecutorOption) *executorConfig {
	cfg := &executorConfig{
		poolSize: DefaultPoolSize,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.rateLimit > 0 && cfg.rateBurst > 0 {
		cfg.rateLimiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst)
	}
	return cfg
}

// WithPoolSize sets the number of execution contexts of a LoopPool.
// Values below one are rejected by NewLoopPool with ErrInvalidPoolSize.
func WithPoolSize(n int) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.poolSize = n
	}
}

// WithLogger sets the structured logger used for lifecycle and task events.
// Without it nothing is logged.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(cfg *executorConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithThreadPinning pins every execution context to its own CPU core. Each
// task then runs on a dedicated OS thread restricted to the core of the
// context it was dispatched to; that thread is discarded when the task
// returns. Only supported on Linux and Windows; elsewhere pool construction
// fails with a *StartError.
func WithThreadPinning(enabled bool) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.pinThreads = enabled
	}
}

// WithShutdownTimeout bounds how long Shutdown(ctx, true) waits for the
// execution contexts to finish. Zero waits forever.
func WithShutdownTimeout(d time.Duration) ExecutorOption {
	return func(cfg *executorConfig) {
		if d >= 0 {
			cfg.shutdownTimeout = d
		}
	}
}

// WithTaskTimeout gives every task a context that expires after d.
// Tasks that ignore their context are not interrupted. Zero means no deadline.
func WithTaskTimeout(d time.Duration) ExecutorOption {
	return func(cfg *executorConfig) {
		if d >= 0 {
			cfg.taskTimeout = d
		}
	}
}

// WithRateLimit limits how fast RunMultiple admits tasks.
// tasksPerSecond is the sustained rate and burst the number of tasks that may
// be admitted at once. If not specified, admission is bounded only by the
// batch concurrency. Every executor built from the option gets its own
// limiter.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.rateLimit = tasksPerSecond
		cfg.rateBurst = burst
	}
}

// WithBeforeTaskStart registers a hook called right before a task starts
// running. id is the task's submission sequence number.
func WithBeforeTaskStart(fn func(id int64)) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called after a task returns, with the error
// it produced (nil on success).
func WithOnTaskEnd(fn func(id int64, err error)) ExecutorOption {
	return func(cfg *executorConfig) {
		cfg.onTaskEnd = fn
	}
}

package cli

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/utkarsh5026/loopme/internal/config"
	"github.com/utkarsh5026/loopme/pool"
)

var errSimulatedFailure = errors.New("simulated task failure")

// workload generates simulated tasks. Each task sleeps for its duration,
// honoring its context, and returns how long it actually ran.
type workload struct {
	tasks    int
	duration time.Duration
	jitter   time.Duration
	failRate float64
}

func newWorkload(cfg *config.BenchConfig) *workload {
	return &workload{
		tasks:    cfg.Tasks,
		duration: cfg.TaskDuration,
		jitter:   cfg.Jitter,
		failRate: cfg.FailRate,
	}
}

func (w *workload) Tasks() []pool.Task[time.Duration] {
	tasks := make([]pool.Task[time.Duration], w.tasks)
	for i := range tasks {
		d := w.duration
		if w.jitter > 0 {
			d += rand.N(w.jitter)
		}
		fail := w.failRate > 0 && rand.Float64() < w.failRate
		tasks[i] = simulatedTask(d, fail)
	}
	return tasks
}

func simulatedTask(d time.Duration, fail bool) pool.Task[time.Duration] {
	return func(ctx context.Context) (time.Duration, error) {
		start := time.Now()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		}

		if fail {
			return time.Since(start), errSimulatedFailure
		}
		return time.Since(start), nil
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/utkarsh5026/loopme/internal/types"
)

var (
	ErrSchedulerClosed error = errors.New("scheduler is closed")
	ErrShutdownTimeout error = errors.New("error in shutting down: timeout reached")
	ErrInvalidPoolSize error = errors.New("pool size must be at least one")
	ErrTaskPanicked    error = errors.New("task panicked")
)

// StartError reports that an execution context could not be started.
// Construction of the whole group fails when any context fails to start.
type StartError struct {
	Context int
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("execution context %d failed to start: %v", e.Context, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// ExecuteTask runs task with panic recovery. A panic is converted into an
// error wrapping ErrTaskPanicked so that it never takes a worker down.
// If timeout is positive, the context handed to the task carries that deadline.
func ExecuteTask[R any](ctx context.Context, task types.Task[R], timeout time.Duration) (result R, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanicked, r, buf[:n])
		}
	}()

	return task(ctx)
}

// WaitUntil blocks until d is closed, the timeout elapses, or ctx is done.
// A non-positive timeout waits without a deadline.
func WaitUntil(ctx context.Context, d <-chan struct{}, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-d:
		return nil
	case <-expired:
		return ErrShutdownTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

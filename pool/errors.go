package pool

import (
	"errors"

	"github.com/utkarsh5026/loopme/internal/scheduler"
)

var (
	ErrExecutorClosed     = errors.New("executor is closed")
	ErrInvalidConcurrency = errors.New("max concurrency must be positive")

	ErrInvalidPoolSize = scheduler.ErrInvalidPoolSize
	ErrShutdownTimeout = scheduler.ErrShutdownTimeout
	ErrTaskPanicked    = scheduler.ErrTaskPanicked
)

// StartError reports that the execution context with index Context could not
// be started, which fails construction of the whole pool.
type StartError = scheduler.StartError

// closedError translates scheduler-level closed errors into ErrExecutorClosed.
func closedError(err error) error {
	if errors.Is(err, scheduler.ErrSchedulerClosed) {
		return ErrExecutorClosed
	}
	return err
}

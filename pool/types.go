package pool

import (
	"github.com/utkarsh5026/loopme/internal/scheduler"
	"github.com/utkarsh5026/loopme/internal/types"
)

// Task is a unit of asynchronous work producing a value of type R.
// The ctx it receives identifies the execution context it runs on and is
// cancelled when that context shuts down.
type Task[R any] = types.Task[R]

// Future is a handle to a submitted task.
type Future[R any] = types.Future[R]

// Result is the outcome of a single task.
type Result[R any] = types.Result[R]

// LoadStat is a snapshot of one execution context's load.
type LoadStat = scheduler.LoadStat

// BatchResult is one entry of a RunMultiple batch, delivered in completion
// order.
//
// Fields:
//   - Index: Position of the task in the submitted slice
//   - OK: Whether the task succeeded
//   - Value: The task's value (only valid if OK)
//   - Err: The task's failure (only valid if !OK)
type BatchResult[R any] struct {
	Index int
	OK    bool
	Value R
	Err   error
}

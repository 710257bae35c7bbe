// Package cpu binds execution-context and job goroutines to OS threads and,
// where the platform allows it, pins those threads to a CPU core.
package cpu

import (
	"errors"
	"runtime"
)

// ErrPinningUnsupported is returned when CPU pinning is requested on a
// platform that does not support it.
var ErrPinningUnsupported = errors.New("cpu pinning is not supported on this platform")

// LockWorkerThread locks the calling goroutine to its OS thread. When pin is
// set, the thread is also restricted to a single core chosen from workerID.
// The returned function undoes the lock and must be deferred by the caller.
// If pinning fails the thread is unlocked again before the error is returned.
func LockWorkerThread(workerID int, pin bool) (func(), error) {
	runtime.LockOSThread()

	if pin {
		if _, err := pinToCore(workerID); err != nil {
			runtime.UnlockOSThread()
			return nil, err
		}
	}

	return runtime.UnlockOSThread, nil
}

// PinJobThread locks the calling goroutine to its OS thread and restricts that
// thread to the core chosen from workerID, the same core LockWorkerThread
// picks for that id. The lock is never released: the thread exits together
// with the goroutine, so the changed affinity cannot leak to other goroutines.
func PinJobThread(workerID int) error {
	runtime.LockOSThread()
	_, err := pinToCore(workerID)
	return err
}

// GetNumCPU returns the number of logical CPUs available.
func GetNumCPU() int {
	return runtime.NumCPU()
}

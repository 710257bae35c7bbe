// Package pool runs asynchronous tasks on a pool of execution contexts and
// hands their results back to synchronous or asynchronous callers.
//
// A task is a func(ctx context.Context) (R, error). An Executor accepts
// tasks and returns futures, blocks until they finish, or runs a whole batch
// with bounded concurrency and streams the results as they complete.
//
// # Executors
//
//   - InlineExecutor: runs tasks on the caller's own scheduler. Run executes
//     on the calling goroutine.
//   - LoopPool: a fixed number of execution contexts. Tasks go to the context
//     with the fewest tasks in flight and run on their own goroutines under
//     it. With thread pinning each task's thread is restricted to the core of
//     its context.
//
// # Basic Usage
//
//	ex, err := pool.NewLoopPool(pool.WithPoolSize(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Shutdown(context.Background(), true)
//
//	v, err := pool.Run(ctx, ex, func(ctx context.Context) (int, error) {
//	    return 21 * 2, nil
//	})
//
// # Batches
//
// RunMultiple admits at most maxConcurrency tasks at once and yields one
// BatchResult per task in completion order:
//
//	batch, err := pool.RunMultiple(ctx, ex, tasks, 5)
//	for r := range batch.All() {
//	    if !r.OK {
//	        log.Printf("task %d failed: %v", r.Index, r.Err)
//	        continue
//	    }
//	    fmt.Println(r.Index, r.Value)
//	}
//
// A failing task never aborts the batch. Use Batch.Next to wait for results
// with a context.
//
// # Reentrant Submission
//
// The ctx passed to a task identifies the execution context it runs on.
// Passing it back to Submit, Run or RunMultiple from inside the task is safe:
// work aimed at the same context is started directly, and Shutdown called
// from inside a task does not wait for the context it runs on.
//
// # Manager
//
// A Manager owns the current executor and lets the application switch
// between inline and pooled execution at runtime:
//
//	if err := pool.EnableMultithreading(4); err != nil {
//	    log.Fatal(err)
//	}
//	v, err := pool.Run(ctx, pool.Default(), task)
//
// # Configuration Options
//
//   - WithPoolSize(n): Number of execution contexts (default: 1)
//   - WithLogger(l): Structured logger (default: discards everything)
//   - WithThreadPinning(true): Pin each context, and the tasks it runs, to a CPU core
//   - WithShutdownTimeout(d): Bound on Shutdown(ctx, true)
//   - WithTaskTimeout(d): Deadline applied to every task's ctx
//   - WithRateLimit(tasksPerSecond, burst): Rate limit batch admission
//   - WithBeforeTaskStart(fn) / WithOnTaskEnd(fn): Lifecycle hooks
//
// # Error Handling
//
// Task errors are returned unchanged. Panics are recovered and returned as
// errors wrapping ErrTaskPanicked with the stack trace. Submitting to a shut
// down executor fails with ErrExecutorClosed, and tasks still queued when
// their context stops fail with the same error.
package pool

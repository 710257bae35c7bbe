package benchmarks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/utkarsh5026/loopme/pool"
)

// =============================================================================
// Workload Generators
// =============================================================================

// cpuBoundWork simulates a CPU-intensive operation
func cpuBoundWork(iterations, seed int) pool.Task[int] {
	return func(ctx context.Context) (int, error) {
		result := 0
		for i := range iterations {
			result += i * seed
		}
		return result, nil
	}
}

// ioBoundWork simulates an I/O operation with a delay
func ioBoundWork(delay time.Duration, v int) pool.Task[int] {
	return func(ctx context.Context) (int, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return v * 2, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// =============================================================================
// Executor Variants
// =============================================================================

type executorConfig struct {
	name string
	new  func(b *testing.B) pool.Executor
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func getAllExecutors() []executorConfig {
	configs := []executorConfig{
		{
			name: "Inline",
			new: func(b *testing.B) pool.Executor {
				return pool.NewInlineExecutor(pool.WithLogger(discard()))
			},
		},
	}

	for _, size := range []int{1, 4, runtime.NumCPU()} {
		configs = append(configs, executorConfig{
			name: fmt.Sprintf("LoopPool_%d", size),
			new: func(b *testing.B) pool.Executor {
				p, err := pool.NewLoopPool(pool.WithPoolSize(size), pool.WithLogger(discard()))
				if err != nil {
					b.Fatalf("failed to start loop pool: %v", err)
				}
				return p
			},
		})
	}
	return configs
}

func runExecutorBenchmark(b *testing.B, fn func(b *testing.B, ex pool.Executor)) {
	for _, cfg := range getAllExecutors() {
		b.Run(cfg.name, func(b *testing.B) {
			ex := cfg.new(b)
			defer ex.Shutdown(context.Background(), true)
			fn(b, ex)
		})
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkRun(b *testing.B) {
	runExecutorBenchmark(b, func(b *testing.B, ex pool.Executor) {
		task := cpuBoundWork(100, 3)
		b.ReportAllocs()
		for b.Loop() {
			if _, err := pool.Run(context.Background(), ex, task); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkSubmitParallel(b *testing.B) {
	runExecutorBenchmark(b, func(b *testing.B, ex pool.Executor) {
		task := cpuBoundWork(100, 3)
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				f, err := pool.Submit(context.Background(), ex, task)
				if err != nil {
					b.Error(err)
					return
				}
				_, _ = f.Get()
			}
		})
	})
}

func BenchmarkRunMultiple(b *testing.B) {
	workloads := []struct {
		name string
		task func(i int) pool.Task[int]
	}{
		{"CPU", func(i int) pool.Task[int] { return cpuBoundWork(10_000, i) }},
		{"IO", func(i int) pool.Task[int] { return ioBoundWork(time.Millisecond, i) }},
	}

	for _, w := range workloads {
		for _, limit := range []int{pool.DefaultMaxConcurrency, 100} {
			b.Run(fmt.Sprintf("%s/limit=%d", w.name, limit), func(b *testing.B) {
				runExecutorBenchmark(b, func(b *testing.B, ex pool.Executor) {
					tasks := make([]pool.Task[int], 1000)
					for i := range tasks {
						tasks[i] = w.task(i)
					}

					b.ReportAllocs()
					for b.Loop() {
						batch, err := pool.RunMultiple(context.Background(), ex, tasks, limit)
						if err != nil {
							b.Fatal(err)
						}
						for range batch.All() {
						}
					}
				})
			})
		}
	}
}

package pool

import (
	"context"
	"log/slog"
	"testing"
)

// executorVariant defines a test configuration for one executor implementation
type executorVariant struct {
	name string
	new  func(t *testing.T, opts ...ExecutorOption) Executor
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// getAllExecutors returns every executor variant to test
func getAllExecutors(poolSize int) []executorVariant {
	return []executorVariant{
		{
			name: "Inline",
			new: func(t *testing.T, opts ...ExecutorOption) Executor {
				return NewInlineExecutor(append(opts, WithLogger(quietLogger()))...)
			},
		},
		{
			name: "LoopPool",
			new: func(t *testing.T, opts ...ExecutorOption) Executor {
				p, err := NewLoopPool(append(opts, WithPoolSize(poolSize), WithLogger(quietLogger()))...)
				if err != nil {
					t.Fatalf("failed to start loop pool: %v", err)
				}
				return p
			},
		},
		{
			name: "Manager",
			new: func(t *testing.T, opts ...ExecutorOption) Executor {
				m := NewManager(append(opts, WithLogger(quietLogger()))...)
				if err := m.EnableMultithreading(context.Background(), poolSize); err != nil {
					t.Fatalf("failed to enable multithreading: %v", err)
				}
				return m
			},
		},
	}
}

// runExecutorTest runs testFunc once per executor variant. Every executor is
// shut down when its subtest ends.
func runExecutorTest(t *testing.T, testFunc func(t *testing.T, ex Executor), poolSize int, opts ...ExecutorOption) {
	for _, variant := range getAllExecutors(poolSize) {
		t.Run(variant.name, func(t *testing.T) {
			ex := variant.new(t, opts...)
			t.Cleanup(func() { _ = ex.Shutdown(context.Background(), true) })
			testFunc(t, ex)
		})
	}
}

package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type validationError struct {
	field string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("invalid %s", e.field)
}

func TestExecutor_Run(t *testing.T) {
	t.Run("returns value", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			v, err := Run(context.Background(), ex, func(ctx context.Context) (string, error) {
				return "done", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "done", v)
		}, 2)
	})

	t.Run("returns task error unchanged", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			_, err := Run(context.Background(), ex, func(ctx context.Context) (int, error) {
				return 0, fmt.Errorf("wrapped: %w", &validationError{field: "name"})
			})

			var ve *validationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "name", ve.field)
		}, 2)
	})

	t.Run("recovers panics", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			_, err := Run(context.Background(), ex, func(ctx context.Context) (int, error) {
				panic("unexpected nil")
			})
			require.ErrorIs(t, err, ErrTaskPanicked)
			assert.Contains(t, err.Error(), "unexpected nil")
			assert.Contains(t, err.Error(), "stack trace")

			v, err := Run(context.Background(), ex, func(ctx context.Context) (int, error) {
				return 7, nil
			})
			require.NoError(t, err)
			assert.Equal(t, 7, v)
		}, 1)
	})
}

func TestExecutor_Submit(t *testing.T) {
	t.Run("future resolves once", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			f, err := Submit(context.Background(), ex, func(ctx context.Context) (int, error) {
				time.Sleep(20 * time.Millisecond)
				return 99, nil
			})
			require.NoError(t, err)

			first, err := f.Get()
			require.NoError(t, err)
			second, err := f.Get()
			require.NoError(t, err)

			assert.Equal(t, 99, first)
			assert.Equal(t, first, second)
			assert.True(t, f.IsReady())
		}, 2)
	})

	t.Run("submission ids are unique", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			seen := make(map[int64]bool)
			for range 50 {
				f, err := ex.Submit(context.Background(), func(ctx context.Context) (any, error) {
					return nil, nil
				})
				require.NoError(t, err)
				assert.False(t, seen[f.ID()], "duplicate id %d", f.ID())
				seen[f.ID()] = true
			}
		}, 2)
	})

	t.Run("does not block on slow tasks", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			release := make(chan struct{})
			defer close(release)

			start := time.Now()
			for range 10 {
				_, err := ex.Submit(context.Background(), func(ctx context.Context) (any, error) {
					<-release
					return nil, nil
				})
				require.NoError(t, err)
			}
			assert.Less(t, time.Since(start), 100*time.Millisecond)
		}, 1)
	})
}

func TestExecutor_RunAsync(t *testing.T) {
	runExecutorTest(t, func(t *testing.T, ex Executor) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		var finished atomic.Bool
		_, err := RunAsync(ctx, ex, func(context.Context) (int, error) {
			time.Sleep(100 * time.Millisecond)
			finished.Store(true)
			return 1, nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)

		assert.Eventually(t, finished.Load, time.Second, 10*time.Millisecond,
			"the task keeps running after the caller stops waiting")
	}, 1)
}

func TestExecutor_ReentrantSubmission(t *testing.T) {
	runExecutorTest(t, func(t *testing.T, ex Executor) {
		done := make(chan struct{})
		var result int
		var err error

		go func() {
			defer close(done)
			result, err = Run(context.Background(), ex, func(ctx context.Context) (int, error) {
				inner, err := RunAsync(ctx, ex, func(ctx context.Context) (int, error) {
					return 20, nil
				})
				if err != nil {
					return 0, err
				}

				batch, err := RunMultiple(ctx, ex, []Task[int]{
					func(context.Context) (int, error) { return 1, nil },
					func(context.Context) (int, error) { return 2, nil },
				}, 2)
				if err != nil {
					return 0, err
				}
				for r := range batch.All() {
					inner += r.Value
				}
				return inner, nil
			})
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("submission from inside a task deadlocked")
		}
		require.NoError(t, err)
		assert.Equal(t, 23, result)
	}, 1)
}

func TestExecutor_TaskTimeout(t *testing.T) {
	runExecutorTest(t, func(t *testing.T, ex Executor) {
		_, err := Run(context.Background(), ex, func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Second):
				return 1, nil
			}
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}, 1, WithTaskTimeout(20*time.Millisecond))
}

func TestExecutor_Hooks(t *testing.T) {
	var mu sync.Mutex
	started := make(map[int64]bool)
	ended := make(map[int64]error)

	opts := []ExecutorOption{
		WithBeforeTaskStart(func(id int64) {
			mu.Lock()
			started[id] = true
			mu.Unlock()
		}),
		WithOnTaskEnd(func(id int64, err error) {
			mu.Lock()
			ended[id] = err
			mu.Unlock()
		}),
	}

	runExecutorTest(t, func(t *testing.T, ex Executor) {
		mu.Lock()
		clear(started)
		clear(ended)
		mu.Unlock()

		ok, err := ex.Submit(context.Background(), func(ctx context.Context) (any, error) {
			return "fine", nil
		})
		require.NoError(t, err)
		bad, err := ex.Submit(context.Background(), func(ctx context.Context) (any, error) {
			return nil, errBoom
		})
		require.NoError(t, err)

		_, _ = ok.Get()
		_, _ = bad.Get()

		mu.Lock()
		defer mu.Unlock()
		assert.True(t, started[ok.ID()])
		assert.True(t, started[bad.ID()])
		assert.NoError(t, ended[ok.ID()])
		assert.ErrorIs(t, ended[bad.ID()], errBoom)
	}, 2, opts...)
}

func TestExecutor_Shutdown(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			require.NoError(t, ex.Shutdown(context.Background(), true))
			require.NoError(t, ex.Shutdown(context.Background(), true))
			require.NoError(t, ex.Shutdown(context.Background(), false))
		}, 2)
	})

	t.Run("waits for running tasks", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			var finished atomic.Int32
			started := make(chan struct{}, 3)
			for range 3 {
				_, err := ex.Submit(context.Background(), func(ctx context.Context) (any, error) {
					started <- struct{}{}
					time.Sleep(50 * time.Millisecond)
					finished.Add(1)
					return nil, nil
				})
				require.NoError(t, err)
			}
			for range 3 {
				<-started
			}

			require.NoError(t, ex.Shutdown(context.Background(), true))
			assert.Equal(t, int32(3), finished.Load())
		}, 2)
	})

	t.Run("from inside a task", func(t *testing.T) {
		runExecutorTest(t, func(t *testing.T, ex Executor) {
			f, err := ex.Submit(context.Background(), func(ctx context.Context) (any, error) {
				return nil, ex.Shutdown(ctx, true)
			})
			require.NoError(t, err)

			select {
			case <-f.Done():
			case <-time.After(2 * time.Second):
				t.Fatal("shutdown from inside a task deadlocked")
			}
			_, err = f.Get()
			assert.NoError(t, err)
		}, 2)
	})
}

func TestExecutor_Closed(t *testing.T) {
	executors := map[string]func(t *testing.T) Executor{
		"Inline": func(t *testing.T) Executor {
			return NewInlineExecutor(WithLogger(quietLogger()))
		},
		"LoopPool": func(t *testing.T) Executor {
			p, err := NewLoopPool(WithPoolSize(2), WithLogger(quietLogger()))
			require.NoError(t, err)
			return p
		},
	}

	for name, build := range executors {
		t.Run(name, func(t *testing.T) {
			ex := build(t)
			require.NoError(t, ex.Shutdown(context.Background(), true))

			task := func(ctx context.Context) (any, error) { return nil, nil }

			_, err := ex.Submit(context.Background(), task)
			assert.ErrorIs(t, err, ErrExecutorClosed)
			_, err = ex.Run(context.Background(), task)
			assert.ErrorIs(t, err, ErrExecutorClosed)
			_, err = ex.RunAsync(context.Background(), task)
			assert.ErrorIs(t, err, ErrExecutorClosed)

			batch, err := ex.RunMultiple(context.Background(), []Task[any]{task, task}, 2)
			require.NoError(t, err)
			for r := range batch.All() {
				assert.False(t, r.OK)
				assert.ErrorIs(t, r.Err, ErrExecutorClosed)
			}
		})
	}
}

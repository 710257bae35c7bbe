package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarsh5026/loopme/internal/cpu"
	"github.com/utkarsh5026/loopme/pool"
)

func isolatedManager(t *testing.T, configPath string) *Manager {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	return NewManager(configPath, viper.New())
}

func TestManager_LoadDefaults(t *testing.T) {
	cfg, err := isolatedManager(t, "").Load()
	require.NoError(t, err)

	assert.Equal(t, cpu.GetNumCPU(), cfg.PoolSize)
	assert.Equal(t, pool.DefaultMaxConcurrency, cfg.MaxConcurrency)
	assert.Equal(t, 100, cfg.Tasks)
	assert.Equal(t, 50*time.Millisecond, cfg.TaskDuration)
	assert.Equal(t, OutputTable, cfg.Output)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestManager_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := `pool_size: 2
max_concurrency: 8
tasks: 12
task_duration: 5ms
fail_rate: 0.25
output: json
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := isolatedManager(t, path).Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.PoolSize)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, 12, cfg.Tasks)
	assert.Equal(t, 5*time.Millisecond, cfg.TaskDuration)
	assert.InDelta(t, 0.25, cfg.FailRate, 1e-9)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestManager_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool_size: 2\n"), 0o600))

	m := isolatedManager(t, path)
	t.Setenv("LOOPBENCH_POOL_SIZE", "6")

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.PoolSize)
}

func TestManager_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool_size: [unclosed\n"), 0o600))

	_, err := isolatedManager(t, path).Load()
	assert.Error(t, err)
}

func TestBenchConfig_Validate(t *testing.T) {
	valid := func() BenchConfig {
		return BenchConfig{PoolSize: 1, MaxConcurrency: 1, Tasks: 1, Output: OutputTable}
	}

	tests := []struct {
		name   string
		mutate func(c *BenchConfig)
		want   error
	}{
		{"valid", func(c *BenchConfig) {}, nil},
		{"negative pool size", func(c *BenchConfig) { c.PoolSize = -1 }, pool.ErrInvalidPoolSize},
		{"zero concurrency", func(c *BenchConfig) { c.MaxConcurrency = 0 }, pool.ErrInvalidConcurrency},
		{"negative tasks", func(c *BenchConfig) { c.Tasks = -5 }, ErrInvalidTasks},
		{"fail rate above one", func(c *BenchConfig) { c.FailRate = 1.5 }, ErrInvalidFailRate},
		{"unknown output", func(c *BenchConfig) { c.Output = "xml" }, ErrInvalidOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBenchConfig_ExecutorOptions(t *testing.T) {
	c := BenchConfig{RateLimit: 100, Burst: 5}
	assert.Len(t, c.ExecutorOptions(slog.Default()), 5)

	c.RateLimit = 0
	assert.Len(t, c.ExecutorOptions(slog.Default()), 4)
}

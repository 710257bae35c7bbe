// Package config loads the loopbench configuration from flags, environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/utkarsh5026/loopme/internal/cpu"
	"github.com/utkarsh5026/loopme/pool"
)

const (
	defaultConfigName = "loopbench"
	defaultConfigDir  = ".loopbench"
	envPrefix         = "LOOPBENCH"
)

// Output formats understood by the run command.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var (
	ErrInvalidTasks    = errors.New("tasks must not be negative")
	ErrInvalidFailRate = errors.New("fail rate must be between 0 and 1")
	ErrInvalidOutput   = errors.New("output must be one of table, json, yaml")
)

// BenchConfig is the full set of knobs of a benchmark run.
type BenchConfig struct {
	// Execution contexts. Zero runs the batch inline.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`

	// Tasks allowed in flight at once.
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency" json:"max_concurrency"`

	// Number of simulated tasks.
	Tasks int `mapstructure:"tasks" yaml:"tasks" json:"tasks"`

	// Base duration of every task and the random spread added to it.
	TaskDuration time.Duration `mapstructure:"task_duration" yaml:"task_duration" json:"task_duration"`
	Jitter       time.Duration `mapstructure:"jitter" yaml:"jitter" json:"jitter"`

	// Probability that a task fails.
	FailRate float64 `mapstructure:"fail_rate" yaml:"fail_rate" json:"fail_rate"`

	// Admission rate limit in tasks per second; zero disables it.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst" json:"burst"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout" yaml:"task_timeout" json:"task_timeout"`
	PinThreads      bool          `mapstructure:"pin_threads" yaml:"pin_threads" json:"pin_threads"`

	Output   string `mapstructure:"output" yaml:"output" json:"output"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
}

// Manager resolves a BenchConfig. Flags bound to its viper instance take
// precedence over environment variables, which take precedence over the file.
type Manager struct {
	configPath string
	viper      *viper.Viper
}

// NewManager creates a configuration manager. An empty configPath searches
// the working directory and $HOME/.loopbench for loopbench.yaml.
func NewManager(configPath string, v *viper.Viper) *Manager {
	if v == nil {
		v = viper.New()
	}
	return &Manager{
		configPath: configPath,
		viper:      v,
	}
}

// Load reads the configuration. A missing config file is not an error.
func (m *Manager) Load() (*BenchConfig, error) {
	m.setDefaults()

	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		m.viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		}
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix(envPrefix)
	m.viper.AutomaticEnv()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &BenchConfig{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *Manager) setDefaults() {
	m.viper.SetDefault("pool_size", cpu.GetNumCPU())
	m.viper.SetDefault("max_concurrency", pool.DefaultMaxConcurrency)
	m.viper.SetDefault("tasks", 100)
	m.viper.SetDefault("task_duration", 50*time.Millisecond)
	m.viper.SetDefault("jitter", 25*time.Millisecond)
	m.viper.SetDefault("fail_rate", 0.0)
	m.viper.SetDefault("rate_limit", 0.0)
	m.viper.SetDefault("burst", 1)
	m.viper.SetDefault("shutdown_timeout", 10*time.Second)
	m.viper.SetDefault("task_timeout", time.Duration(0))
	m.viper.SetDefault("pin_threads", false)
	m.viper.SetDefault("output", OutputTable)
	m.viper.SetDefault("log_level", "warn")
}

// Validate checks the values the executor itself does not check.
func (c *BenchConfig) Validate() error {
	if c.PoolSize < 0 {
		return fmt.Errorf("pool size %d: %w", c.PoolSize, pool.ErrInvalidPoolSize)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency %d: %w", c.MaxConcurrency, pool.ErrInvalidConcurrency)
	}
	if c.Tasks < 0 {
		return ErrInvalidTasks
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return ErrInvalidFailRate
	}
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%q: %w", c.Output, ErrInvalidOutput)
	}
	return nil
}

// ExecutorOptions translates the configuration into executor options.
func (c *BenchConfig) ExecutorOptions(logger *slog.Logger) []pool.ExecutorOption {
	opts := []pool.ExecutorOption{
		pool.WithLogger(logger),
		pool.WithThreadPinning(c.PinThreads),
		pool.WithShutdownTimeout(c.ShutdownTimeout),
		pool.WithTaskTimeout(c.TaskTimeout),
	}
	if c.RateLimit > 0 {
		opts = append(opts, pool.WithRateLimit(c.RateLimit, c.Burst))
	}
	return opts
}

// Level parses LogLevel, falling back to warn.
func (c *BenchConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

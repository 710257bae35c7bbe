package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/utkarsh5026/loopme/internal/config"
	"github.com/utkarsh5026/loopme/internal/cpu"
	"github.com/utkarsh5026/loopme/pool"
)

// flagKeys maps run flags to their configuration keys.
var flagKeys = map[string]string{
	"pool-size":        "pool_size",
	"max-concurrency":  "max_concurrency",
	"tasks":            "tasks",
	"task-duration":    "task_duration",
	"jitter":           "jitter",
	"fail-rate":        "fail_rate",
	"rate-limit":       "rate_limit",
	"burst":            "burst",
	"shutdown-timeout": "shutdown_timeout",
	"task-timeout":     "task_timeout",
	"pin-threads":      "pin_threads",
	"output":           "output",
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulated batch through the executor",
		Long: `Run submits a batch of simulated tasks, consumes the results as they
complete and prints a report. With --pool-size 0 the batch runs inline on the
calling process instead of on dedicated execution contexts.`,
		Example: `  loopbench run --pool-size 4 --tasks 500 --max-concurrency 50
  loopbench run --fail-rate 0.1 --output json
  LOOPBENCH_TASKS=1000 loopbench run --rate-limit 200 --burst 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewManager(opts.cfgFile, opts.viper).Load()
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Level(), opts.noColor)
			report, err := runBench(cmd.Context(), cfg, logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return renderReport(cmd.OutOrStdout(), report, cfg.Output)
		},
	}

	flags := cmd.Flags()
	flags.IntP("pool-size", "p", cpu.GetNumCPU(), "number of execution contexts (0 runs inline)")
	flags.IntP("max-concurrency", "c", pool.DefaultMaxConcurrency, "tasks allowed in flight at once")
	flags.IntP("tasks", "n", 100, "number of simulated tasks")
	flags.Duration("task-duration", 50*time.Millisecond, "base duration of every task")
	flags.Duration("jitter", 25*time.Millisecond, "random extra duration added to every task")
	flags.Float64("fail-rate", 0, "probability that a task fails (0-1)")
	flags.Float64("rate-limit", 0, "admission rate limit in tasks per second (0 disables it)")
	flags.Int("burst", 1, "admission burst size when rate limiting")
	flags.Duration("shutdown-timeout", 10*time.Second, "bound on waiting for the executor to stop")
	flags.Duration("task-timeout", 0, "per-task deadline (0 disables it)")
	flags.Bool("pin-threads", false, "pin every execution context to its own CPU core")
	flags.StringP("output", "o", config.OutputTable, "output format (table, json, yaml)")

	for flag, key := range flagKeys {
		_ = opts.viper.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

// runBench executes one benchmark run described by cfg. Progress is drawn on
// progress when the report is rendered as a table.
func runBench(ctx context.Context, cfg *config.BenchConfig, logger *slog.Logger, progress io.Writer) (*Report, error) {
	m := pool.NewManager(cfg.ExecutorOptions(logger)...)
	if cfg.PoolSize > 0 {
		if err := m.EnableMultithreading(ctx, cfg.PoolSize); err != nil {
			return nil, fmt.Errorf("failed to start executor: %w", err)
		}
	}

	report := newReport(cfg)
	start := time.Now()

	batch, err := pool.RunMultiple(ctx, m, newWorkload(cfg).Tasks(), cfg.MaxConcurrency)
	if err != nil {
		_ = m.Shutdown(context.Background(), false)
		return nil, err
	}

	bar := newProgressBar(progress, batch.Len(), cfg.Output == config.OutputTable)
	for r := range batch.All() {
		report.record(r)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	report.finish(time.Since(start))
	if lp, ok := m.Executor().(*pool.LoopPool); ok {
		report.setContexts(lp.Stats())
	}

	logger.Info("benchmark finished", "tasks", report.Tasks, "failed", report.Failed, "duration", report.Elapsed)

	if err := m.Shutdown(context.Background(), true); err != nil {
		return report, fmt.Errorf("executor did not shut down: %w", err)
	}
	return report, nil
}

func newProgressBar(w io.Writer, total int, enabled bool) *progressbar.ProgressBar {
	if !enabled || total == 0 {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Running tasks"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)
}

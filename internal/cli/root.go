// Package cli implements the loopbench command line interface.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

type rootOptions struct {
	cfgFile string
	noColor bool
	viper   *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "loopbench",
		Short: "loopbench - exercise the loopme executors",
		Long: `loopbench drives a simulated workload through the loopme executors.
It runs a batch of tasks with bounded concurrency on a pool of execution
contexts and reports throughput, latency and per-context load.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./loopbench.yaml or $HOME/.loopbench/loopbench.yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	_ = opts.viper.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newLogger builds the structured logger used by the executors.
func newLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if noColor {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

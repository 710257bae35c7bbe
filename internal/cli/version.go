package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			module := "unknown"
			if info, ok := debug.ReadBuildInfo(); ok {
				module = info.Main.Path
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "loopbench %s (%s, %s %s/%s)\n",
				Version, module, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}

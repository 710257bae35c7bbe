package main

import (
	"log/slog"
	"os"

	"github.com/utkarsh5026/loopme/internal/cli"
)

func main() {
	ctx := cli.SetupSignalHandler()

	if err := cli.Execute(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

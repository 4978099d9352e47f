package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gpacalc/gpacalc/cmd"
	"github.com/gpacalc/gpacalc/internal/buildinfo"
	"github.com/gpacalc/gpacalc/internal/conf"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var settings conf.Settings
	rootCmd := cmd.RootCommand(&settings)
	rootCmd.Version = buildinfo.Current().String()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raoulx24/dropzip/internal/cli"
)

func main() {
	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, os.Args); err != nil {
		os.Exit(1)
	}
}

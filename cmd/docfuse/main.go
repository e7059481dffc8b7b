package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/docfuse/docfuse/cmd/docfuse/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

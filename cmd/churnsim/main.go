// Package main provides the churnsim command that generates a labeled churn
// dataset with a known ground truth.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ churnsim: %v\n", err)
		stop()
		os.Exit(1)
	}
}

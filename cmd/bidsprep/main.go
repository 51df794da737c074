package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	// An interrupted scan or log follow exits quietly.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bidsprep: %v\n", err)
	}
	os.Exit(1)
}

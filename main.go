package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/plode/nmpopup/cmd"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, version)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

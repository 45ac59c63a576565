// Package main provides the linemuxctl entrypoint.
//
// Usage:
//
//	linemuxctl [--addr PATH] [--format text|json|yaml] <command> [args]
//
// Exit codes:
//   - 0: success
//   - 1: connection failure, timeout or usage error
//   - 2: the service answered with an error message
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wagiedev/linemux-go/internal/cli"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(version)
	app.ExitErrHandler = cli.ExitErrHandler

	if err := app.RunContext(ctx, os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(cli.ExitFailure)
	}
}

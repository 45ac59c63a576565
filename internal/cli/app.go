package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	linemux "github.com/wagiedev/linemux-go"
)

// Exit codes.
const (
	// ExitFailure covers connection failures, timeouts and usage errors.
	ExitFailure = 1
	// ExitRemoteError means the service answered with an error message.
	ExitRemoteError = 2
)

// Global flags.
var (
	AddrFlag = &cli.StringFlag{
		Name:    "addr",
		Aliases: []string{"a"},
		Usage:   "Service socket address",
		EnvVars: []string{"LINEMUX_ADDR"},
		Value:   linemux.DefaultAddress,
	}

	NetworkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Network passed to the dialer: unix or tcp",
		Value: "unix",
	}

	ConnectTimeoutFlag = &cli.DurationFlag{
		Name:  "connect-timeout",
		Usage: "Connect attempt timeout",
		Value: linemux.DefaultConnectTimeout,
	}

	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json, yaml",
		Value:   string(FormatText),
	}

	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log connection and request events to stderr",
	}
)

// NewApp builds the linemuxctl application. The caller sets ExitErrHandler
// if it wants exit codes applied.
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "linemuxctl",
		Usage:   "Send requests to a line-protocol service",
		Version: version,
		Flags: []cli.Flag{
			AddrFlag,
			NetworkFlag,
			ConnectTimeoutFlag,
			FormatFlag,
			VerboseFlag,
		},
		Commands: []*cli.Command{
			PingCommand(),
			CallCommand(),
			StreamCommand(),
		},
	}
}

// clientOptions maps global flags to client options.
func clientOptions(c *cli.Context) []linemux.Option {
	log := linemux.NopLogger()
	if c.Bool("verbose") {
		log = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return []linemux.Option{
		linemux.WithAddress(c.String("addr")),
		linemux.WithConnectTimeout(c.Duration("connect-timeout")),
		linemux.WithDialer(&linemux.NetDialer{Network: c.String("network")}),
		linemux.WithLogger(log),
	}
}

// withClient connects, runs fn and closes, mapping failures to exit codes.
func withClient(c *cli.Context, fn func(ctx context.Context, client linemux.Client, r *Renderer) error) error {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), ExitFailure)
	}

	r := NewRenderer(format, c.App.Writer)

	ctx := c.Context

	err = linemux.WithClient(ctx, func(client linemux.Client) error {
		return fn(ctx, client, r)
	}, clientOptions(c)...)

	if closeErr := r.Close(); err == nil && closeErr != nil {
		err = closeErr
	}

	return exitError(err)
}

// exitError attaches an exit code to err.
func exitError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := errors.AsType[*linemux.ProtocolError](err); ok {
		return cli.Exit(err.Error(), ExitRemoteError)
	}

	return cli.Exit(err.Error(), ExitFailure)
}

// ExitErrHandler prints err and exits with its code.
func ExitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	if exitCoder, ok := errors.AsType[cli.ExitCoder](err); ok {
		if msg := exitCoder.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}

		os.Exit(exitCoder.ExitCode())
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitFailure)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	linemux "github.com/wagiedev/linemux-go"
)

// TimeoutFlag sets the per-request timeout of ping and call.
var TimeoutFlag = &cli.DurationFlag{
	Name:    "timeout",
	Aliases: []string{"t"},
	Usage:   "Request timeout",
	Value:   linemux.DefaultRequestTimeout,
}

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check that the service answers",
		Flags:  []cli.Flag{TimeoutFlag},
		Action: pingAction,
	}
}

func pingAction(c *cli.Context) error {
	timeout := c.Duration("timeout")

	return withClient(c, func(ctx context.Context, client linemux.Client, r *Renderer) error {
		start := time.Now()

		msgs, err := client.Send(ctx, client.NewRequest("ping"), timeout)
		if err != nil {
			return err
		}

		if r.format != FormatText {
			return renderAll(r, msgs)
		}

		_, err = fmt.Fprintf(c.App.Writer, "%s from %s in %s\n",
			msgs[len(msgs)-1].Op, c.String("addr"), time.Since(start).Round(time.Microsecond))

		return err
	})
}

// CallCommand returns the call command.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Send one request and print every message of the reply",
		ArgsUsage: "CALL [ARG...]",
		Flags:     []cli.Flag{TimeoutFlag},
		Action:    callAction,
	}
}

func callAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("call: missing CALL", ExitFailure)
	}

	call := c.Args().First()
	args := ParseArgs(c.Args().Tail())
	timeout := c.Duration("timeout")

	return withClient(c, func(ctx context.Context, client linemux.Client, r *Renderer) error {
		msgs, err := client.Send(ctx, client.NewRequest(call, args...), timeout)
		if err != nil {
			return err
		}

		return renderAll(r, msgs)
	})
}

// StreamCommand returns the stream command.
func StreamCommand() *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Send one request and print messages as they arrive",
		ArgsUsage: "CALL [ARG...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Stop after this many messages (0 = until the reply ends)",
			},
		},
		Action: streamAction,
	}
}

func streamAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("stream: missing CALL", ExitFailure)
	}

	call := c.Args().First()
	args := ParseArgs(c.Args().Tail())
	limit := c.Int("limit")

	return withClient(c, func(ctx context.Context, client linemux.Client, r *Renderer) error {
		seen := 0

		for msg, err := range client.Stream(ctx, client.NewRequest(call, args...)) {
			if err != nil {
				return err
			}

			if err := r.Message(msg); err != nil {
				return err
			}

			seen++
			if limit > 0 && seen >= limit {
				break
			}
		}

		return nil
	})
}

func renderAll(r *Renderer, msgs []*linemux.Message) error {
	for _, msg := range msgs {
		if err := r.Message(msg); err != nil {
			return err
		}
	}

	return nil
}

package client

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/wagiedev/linemux-go/internal/config"
	"github.com/wagiedev/linemux-go/internal/message"
	"github.com/wagiedev/linemux-go/internal/protocol"
	"github.com/wagiedev/linemux-go/internal/transport"
)

// Client multiplexes requests over one connection to the remote service.
type Client struct {
	log     *slog.Logger
	options *config.Options
	manager *transport.Manager
	corr    *protocol.Correlator
}

// New creates a disconnected client. Unset options take their defaults.
func New(options *config.Options) *Client {
	options = options.Normalize()

	manager := transport.NewManager(options.Logger, options.Dialer)

	return &Client{
		log:     options.Logger.With("component", "client"),
		options: options,
		manager: manager,
		corr:    protocol.NewCorrelator(options.Logger, manager, options.RequestTimeout),
	}
}

// Connect opens the connection to the configured address. A non-nil
// override replaces the address or connect timeout for this call only.
//
// It fails with ErrAlreadyConnected while connecting or connected, with
// ErrConnectTimeout when the attempt outlives ConnectTimeout, and with a
// connection error carrying ECONNREFUSED when the dial fails.
func (c *Client) Connect(ctx context.Context, override *config.ConnectOptions) error {
	address, timeout := c.options.Address, c.options.ConnectTimeout

	if override != nil {
		if override.Address != "" {
			address = override.Address
		}

		if override.Timeout > 0 {
			timeout = override.Timeout
		}
	}

	c.log.Debug("Connecting client", "address", address)

	if err := c.manager.Connect(ctx, address, timeout, c.corr); err != nil {
		return fmt.Errorf("connect %s: %w", address, err)
	}

	return nil
}

// Close terminates the connection and fails every pending request with
// ErrConnectionReset. It is safe to call in any state, any number of times.
// The client may be connected again afterwards.
func (c *Client) Close() error {
	return c.manager.Close()
}

// State returns the connection state.
func (c *Client) State() transport.State {
	return c.manager.State()
}

// GenerateID returns a request id never handed out before by this client.
func (c *Client) GenerateID() string {
	return c.corr.GenerateID()
}

// NewRequest builds a request for call with a fresh id.
func (c *Client) NewRequest(call string, args ...any) message.Request {
	return message.NewRequest(c.GenerateID(), call, args...)
}

// Send writes req and returns every message received for it once the
// terminal one arrives. A zero timeout uses the configured RequestTimeout.
func (c *Client) Send(ctx context.Context, req message.Request, timeout time.Duration) ([]*message.Message, error) {
	return c.corr.Send(ctx, req, timeout)
}

// Stream writes req on first pull and yields its messages as they arrive.
func (c *Client) Stream(ctx context.Context, req message.Request) iter.Seq2[*message.Message, error] {
	return c.corr.Stream(ctx, req)
}

// Pending returns the number of requests waiting for messages.
func (c *Client) Pending() int {
	return c.corr.Pending()
}

package linemux

import (
	"context"
	"iter"
	"time"

	"github.com/wagiedev/linemux-go/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

func newClientImpl(opts []Option) Client {
	return &clientWrapper{impl: client.New(applyOptions(opts))}
}

func (c *clientWrapper) Connect(ctx context.Context, opts ...ConnectOption) error {
	return c.impl.Connect(ctx, applyConnectOptions(opts))
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}

func (c *clientWrapper) State() State {
	return c.impl.State()
}

func (c *clientWrapper) GenerateID() string {
	return c.impl.GenerateID()
}

func (c *clientWrapper) NewRequest(call string, args ...any) Request {
	return c.impl.NewRequest(call, args...)
}

func (c *clientWrapper) Send(ctx context.Context, req Request, timeout time.Duration) ([]*Message, error) {
	return c.impl.Send(ctx, req, timeout)
}

func (c *clientWrapper) Stream(ctx context.Context, req Request) iter.Seq2[*Message, error] {
	return c.impl.Stream(ctx, req)
}

func (c *clientWrapper) Pending() int {
	return c.impl.Pending()
}

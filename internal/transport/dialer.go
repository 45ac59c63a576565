package transport

import (
	"context"
	"io"
	"net"

	"github.com/wagiedev/linemux-go/internal/config"
)

// Compile-time verification that NetDialer implements the Dialer interface.
var _ config.Dialer = (*NetDialer)(nil)

// NetDialer dials a net.Conn. The zero value dials unix sockets.
type NetDialer struct {
	// Network is passed to net.Dialer.DialContext. Defaults to "unix".
	Network string

	// Dialer carries low-level socket options.
	Dialer net.Dialer
}

// Dial implements config.Dialer.
func (d *NetDialer) Dial(ctx context.Context, address string) (io.ReadWriteCloser, error) {
	network := d.Network
	if network == "" {
		network = "unix"
	}

	return d.Dialer.DialContext(ctx, network, address)
}

package linemux

import (
	"github.com/wagiedev/linemux-go/internal/config"
	"github.com/wagiedev/linemux-go/internal/transport"
)

// Dialer opens the byte stream to the remote service.
// Implement this to connect over something other than a unix socket, or to
// inject an in-memory stream in tests.
//
// The default implementation is NetDialer, which dials a unix socket.
// Custom dialers can be injected via WithDialer.
type Dialer = config.Dialer

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc = config.DialerFunc

// NetDialer dials through net.Dialer. The zero value dials unix sockets;
// set Network to "tcp" for TCP addresses.
type NetDialer = transport.NetDialer

package linemux

import (
	"context"
	"iter"
	"time"
)

// Client multiplexes many concurrent request/response exchanges over a
// single connection to a line-protocol service.
//
// Every request carries an id; every message the service sends back carries
// the id it belongs to. Send collects all messages for a request until a
// terminal one arrives. Stream yields them one at a time as they arrive.
//
// A Client may be connected again after Close or after the remote side
// hangs up. Request ids keep increasing across reconnects.
//
// Example usage:
//
//	client := linemux.NewClient(
//	    linemux.WithAddress("/run/svc.sock"),
//	    linemux.WithLogger(slog.Default()),
//	)
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Collect the whole reply
//	msgs, err := client.Send(ctx, client.NewRequest("stat", "/etc"), 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Or consume a long reply as it arrives
//	for msg, err := range client.Stream(ctx, client.NewRequest("list", "/")) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // Process message...
//	}
type Client interface {
	// Connect opens the connection. It fails with ErrAlreadyConnected,
	// leaving the state unchanged, unless the client is disconnected.
	// A dial failure is a *ConnectionError with code ECONNREFUSED; an
	// attempt that outlives the connect timeout fails with ErrConnectTimeout.
	// ConnectOptions override the address or timeout for this call only.
	Connect(ctx context.Context, opts ...ConnectOption) error

	// Close terminates the connection and fails every pending Send and
	// Stream with ErrConnectionReset. Safe to call in any state, any number
	// of times.
	Close() error

	// State returns the connection state.
	State() State

	// GenerateID returns a fresh request id: "1", "2", ...
	GenerateID() string

	// NewRequest builds a request for call with a fresh id.
	NewRequest(call string, args ...any) Request

	// Send writes req and waits for its terminal message. It returns every
	// message received for req.ID in arrival order, the terminal one last.
	// An error-tagged terminal is returned as a *ProtocolError. A zero
	// timeout uses the configured request timeout.
	Send(ctx context.Context, req Request, timeout time.Duration) ([]*Message, error)

	// Stream returns a sequence that writes req on first pull and yields
	// each message for req.ID as it arrives, ending after the terminal one.
	// Streams have no timeout. Breaking out of the loop releases the id.
	// The sequence can be ranged over once.
	Stream(ctx context.Context, req Request) iter.Seq2[*Message, error]

	// Pending returns the number of requests still waiting for messages.
	Pending() int
}

// NewClient creates a disconnected client.
//
//	client := linemux.NewClient(linemux.WithAddress("/run/svc.sock"))
//	err := client.Connect(ctx)
func NewClient(opts ...Option) Client {
	return newClientImpl(opts)
}

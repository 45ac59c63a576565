package config

import (
	"context"
	"io"
)

// Dialer opens the byte stream to the remote service.
// Implement this to connect over something other than a local socket,
// or to inject an in-memory stream in tests.
//
// The returned stream is owned by the caller: linemux reads from it on a
// single goroutine, serializes writes, and closes it on teardown. Dial must
// return promptly once ctx is cancelled.
type Dialer interface {
	Dial(ctx context.Context, address string) (io.ReadWriteCloser, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address string) (io.ReadWriteCloser, error)

// Dial implements Dialer.
func (fn DialerFunc) Dial(ctx context.Context, address string) (io.ReadWriteCloser, error) {
	return fn(ctx, address)
}

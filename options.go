package linemux

import (
	"log/slog"
	"time"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithAddress sets the address handed to the dialer.
// Defaults to DefaultAddress.
func WithAddress(address string) Option {
	return func(o *Options) {
		o.Address = address
	}
}

// WithConnectTimeout bounds each connect attempt.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = timeout
	}
}

// WithRequestTimeout sets the default Send timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = timeout
	}
}

// WithDialer replaces the unix socket dialer.
func WithDialer(dialer Dialer) Option {
	return func(o *Options) {
		o.Dialer = dialer
	}
}

// ConnectOption overrides a client setting for one Connect call.
type ConnectOption func(*ConnectOptions)

func applyConnectOptions(opts []ConnectOption) *ConnectOptions {
	if len(opts) == 0 {
		return nil
	}

	options := &ConnectOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ConnectTo dials address instead of the client's address.
func ConnectTo(address string) ConnectOption {
	return func(o *ConnectOptions) {
		o.Address = address
	}
}

// ConnectWithin bounds this attempt by timeout instead of the client's
// connect timeout.
func ConnectWithin(timeout time.Duration) ConnectOption {
	return func(o *ConnectOptions) {
		o.Timeout = timeout
	}
}

package config

import (
	"log/slog"
	"time"
)

const (
	// DefaultAddress is the well-known local socket of the remote service.
	DefaultAddress = "/tmp/linemux.sock"

	// DefaultConnectTimeout bounds a single connect attempt.
	DefaultConnectTimeout = 5000 * time.Millisecond

	// DefaultRequestTimeout bounds how long Send waits for a terminal message.
	DefaultRequestTimeout = 30000 * time.Millisecond
)

// Options configures a linemux client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Address is passed to Dialer. Defaults to DefaultAddress.
	Address string

	// ConnectTimeout bounds a connect attempt. Defaults to DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// RequestTimeout is the default per-request timeout for Send.
	// Defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Dialer opens the byte stream. If nil, a unix socket dialer is used.
	Dialer Dialer `json:"-"`
}

// Normalize returns a copy of o with every unset field filled with its
// default. A nil receiver yields all defaults. The Dialer is left nil when
// unset so the caller can pick its own default.
func (o *Options) Normalize() *Options {
	out := &Options{}
	if o != nil {
		*out = *o
	}

	if out.Logger == nil {
		out.Logger = DiscardLogger()
	}

	if out.Address == "" {
		out.Address = DefaultAddress
	}

	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}

	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}

	return out
}

// DiscardLogger is the logger used when Options.Logger is unset.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ConnectOptions overrides the client's Address and ConnectTimeout for a
// single Connect call. Zero fields keep the client's values.
type ConnectOptions struct {
	Address string
	Timeout time.Duration
}

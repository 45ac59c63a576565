// Package errors defines error types for linemux.
//
// Errors fall into four groups: state errors (ErrNotConnected,
// ErrAlreadyConnected), connection errors (*ConnectionError carrying a stable
// code), timeout errors (ErrConnectTimeout, ErrRequestTimeout, both matching
// ErrTimeout), and protocol errors (*ProtocolError, reported by the remote
// side). All error types support unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors

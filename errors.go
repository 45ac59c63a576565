package linemux

import "github.com/wagiedev/linemux-go/internal/errors"

// Re-export error types from internal package

// MuxError is the base interface for all linemux errors.
type MuxError = errors.MuxError

// ConnectionError indicates the connection could not be established, was
// reset, or a write failed. Code is one of the Code* constants.
type ConnectionError = errors.ConnectionError

// ProtocolError is an error reported by the remote service for one request.
type ProtocolError = errors.ProtocolError

// MessageParseError indicates an inbound frame was malformed.
type MessageParseError = errors.MessageParseError

// Stable connection error codes.
const (
	CodeConnectionRefused = errors.CodeConnectionRefused
	CodeConnectionReset   = errors.CodeConnectionReset
	CodeWriteFailed       = errors.CodeWriteFailed
)

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates Send or Stream was used while not connected.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyConnected indicates Connect was called while connecting or connected.
	ErrAlreadyConnected = errors.ErrAlreadyConnected

	// ErrTimeout matches both ErrConnectTimeout and ErrRequestTimeout.
	ErrTimeout = errors.ErrTimeout

	// ErrConnectTimeout indicates a connect attempt timed out.
	ErrConnectTimeout = errors.ErrConnectTimeout

	// ErrRequestTimeout indicates a Send timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrConnectionRefused matches a ConnectionError with code ECONNREFUSED.
	ErrConnectionRefused = errors.ErrConnectionRefused

	// ErrConnectionReset matches a ConnectionError with code ECONNRESET.
	ErrConnectionReset = errors.ErrConnectionReset

	// ErrWriteFailed matches a ConnectionError with code EPIPE.
	ErrWriteFailed = errors.ErrWriteFailed

	// ErrDuplicateRequestID indicates a request id is already in flight.
	ErrDuplicateRequestID = errors.ErrDuplicateRequestID

	// ErrStreamConsumed indicates a Stream sequence was ranged over twice.
	ErrStreamConsumed = errors.ErrStreamConsumed

	// ErrFrameTooLarge indicates the remote side sent an oversized frame.
	ErrFrameTooLarge = errors.ErrFrameTooLarge
)

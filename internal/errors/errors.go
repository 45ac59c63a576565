package errors

import (
	"errors"
	"fmt"
)

// MuxError is the base interface for all linemux errors.
type MuxError interface {
	error
	IsMuxError() bool
}

// Compile-time verification that all error types implement MuxError.
var (
	_ MuxError = (*ConnectionError)(nil)
	_ MuxError = (*ProtocolError)(nil)
	_ MuxError = (*MessageParseError)(nil)
)

// Stable connection error codes.
const (
	CodeConnectionRefused = "ECONNREFUSED"
	CodeConnectionReset   = "ECONNRESET"
	CodeWriteFailed       = "EPIPE"
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates an operation that needs a live connection was
	// attempted while disconnected or connecting.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called while already
	// connecting or connected.
	ErrAlreadyConnected = errors.New("already connected or connecting")

	// ErrTimeout is matched by every timeout condition.
	ErrTimeout = errors.New("timeout")

	// ErrConnectTimeout indicates the connect attempt did not finish in time.
	ErrConnectTimeout = &timeoutError{op: "connect"}

	// ErrRequestTimeout indicates no terminal message arrived in time.
	ErrRequestTimeout = &timeoutError{op: "request"}

	// ErrConnectionRefused matches connection errors with CodeConnectionRefused.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrConnectionReset matches connection errors with CodeConnectionReset.
	ErrConnectionReset = errors.New("connection reset")

	// ErrWriteFailed matches connection errors with CodeWriteFailed.
	ErrWriteFailed = errors.New("write failed")

	// ErrDuplicateRequestID indicates a request id already has a live waiter.
	ErrDuplicateRequestID = errors.New("duplicate request id")

	// ErrStreamConsumed indicates a stream iterator was ranged over twice.
	ErrStreamConsumed = errors.New("stream already consumed")

	// ErrFrameTooLarge indicates a partial frame exceeded the buffer limit.
	ErrFrameTooLarge = errors.New("frame too large")
)

// timeoutError is a timeout sentinel that also matches ErrTimeout.
type timeoutError struct {
	op string
}

func (e *timeoutError) Error() string {
	return e.op + " timeout"
}

func (e *timeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ConnectionError indicates a stream-level failure: the connection could not
// be established, was reset, or a write failed.
type ConnectionError struct {
	Code string
	Err  error
}

// NewConnectionError wraps err with the given stable code.
func NewConnectionError(code string, err error) *ConnectionError {
	return &ConnectionError{Code: code, Err: err}
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection error (%s)", e.Code)
	}

	return fmt.Sprintf("connection error (%s): %v", e.Code, e.Err)
}

// Unwrap exposes both the code sentinel and the underlying reason.
func (e *ConnectionError) Unwrap() []error {
	errs := make([]error, 0, 2)

	if sentinel := codeSentinel(e.Code); sentinel != nil {
		errs = append(errs, sentinel)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// IsMuxError implements MuxError.
func (e *ConnectionError) IsMuxError() bool { return true }

func codeSentinel(code string) error {
	switch code {
	case CodeConnectionRefused:
		return ErrConnectionRefused
	case CodeConnectionReset:
		return ErrConnectionReset
	case CodeWriteFailed:
		return ErrWriteFailed
	default:
		return nil
	}
}

// ProtocolError is an application-level failure reported by the remote side
// through an error-tagged message.
type ProtocolError struct {
	ID      string
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error %s (request %s)", e.Code, e.ID)
	}

	return fmt.Sprintf("remote error %s (request %s): %s", e.Code, e.ID, e.Message)
}

// IsMuxError implements MuxError.
func (e *ProtocolError) IsMuxError() bool { return true }

// MessageParseError indicates an inbound frame could not be parsed.
// These never reach callers; the frame is dropped.
type MessageParseError struct {
	Message string
	Err     error
	Raw     string
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// IsMuxError implements MuxError.
func (e *MessageParseError) IsMuxError() bool { return true }

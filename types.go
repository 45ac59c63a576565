package linemux

import (
	"github.com/wagiedev/linemux-go/internal/config"
	"github.com/wagiedev/linemux-go/internal/message"
	"github.com/wagiedev/linemux-go/internal/transport"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a Client. Use the With* options to set it.
type Options = config.Options

// ConnectOptions holds per-call Connect overrides.
type ConnectOptions = config.ConnectOptions

// Defaults applied to unset Options fields.
const (
	DefaultAddress        = config.DefaultAddress
	DefaultConnectTimeout = config.DefaultConnectTimeout
	DefaultRequestTimeout = config.DefaultRequestTimeout
)

// ===== Connection =====

// State is the connection state of a Client.
type State = transport.State

const (
	StateDisconnected = transport.StateDisconnected
	StateConnecting   = transport.StateConnecting
	StateConnected    = transport.StateConnected
)

// ===== Messages =====

// Request is one outbound call.
type Request = message.Request

// Message is one inbound message.
type Message = message.Message

// Op is the tag of an inbound message.
type Op = message.Op

const (
	OpOK       = message.OpOK
	OpError    = message.OpError
	OpDone     = message.OpDone
	OpRedirect = message.OpRedirect
	OpItem     = message.OpItem
	OpData     = message.OpData
	OpEvent    = message.OpEvent
	OpProgress = message.OpProgress
)

// NewRequest builds a request with an explicit id. Most callers want
// Client.NewRequest, which allocates the id.
func NewRequest(id, call string, args ...any) Request {
	return message.NewRequest(id, call, args...)
}

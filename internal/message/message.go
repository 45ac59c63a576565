package message

import "encoding/base64"

// Op is the tag that discriminates inbound messages.
type Op string

const (
	// OpOK is a successful terminal reply.
	OpOK Op = "ok"
	// OpError is a failed terminal reply carrying Code and Message.
	OpError Op = "error"
	// OpDone ends a stream.
	OpDone Op = "done"
	// OpRedirect is a terminal reply pointing elsewhere.
	OpRedirect Op = "redirect"
	// OpItem is one stream element; Data is required.
	OpItem Op = "item"
	// OpData is one chunk of binary payload in Bytes.
	OpData Op = "data"
	// OpEvent is an out-of-band notification within an exchange.
	OpEvent Op = "event"
	// OpProgress reports progress of a long-running exchange.
	OpProgress Op = "progress"
)

// Ops lists every known tag.
var Ops = []Op{OpOK, OpError, OpDone, OpRedirect, OpItem, OpData, OpEvent, OpProgress}

// Terminal reports whether the tag ends the exchange for its id.
func (o Op) Terminal() bool {
	switch o {
	case OpOK, OpError, OpDone, OpRedirect:
		return true
	default:
		return false
	}
}

// Known reports whether o is one of Ops.
func (o Op) Known() bool {
	switch o {
	case OpOK, OpError, OpDone, OpRedirect, OpItem, OpData, OpEvent, OpProgress:
		return true
	default:
		return false
	}
}

// Message is one inbound message.
//
// Wire format:
//
//	{"id": "3", "op": "item", "data": {"name": "a"}}
//	{"id": "3", "op": "error", "code": "ENOENT", "message": "not found"}
//	{"id": "4", "op": "data", "bytes": "aGVsbG8="}
type Message struct {
	// ID echoes the request id this message belongs to.
	ID string `json:"id"`

	// Op is the message tag.
	Op Op `json:"op"`

	// Data is the key/value payload for ok, redirect, item, event and progress.
	Data map[string]any `json:"data,omitempty"`

	// Code is the machine-readable error code of an error message.
	Code string `json:"code,omitempty"`

	// Message is the human-readable text of an error message.
	Message string `json:"message,omitempty"`

	// Bytes is the transportable payload of a data message. It is passed
	// through untouched.
	Bytes string `json:"bytes,omitempty"`
}

// Terminal reports whether m ends its exchange.
func (m *Message) Terminal() bool {
	return m.Op.Terminal()
}

// DecodeBytes decodes Bytes as standard base64.
func (m *Message) DecodeBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Bytes)
}

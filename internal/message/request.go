package message

// Request is one outbound call.
//
// Wire format:
//
//	{"id": "1", "call": "ping", "args": []}
type Request struct {
	// ID correlates replies with this request.
	ID string `json:"id"`

	// Call is the remote operation name.
	Call string `json:"call"`

	// Args are the ordered, opaque operation arguments.
	Args []any `json:"args"`
}

// NewRequest builds a request. Args are copied so later changes to the
// caller's slice do not affect it.
func NewRequest(id, call string, args ...any) Request {
	copied := make([]any, len(args))
	copy(copied, args)

	return Request{ID: id, Call: call, Args: copied}
}

// wire returns the request as it goes on the wire. Args is never null.
func (r Request) wire() Request {
	if r.Args == nil {
		r.Args = []any{}
	}

	return r
}

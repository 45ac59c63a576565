// Package message defines the wire types exchanged with the remote service.
//
// Outbound requests are encoded as one JSON object per line:
//
//	{"id": "1", "call": "list", "args": ["/"]}
//
// Inbound messages echo the request id and carry an op tag:
//
//	{"id": "1", "op": "item", "data": {"name": "a"}}
//	{"id": "1", "op": "done"}
//
// Tags ok, error, done and redirect are terminal; item, data, event and
// progress are not. Parse validates frames against a JSON schema and rejects
// anything malformed with a *errors.MessageParseError.
package message

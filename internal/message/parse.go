package message

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/valyala/bytebufferpool"

	"github.com/wagiedev/linemux-go/internal/errors"
)

// frameSchema describes the shape every inbound frame must have.
// Tag-specific requirements that the schema cannot express on its own are
// checked in Parse.
var frameSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"id", "op"},
	Properties: map[string]*jsonschema.Schema{
		"id":      {Type: "string"},
		"op":      {Type: "string", Enum: opEnum()},
		"data":    {Types: []string{"object", "null"}},
		"code":    {Type: "string"},
		"message": {Type: "string"},
		"bytes":   {Type: "string"},
	},
}

var resolvedFrameSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return frameSchema.Resolve(nil)
})

func opEnum() []any {
	enum := make([]any, len(Ops))
	for i, op := range Ops {
		enum[i] = string(op)
	}

	return enum
}

// Parse decodes one frame (without its delimiter) into a Message.
//
// The frame must be a JSON object matching frameSchema. Item messages must
// carry data, error messages a code, and data messages bytes. Any violation
// returns a *errors.MessageParseError.
func Parse(log *slog.Logger, line []byte) (*Message, error) {
	var data map[string]any

	if err := json.Unmarshal(line, &data); err != nil {
		log.Debug("Frame is not valid JSON", "error", err)

		return nil, parseError("invalid JSON", err, line)
	}

	if data == nil {
		return nil, parseError("frame is not an object", fmt.Errorf("null frame"), line)
	}

	resolved, err := resolvedFrameSchema()
	if err != nil {
		return nil, parseError("resolve frame schema", err, line)
	}

	if err := resolved.Validate(data); err != nil {
		log.Debug("Frame does not match message schema", "error", err)

		return nil, parseError("schema violation", err, line)
	}

	op, _ := data["op"].(string)

	msg := &Message{Op: Op(op)}
	msg.ID, _ = data["id"].(string)
	msg.Data, _ = data["data"].(map[string]any)
	msg.Code, _ = data["code"].(string)
	msg.Message, _ = data["message"].(string)
	msg.Bytes, _ = data["bytes"].(string)

	switch msg.Op {
	case OpItem:
		if msg.Data == nil {
			return nil, parseError("item message missing data", fmt.Errorf("item %s: missing data", msg.ID), line)
		}
	case OpError:
		if msg.Code == "" {
			return nil, parseError("error message missing code", fmt.Errorf("error %s: missing code", msg.ID), line)
		}
	case OpData:
		if _, ok := data["bytes"]; !ok {
			return nil, parseError("data message missing bytes", fmt.Errorf("data %s: missing bytes", msg.ID), line)
		}
	}

	log.Debug("Parsed message", "id", msg.ID, "op", msg.Op)

	return msg, nil
}

func parseError(what string, err error, line []byte) *errors.MessageParseError {
	return &errors.MessageParseError{
		Message: what,
		Err:     err,
		Raw:     string(line),
	}
}

// Encode appends req to buf as one newline-terminated JSON frame.
func Encode(buf *bytebufferpool.ByteBuffer, req Request) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(req.wire()); err != nil {
		return fmt.Errorf("encode request %s: %w", req.ID, err)
	}

	return nil
}

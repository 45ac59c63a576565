package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	linemux "github.com/wagiedev/linemux-go"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be text, json, or yaml)", s)
	}
}

// Renderer writes messages one at a time so streams print as they arrive.
type Renderer struct {
	format Format
	out    io.Writer
	yaml   *yaml.Encoder
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(format Format, out io.Writer) *Renderer {
	r := &Renderer{format: format, out: out}

	if format == FormatYAML {
		r.yaml = yaml.NewEncoder(out)
		r.yaml.SetIndent(2)
	}

	return r
}

// Message renders one message.
func (r *Renderer) Message(msg *linemux.Message) error {
	switch r.format {
	case FormatJSON:
		return json.NewEncoder(r.out).Encode(msg)
	case FormatYAML:
		return r.yaml.Encode(msgDocument(msg))
	default:
		_, err := fmt.Fprintln(r.out, textLine(msg))

		return err
	}
}

// Close flushes any buffered output.
func (r *Renderer) Close() error {
	if r.yaml != nil {
		return r.yaml.Close()
	}

	return nil
}

// msgDocument is the YAML shape of a message; empty fields are omitted.
func msgDocument(msg *linemux.Message) map[string]any {
	doc := map[string]any{"id": msg.ID, "op": string(msg.Op)}

	if msg.Data != nil {
		doc["data"] = msg.Data
	}

	if msg.Code != "" {
		doc["code"] = msg.Code
	}

	if msg.Message != "" {
		doc["message"] = msg.Message
	}

	if msg.Op == linemux.OpData {
		doc["bytes"] = msg.Bytes
	}

	return doc
}

func textLine(msg *linemux.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s", msg.ID, msg.Op)

	switch msg.Op {
	case linemux.OpError:
		fmt.Fprintf(&b, " %s", msg.Code)

		if msg.Message != "" {
			fmt.Fprintf(&b, ": %s", msg.Message)
		}

	case linemux.OpData:
		if raw, err := msg.DecodeBytes(); err == nil {
			fmt.Fprintf(&b, " %d bytes", len(raw))
		} else {
			fmt.Fprintf(&b, " %q", msg.Bytes)
		}

	default:
		keys := make([]string, 0, len(msg.Data))
		for k := range msg.Data {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			v, err := json.Marshal(msg.Data[k])
			if err != nil {
				v = []byte(fmt.Sprint(msg.Data[k]))
			}

			fmt.Fprintf(&b, " %s=%s", k, v)
		}
	}

	return b.String()
}

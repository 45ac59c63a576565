package cli

import "encoding/json"

// ParseArgs converts command-line words into request arguments. Valid JSON
// is decoded; anything else is kept as a string.
func ParseArgs(words []string) []any {
	args := make([]any, 0, len(words))

	for _, w := range words {
		var v any
		if err := json.Unmarshal([]byte(w), &v); err != nil {
			args = append(args, w)

			continue
		}

		args = append(args, v)
	}

	return args
}

package linemux

import (
	"log/slog"

	"github.com/wagiedev/linemux-go/internal/config"
)

// NopLogger returns the silent logger a Client uses when WithLogger is not
// given. Pass it explicitly to keep a wrapper's own logging quiet too.
func NopLogger() *slog.Logger {
	return config.DiscardLogger()
}

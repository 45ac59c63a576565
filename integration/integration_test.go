//go:build integration

package integration

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	linemux "github.com/wagiedev/linemux-go"
)

// address returns the service socket: LINEMUX_ADDR, or the default.
func address() string {
	if addr := os.Getenv("LINEMUX_ADDR"); addr != "" {
		return addr
	}

	return linemux.DefaultAddress
}

// connect returns a connected client, skipping the test if no service is
// listening.
func connect(t *testing.T) linemux.Client {
	t.Helper()

	client := linemux.NewClient(
		linemux.WithAddress(address()),
		linemux.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		linemux.WithConnectTimeout(2*time.Second),
	)

	err := client.Connect(context.Background())
	if errors.Is(err, linemux.ErrConnectionRefused) {
		t.Skipf("no service listening on %s", address())
	}

	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

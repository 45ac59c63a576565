package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	linemux "github.com/wagiedev/linemux-go"
	"github.com/wagiedev/linemux-go/internal/muxtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// run executes linemuxctl against srv and returns stdout and the error.
func run(t *testing.T, srv *muxtest.Server, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	app := NewApp("test")
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"linemuxctl", "--addr", srv.Addr()}, args...)
	err := app.RunContext(context.Background(), full)

	return stdout.String(), err
}

func startServer(t *testing.T) *muxtest.Server {
	t.Helper()

	srv, err := muxtest.NewServer(nil)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	return srv
}

func exitCode(t *testing.T, err error) int {
	t.Helper()

	exitCoder, ok := err.(cli.ExitCoder)
	require.True(t, ok, "expected cli.ExitCoder, got %T: %v", err, err)

	return exitCoder.ExitCode()
}

func TestParseArgs(t *testing.T) {
	got := ParseArgs([]string{"/etc", "42", "true", `{"a":1}`, `"quoted"`, "null", "not json"})

	require.Equal(t, []any{
		"/etc",
		float64(42),
		true,
		map[string]any{"a": float64(1)},
		"quoted",
		nil,
		"not json",
	}, got)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"table", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_Text(t *testing.T) {
	var buf bytes.Buffer

	r := NewRenderer(FormatText, &buf)

	require.NoError(t, r.Message(&linemux.Message{ID: "1", Op: linemux.OpItem, Data: map[string]any{"b": 2, "a": "x"}}))
	require.NoError(t, r.Message(&linemux.Message{ID: "1", Op: linemux.OpData, Bytes: "aGk="}))
	require.NoError(t, r.Message(&linemux.Message{ID: "2", Op: linemux.OpError, Code: "ENOENT", Message: "gone"}))
	require.NoError(t, r.Close())

	require.Equal(t, "1 item a=\"x\" b=2\n1 data 2 bytes\n2 error ENOENT: gone\n", buf.String())
}

func TestPing(t *testing.T) {
	srv := startServer(t)

	out, err := run(t, srv, "ping")
	require.NoError(t, err)
	require.Contains(t, out, "ok from "+srv.Addr())
}

func TestCall_JSONOutput(t *testing.T) {
	srv := startServer(t)

	out, err := run(t, srv, "--format", "json", "call", "echo", "/etc", "3")
	require.NoError(t, err)

	var msg linemux.Message
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &msg))
	require.Equal(t, linemux.OpOK, msg.Op)
	require.Equal(t, []any{"/etc", float64(3)}, msg.Data["args"])

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "echo", reqs[0].Call)
}

func TestCall_RemoteErrorExitCode(t *testing.T) {
	srv := startServer(t)

	_, err := run(t, srv, "call", "fail", "EACCES", "denied")
	require.Error(t, err)
	require.Equal(t, ExitRemoteError, exitCode(t, err))
	require.Contains(t, err.Error(), "EACCES")
}

func TestCall_MissingName(t *testing.T) {
	srv := startServer(t)

	_, err := run(t, srv, "call")
	require.Equal(t, ExitFailure, exitCode(t, err))
}

func TestCall_Timeout(t *testing.T) {
	srv := startServer(t)

	_, err := run(t, srv, "call", "--timeout", "50ms", "sleep")
	require.Equal(t, ExitFailure, exitCode(t, err))
	require.Contains(t, err.Error(), "request timeout")
}

func TestStream_YAMLOutput(t *testing.T) {
	srv := startServer(t)

	out, err := run(t, srv, "--format", "yaml", "stream", "list", "2")
	require.NoError(t, err)

	dec := yaml.NewDecoder(strings.NewReader(out))

	var ops []string

	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			break
		}

		ops = append(ops, doc["op"].(string))
	}

	require.Equal(t, []string{"item", "item", "done"}, ops)
}

func TestStream_Limit(t *testing.T) {
	srv := startServer(t)

	out, err := run(t, srv, "stream", "--limit", "2", "list", "50")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, []string{"1 item n=1", "1 item n=2"}, lines)
}

func TestConnectRefusedExitCode(t *testing.T) {
	var stdout bytes.Buffer

	app := NewApp("test")
	app.Writer = &stdout
	app.ExitErrHandler = func(*cli.Context, error) {}

	addr := filepath.Join(t.TempDir(), "nobody.sock")

	err := app.RunContext(context.Background(), []string{"linemuxctl", "--addr", addr, "ping"})
	require.Equal(t, ExitFailure, exitCode(t, err))
	require.Contains(t, err.Error(), "ECONNREFUSED")
	require.Empty(t, stdout.String())
}

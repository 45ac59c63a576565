package muxtest

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wagiedev/linemux-go/internal/message"
)

func dialRaw(t *testing.T, srv *Server) (net.Conn, *bufio.Scanner) {
	t.Helper()

	conn, err := net.Dial("unix", srv.Addr())
	require.NoError(t, err)

	return conn, bufio.NewScanner(conn)
}

func readFrame(t *testing.T, sc *bufio.Scanner) map[string]any {
	t.Helper()

	require.True(t, sc.Scan(), "expected a frame: %v", sc.Err())

	var frame map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &frame))

	return frame
}

func TestServer_DefaultHandlers(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := NewServer(nil)
	require.NoError(t, err)

	conn, sc := dialRaw(t, srv)

	_, err = conn.Write([]byte(`{"id":"1","call":"list","args":[2]}` + "\n"))
	require.NoError(t, err)

	require.Equal(t, map[string]any{"id": "1", "op": "item", "data": map[string]any{"n": float64(1)}}, readFrame(t, sc))
	require.Equal(t, "item", readFrame(t, sc)["op"])
	require.Equal(t, "done", readFrame(t, sc)["op"])

	_, err = conn.Write([]byte(`{"id":"2","call":"nope","args":[]}` + "\n"))
	require.NoError(t, err)

	unknown := readFrame(t, sc)
	require.Equal(t, "error", unknown["op"])
	require.Equal(t, "ENOSYS", unknown["code"])

	require.Equal(t, []string{"list", "nope"}, calls(srv.Requests()))
	require.Equal(t, 1, srv.Connections())

	require.NoError(t, conn.Close())
	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())
}

func TestServer_CustomHandlerAndDrop(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := NewServer(nil)
	require.NoError(t, err)

	defer srv.Close()

	srv.Handle("greet", func(_ context.Context, req message.Request, w *ReplyWriter) {
		_ = w.OK(map[string]any{"hello": req.Args[0]})
	})

	conn, sc := dialRaw(t, srv)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"id":"7","call":"greet","args":["bob"]}` + "\n" + `{"id":"8","call":"sleep","args":[]}` + "\n"))
	require.NoError(t, err)

	frame := readFrame(t, sc)
	require.Equal(t, "7", frame["id"])
	require.Equal(t, map[string]any{"hello": "bob"}, frame["data"])

	require.Eventually(t, func() bool { return len(srv.Requests()) == 2 }, time.Second, 5*time.Millisecond)

	// Dropping the connection releases the sleeping handler.
	srv.DropConnections()

	require.False(t, sc.Scan())
	require.Eventually(t, func() bool { return srv.Connections() == 0 }, time.Second, 5*time.Millisecond)
}

func calls(reqs []message.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Call
	}

	return out
}

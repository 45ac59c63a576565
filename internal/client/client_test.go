package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wagiedev/linemux-go/internal/config"
	"github.com/wagiedev/linemux-go/internal/errors"
	"github.com/wagiedev/linemux-go/internal/message"
	"github.com/wagiedev/linemux-go/internal/muxtest"
	"github.com/wagiedev/linemux-go/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T) *muxtest.Server {
	t.Helper()

	srv, err := muxtest.NewServer(nil)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	return srv
}

func connectedClient(t *testing.T, srv *muxtest.Server) *Client {
	t.Helper()

	c := New(&config.Options{Address: srv.Addr(), RequestTimeout: 5 * time.Second})
	require.NoError(t, c.Connect(context.Background(), nil))

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestClient_PingRoundTrip(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	require.Equal(t, transport.StateConnected, c.State())

	req := c.NewRequest("ping")
	require.Equal(t, "1", req.ID)

	msgs, err := c.Send(context.Background(), req, 0)
	require.NoError(t, err)
	require.Equal(t, []*message.Message{{ID: "1", Op: message.OpOK, Data: map[string]any{}}}, msgs)

	require.NoError(t, c.Close())
	require.Equal(t, transport.StateDisconnected, c.State())
}

func TestClient_StreamItemsInOrder(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	var got []float64

	for msg, err := range c.Stream(context.Background(), c.NewRequest("list", 3)) {
		require.NoError(t, err)

		if msg.Op == message.OpItem {
			got = append(got, msg.Data["n"].(float64))
		} else {
			require.Equal(t, message.OpDone, msg.Op)
		}
	}

	require.Equal(t, []float64{1, 2, 3}, got)
	require.Zero(t, c.Pending())

	require.NoError(t, c.Close())
}

func TestClient_ProtocolError(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	_, err := c.Send(context.Background(), c.NewRequest("fail", "ENOENT", "no such file"), 0)

	protoErr, ok := stderrors.AsType[*errors.ProtocolError](err)
	require.True(t, ok, "expected ProtocolError, got %v", err)
	require.Equal(t, "ENOENT", protoErr.Code)
	require.Equal(t, "no such file", protoErr.Message)

	// The connection is still usable.
	_, err = c.Send(context.Background(), c.NewRequest("ping"), 0)
	require.NoError(t, err)

	require.NoError(t, c.Close())
}

func TestClient_BinaryData(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	msgs, err := c.Send(context.Background(), c.NewRequest("blob", "hello"), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, message.OpData, msgs[0].Op)

	b, err := msgs[0].DecodeBytes()
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	require.NoError(t, c.Close())
}

func TestClient_FragmentedAndNoisyFrames(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	msgs, err := c.Send(context.Background(), c.NewRequest("split"), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msgs, err = c.Send(context.Background(), c.NewRequest("noise"), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, message.OpOK, msgs[0].Op)

	require.Equal(t, transport.StateConnected, c.State())
	require.NoError(t, c.Close())
}

func TestClient_ConcurrentRequests(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Go(func() {
			want := fmt.Sprintf("arg-%d", i)

			msgs, err := c.Send(context.Background(), c.NewRequest("echo", want), 0)
			if !assert.NoError(t, err) || !assert.Len(t, msgs, 1) {
				return
			}

			assert.Equal(t, []any{want}, msgs[0].Data["args"])
		})
	}

	wg.Wait()

	require.Zero(t, c.Pending())
	require.NoError(t, c.Close())
}

func TestClient_RequestTimeoutLeavesConnectionUp(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	_, err := c.Send(context.Background(), c.NewRequest("sleep"), 50*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
	require.ErrorIs(t, err, errors.ErrTimeout)

	require.Equal(t, transport.StateConnected, c.State())

	_, err = c.Send(context.Background(), c.NewRequest("ping"), 0)
	require.NoError(t, err)

	require.NoError(t, c.Close())
}

func TestClient_RequestTimeoutWhilePeerNotReading(t *testing.T) {
	peers := make(chan net.Conn, 1)

	c := New(&config.Options{
		Dialer: config.DialerFunc(func(context.Context, string) (io.ReadWriteCloser, error) {
			client, server := net.Pipe()
			peers <- server

			return client, nil
		}),
	})
	require.NoError(t, c.Connect(context.Background(), nil))

	peer := <-peers
	defer peer.Close()

	start := time.Now()
	_, err := c.Send(context.Background(), c.NewRequest("ping"), 100*time.Millisecond)

	require.ErrorIs(t, err, errors.ErrRequestTimeout)
	require.Less(t, time.Since(start), time.Second)
	require.Zero(t, c.Pending())

	// The aborted write may have left half a frame on the wire.
	require.Equal(t, transport.StateDisconnected, c.State())
	require.NoError(t, c.Close())
}

func TestClient_CloseFailsPending(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	sendErr := make(chan error, 1)

	go func() {
		_, err := c.Send(context.Background(), c.NewRequest("sleep"), time.Minute)
		sendErr <- err
	}()

	streamErr := make(chan error, 1)

	go func() {
		for _, err := range c.Stream(context.Background(), c.NewRequest("sleep")) {
			if err != nil {
				streamErr <- err

				return
			}
		}

		streamErr <- nil
	}()

	require.Eventually(t, func() bool { return c.Pending() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())

	require.ErrorIs(t, <-sendErr, errors.ErrConnectionReset)
	require.ErrorIs(t, <-streamErr, errors.ErrConnectionReset)
	require.Zero(t, c.Pending())

	// Idempotent.
	require.NoError(t, c.Close())
	require.Equal(t, transport.StateDisconnected, c.State())
}

func TestClient_RemoteHangupResetsAndReconnects(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	pending := make(chan error, 1)

	go func() {
		_, err := c.Send(context.Background(), c.NewRequest("sleep"), time.Minute)
		pending <- err
	}()

	require.Eventually(t, func() bool { return c.Pending() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := c.Send(context.Background(), c.NewRequest("hangup"), time.Second)
	require.ErrorIs(t, err, errors.ErrConnectionReset)
	require.ErrorIs(t, <-pending, errors.ErrConnectionReset)
	require.Equal(t, transport.StateDisconnected, c.State())

	_, err = c.Send(context.Background(), c.NewRequest("ping"), 0)
	require.ErrorIs(t, err, errors.ErrNotConnected)

	// Ids keep increasing across the reconnect.
	before := c.GenerateID()

	require.NoError(t, c.Connect(context.Background(), nil))

	req := c.NewRequest("ping")
	require.Greater(t, mustAtoi(t, req.ID), mustAtoi(t, before))

	_, err = c.Send(context.Background(), req, 0)
	require.NoError(t, err)

	require.NoError(t, c.Close())
}

func TestClient_ConnectRefused(t *testing.T) {
	dir, err := os.MkdirTemp("", "lmx")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	c := New(&config.Options{Address: filepath.Join(dir, "missing.sock")})

	start := time.Now()
	err = c.Connect(context.Background(), nil)

	require.ErrorIs(t, err, errors.ErrConnectionRefused)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, transport.StateDisconnected, c.State())

	connErr, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok)
	require.Equal(t, errors.CodeConnectionRefused, connErr.Code)
}

func TestClient_ConnectTwice(t *testing.T) {
	srv := startServer(t)
	c := connectedClient(t, srv)

	err := c.Connect(context.Background(), nil)
	require.ErrorIs(t, err, errors.ErrAlreadyConnected)
	require.Equal(t, transport.StateConnected, c.State())
	require.Equal(t, 1, srv.Connections())

	require.NoError(t, c.Close())
}

func TestClient_NotConnected(t *testing.T) {
	c := New(nil)

	require.Equal(t, transport.StateDisconnected, c.State())

	_, err := c.Send(context.Background(), c.NewRequest("ping"), 0)
	require.ErrorIs(t, err, errors.ErrNotConnected)

	for _, err := range c.Stream(context.Background(), c.NewRequest("list", 1)) {
		require.ErrorIs(t, err, errors.ErrNotConnected)
	}

	require.NoError(t, c.Close())
}

func TestClient_ConnectTimeoutWithSlowDialer(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := New(&config.Options{
		ConnectTimeout: 30 * time.Millisecond,
		Dialer: config.DialerFunc(func(ctx context.Context, _ string) (io.ReadWriteCloser, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}

			return nil, stderrors.New("gave up")
		}),
	})

	err := c.Connect(context.Background(), nil)
	require.ErrorIs(t, err, errors.ErrConnectTimeout)
	require.Equal(t, transport.StateDisconnected, c.State())
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()

	n, err := strconv.Atoi(s)
	require.NoError(t, err)

	return n
}

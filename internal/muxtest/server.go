// Package muxtest provides an in-process line-protocol server for tests and
// examples.
package muxtest

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wagiedev/linemux-go/internal/message"
)

// maxLineSize matches the client's frame limit.
const maxLineSize = 1024 * 1024

// HandlerFunc answers one request. It runs on its own goroutine; ctx is
// cancelled when the connection goes away.
type HandlerFunc func(ctx context.Context, req message.Request, w *ReplyWriter)

// Server accepts connections on a unix socket and answers newline-delimited
// JSON requests through registered handlers.
type Server struct {
	log  *slog.Logger
	ln   net.Listener
	dir  string
	addr string

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	conns    map[net.Conn]context.CancelFunc
	requests []message.Request
	closed   bool

	wg sync.WaitGroup
}

// NewServer starts a server on a fresh socket in a temporary directory with
// DefaultHandlers installed. A nil logger disables logging.
func NewServer(log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Unix socket paths are short; keep the directory name tiny.
	dir, err := os.MkdirTemp("", "lmx")
	if err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	addr := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", addr)
	if err != nil {
		_ = os.RemoveAll(dir)

		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	s := &Server{
		log:      log.With("component", "muxtest"),
		ln:       ln,
		dir:      dir,
		addr:     addr,
		handlers: DefaultHandlers(),
		conns:    make(map[net.Conn]context.CancelFunc),
	}

	s.wg.Go(s.acceptLoop)

	return s, nil
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.addr
}

// Handle registers h for call, replacing any existing handler.
func (s *Server) Handle(call string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[call] = h
}

// Requests returns every request received so far, in arrival order.
func (s *Server) Requests() []message.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]message.Request, len(s.requests))
	copy(out, s.requests)

	return out
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

// DropConnections closes every open connection, leaving the listener up.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))

	for conn, cancel := range s.conns {
		cancel()

		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Close stops the listener, drops every connection and waits for all
// handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	s.mu.Unlock()

	err := s.ln.Close()

	s.DropConnections()
	s.wg.Wait()

	_ = os.RemoveAll(s.dir)

	if err != nil && !stderrors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", err)
	}

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !stderrors.Is(err, net.ErrClosed) {
				s.log.Debug("Accept failed", "error", err)
			}

			return
		}

		ctx, cancel := context.WithCancel(context.Background())

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			cancel()

			_ = conn.Close()

			return
		}

		s.conns[conn] = cancel
		s.mu.Unlock()

		s.wg.Go(func() {
			s.serveConn(ctx, conn)
		})
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	w := &ReplyWriter{conn: conn, mu: &sync.Mutex{}}

	var handlers sync.WaitGroup

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		var req message.Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.log.Debug("Skipping malformed request", "error", err)

			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		h, ok := s.handlers[req.Call]
		s.mu.Unlock()

		if !ok {
			h = unknownCall
		}

		handlers.Go(func() {
			h(ctx, req, w.forRequest(req.ID))
		})
	}

	if err := scanner.Err(); err != nil {
		s.log.Debug("Connection read ended", "error", err)
	}

	// Handlers blocked on ctx must be released before waiting for them.
	s.mu.Lock()
	if cancel, ok := s.conns[conn]; ok {
		cancel()
		delete(s.conns, conn)
	}
	s.mu.Unlock()

	_ = conn.Close()

	handlers.Wait()
}

// ReplyWriter writes reply frames for one request. Writes from concurrent
// handlers on the same connection never interleave.
type ReplyWriter struct {
	id   string
	conn net.Conn
	mu   *sync.Mutex
}

func (w *ReplyWriter) forRequest(id string) *ReplyWriter {
	return &ReplyWriter{id: id, conn: w.conn, mu: w.mu}
}

// Frame writes fields plus the request id as one frame.
func (w *ReplyWriter) Frame(op message.Op, fields map[string]any) error {
	frame := map[string]any{"id": w.id, "op": string(op)}
	for k, v := range fields {
		frame[k] = v
	}

	line, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	return w.Raw(append(line, '\n'))
}

// Raw writes b verbatim.
func (w *ReplyWriter) Raw(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.conn.Write(b)

	return err
}

// OK writes a successful terminal reply. A nil data is sent as {}.
func (w *ReplyWriter) OK(data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}

	return w.Frame(message.OpOK, map[string]any{"data": data})
}

// Item writes one stream element.
func (w *ReplyWriter) Item(data map[string]any) error {
	return w.Frame(message.OpItem, map[string]any{"data": data})
}

// Progress writes a progress report.
func (w *ReplyWriter) Progress(data map[string]any) error {
	return w.Frame(message.OpProgress, map[string]any{"data": data})
}

// Data writes a binary chunk as base64.
func (w *ReplyWriter) Data(b []byte) error {
	return w.Frame(message.OpData, map[string]any{"bytes": base64.StdEncoding.EncodeToString(b)})
}

// Done ends a stream.
func (w *ReplyWriter) Done() error {
	return w.Frame(message.OpDone, nil)
}

// Error writes an error-tagged terminal reply.
func (w *ReplyWriter) Error(code, text string) error {
	return w.Frame(message.OpError, map[string]any{"code": code, "message": text})
}

// Hangup closes the connection.
func (w *ReplyWriter) Hangup() error {
	return w.conn.Close()
}

func unknownCall(_ context.Context, req message.Request, w *ReplyWriter) {
	_ = w.Error("ENOSYS", "unknown call "+req.Call)
}

// DefaultHandlers returns the handlers every new Server starts with:
//
//	ping              ok {}
//	echo ARGS...      ok {"args": ARGS}
//	list N            N items {"n": i} then done
//	blob TEXT         one data chunk with TEXT then ok
//	fail CODE MSG     error CODE MSG
//	sleep             no reply until the connection closes
//	slow MS           ok {} after MS milliseconds
//	hangup            closes the connection
//	split             ok {} written one byte at a time
//	noise             a malformed line, a reply for an unknown id, then ok {}
func DefaultHandlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"ping": func(_ context.Context, _ message.Request, w *ReplyWriter) {
			_ = w.OK(nil)
		},
		"echo": func(_ context.Context, req message.Request, w *ReplyWriter) {
			_ = w.OK(map[string]any{"args": req.Args})
		},
		"list": func(_ context.Context, req message.Request, w *ReplyWriter) {
			for i := range intArg(req, 0) {
				if w.Item(map[string]any{"n": i + 1}) != nil {
					return
				}
			}

			_ = w.Done()
		},
		"blob": func(_ context.Context, req message.Request, w *ReplyWriter) {
			text, _ := argAt(req, 0).(string)

			_ = w.Data([]byte(text))
			_ = w.OK(nil)
		},
		"fail": func(_ context.Context, req message.Request, w *ReplyWriter) {
			code, _ := argAt(req, 0).(string)
			text, _ := argAt(req, 1).(string)

			_ = w.Error(code, text)
		},
		"sleep": func(ctx context.Context, _ message.Request, _ *ReplyWriter) {
			<-ctx.Done()
		},
		"slow": func(ctx context.Context, req message.Request, w *ReplyWriter) {
			select {
			case <-time.After(time.Duration(intArg(req, 0)) * time.Millisecond):
				_ = w.OK(nil)
			case <-ctx.Done():
			}
		},
		"hangup": func(_ context.Context, _ message.Request, w *ReplyWriter) {
			_ = w.Hangup()
		},
		"split": func(_ context.Context, req message.Request, w *ReplyWriter) {
			line := fmt.Sprintf("{\"id\":%q,\"op\":\"ok\",\"data\":{}}\n", req.ID)
			for i := range len(line) {
				if w.Raw([]byte{line[i]}) != nil {
					return
				}

				time.Sleep(time.Millisecond)
			}
		},
		"noise": func(_ context.Context, _ message.Request, w *ReplyWriter) {
			_ = w.Raw([]byte("not json\n{\"id\":\"x\"}\n"))
			_ = w.Raw([]byte("{\"id\":\"no-such-id\",\"op\":\"ok\",\"data\":{}}\n"))
			_ = w.OK(nil)
		},
	}
}

func argAt(req message.Request, i int) any {
	if i < len(req.Args) {
		return req.Args[i]
	}

	return nil
}

// intArg reads a numeric argument; JSON numbers decode as float64.
func intArg(req message.Request, i int) int {
	switch v := argAt(req, i).(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

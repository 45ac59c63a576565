package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/linemux-go/internal/config"
	"github.com/wagiedev/linemux-go/internal/errors"
	"github.com/wagiedev/linemux-go/internal/message"
)

// readChunkSize is the size of a single Read from the stream.
const readChunkSize = 32 * 1024

var (
	errClosedLocally    = stderrors.New("connection closed")
	errAttemptAbandoned = stderrors.New("connect attempt abandoned by close")
	errWriteAborted     = stderrors.New("write aborted mid-frame")
)

// State is the connection state.
type State int

const (
	// StateDisconnected means no stream is open and no attempt is running.
	StateDisconnected State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateConnected means the stream is open and being read.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handler receives everything that arrives on a connection.
//
// Dispatch is called from the connection's reader goroutine, once per parsed
// message, in arrival order, and must not block. Reset is called exactly once
// per connection when it ends; err describes why.
type Handler interface {
	Dispatch(msg *message.Message)
	Reset(err error)
}

// Manager owns one byte-stream connection at a time.
type Manager struct {
	log    *slog.Logger
	dialer config.Dialer

	// teardownMu is held from the moment a session stops being active until
	// its handler has been reset, so a new Connect never overlaps the reset
	// of the previous session.
	teardownMu sync.Mutex

	mu    sync.Mutex
	state State
	gen   uint64 // bumped by every Connect and teardown; stale attempts compare against it
	sess  *session

	// writeSlot holds one token while a frame is being written, so frames
	// never interleave and a queued writer can give up when its ctx ends.
	writeSlot chan struct{}
}

// session is one established connection.
type session struct {
	id        string
	log       *slog.Logger
	rwc       io.ReadWriteCloser
	handler   Handler
	eg        errgroup.Group
	resetOnce sync.Once
}

func (s *session) reset(err error) {
	s.resetOnce.Do(func() {
		s.handler.Reset(err)
	})
}

type dialResult struct {
	rwc io.ReadWriteCloser
	err error
}

// NewManager creates a disconnected manager. If dialer is nil, a unix socket
// NetDialer is used.
func NewManager(log *slog.Logger, dialer config.Dialer) *Manager {
	if dialer == nil {
		dialer = &NetDialer{}
	}

	return &Manager{
		log:       log.With("component", "transport"),
		dialer:    dialer,
		writeSlot: make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Connected reports whether the manager is in StateConnected.
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// Connect opens the stream to address and starts reading it into handler.
//
// Connect fails with ErrAlreadyConnected, without doing any I/O, unless the
// manager is disconnected. The dial is raced against timeout: if the timer
// fires first Connect returns ErrConnectTimeout and the attempt's result, if
// it ever arrives, is closed and ignored. A dial failure is returned as a
// *errors.ConnectionError with code ECONNREFUSED. If the previous session is
// still being torn down, Connect waits for its handler reset to finish.
func (m *Manager) Connect(ctx context.Context, address string, timeout time.Duration, handler Handler) error {
	m.teardownMu.Lock()
	m.mu.Lock()

	if m.state != StateDisconnected {
		m.mu.Unlock()
		m.teardownMu.Unlock()

		return errors.ErrAlreadyConnected
	}

	m.state = StateConnecting
	m.gen++
	gen := m.gen

	m.mu.Unlock()
	m.teardownMu.Unlock()

	m.log.Debug("Connecting", "address", address, "timeout", timeout)

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan dialResult, 1)

	go func() {
		rwc, err := m.dialer.Dial(dialCtx, address)
		results <- dialResult{rwc: rwc, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			m.abandon(gen)
			m.log.Debug("Connect failed", "address", address, "error", res.err)

			return errors.NewConnectionError(errors.CodeConnectionRefused, res.err)
		}

		return m.establish(gen, address, res.rwc, handler)

	case <-timer.C:
		m.abandon(gen)
		go discardDial(results)

		m.log.Warn("Connect timed out", "address", address, "timeout", timeout)

		return fmt.Errorf("%w after %s", errors.ErrConnectTimeout, timeout)

	case <-ctx.Done():
		m.abandon(gen)
		go discardDial(results)

		m.log.Debug("Connect cancelled", "address", address)

		return ctx.Err()
	}
}

// discardDial closes the stream of an attempt nobody waits for anymore.
func discardDial(results <-chan dialResult) {
	if res := <-results; res.rwc != nil {
		_ = res.rwc.Close()
	}
}

// abandon returns to disconnected if attempt gen is still the active one.
func (m *Manager) abandon(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen == gen && m.state == StateConnecting {
		m.state = StateDisconnected
	}
}

func (m *Manager) establish(gen uint64, address string, rwc io.ReadWriteCloser, handler Handler) error {
	m.mu.Lock()

	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()

		_ = rwc.Close()

		return errors.NewConnectionError(errors.CodeConnectionReset, errAttemptAbandoned)
	}

	id := ulid.Make().String()
	s := &session{
		id:      id,
		log:     m.log.With("conn_id", id),
		rwc:     rwc,
		handler: handler,
	}

	m.sess = s
	m.state = StateConnected

	m.mu.Unlock()

	s.eg.Go(func() error {
		return m.readLoop(s)
	})

	s.log.Info("Connected", "address", address)

	return nil
}

// Close terminates the stream, if any, and resets the handler with
// ErrConnectionReset. Close is safe to call in any state and more than once.
// A connect attempt in flight is abandoned.
func (m *Manager) Close() error {
	m.teardownMu.Lock()
	m.mu.Lock()

	prev := m.state
	s := m.sess

	m.sess = nil
	m.state = StateDisconnected
	m.gen++

	m.mu.Unlock()

	if s == nil {
		m.teardownMu.Unlock()

		if prev == StateConnecting {
			m.log.Debug("Close abandoned connect attempt")
		}

		return nil
	}

	s.log.Debug("Closing connection")

	closeErr := s.rwc.Close()

	s.reset(errors.NewConnectionError(errors.CodeConnectionReset, errClosedLocally))

	m.teardownMu.Unlock()

	if err := s.eg.Wait(); err != nil {
		s.log.Debug("Reader stopped with error", "error", err)
	}

	s.log.Info("Connection closed")

	if closeErr != nil {
		return fmt.Errorf("close stream: %w", closeErr)
	}

	return nil
}

// SendFrame writes one complete frame. Writes are serialized.
//
// If ctx ends while waiting for an earlier write, SendFrame returns without
// writing. If ctx ends while the write itself is blocked, part of the frame
// may already be on the wire, so the connection is torn down.
func (m *Manager) SendFrame(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	s := m.sess
	m.mu.Unlock()

	if s == nil {
		return errors.ErrNotConnected
	}

	select {
	case m.writeSlot <- struct{}{}:
	case <-ctx.Done():
		// Nothing was written, so the connection stays up.
		return ctx.Err()
	}

	defer func() { <-m.writeSlot }()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Debug("Writing frame", "frame_len", len(frame))

	done := make(chan error, 1)

	go func() {
		_, err := s.rwc.Write(frame)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Error("Failed to write frame", "error", err)

			return errors.NewConnectionError(errors.CodeWriteFailed, err)
		}

		return nil

	case <-ctx.Done():
		s.log.Warn("Context cancelled during write, dropping connection")
		m.drop(s, errWriteAborted)

		// Closing the stream unblocks the write.
		<-done

		return ctx.Err()
	}
}

// readLoop reads the stream until it fails, feeding frames to the handler.
func (m *Manager) readLoop(s *session) error {
	defer s.log.Debug("Reader stopped")

	f := newFramer(maxFrameSize)
	defer f.release()

	buf := make([]byte, readChunkSize)
	frames := 0

	emit := func(frame []byte) {
		msg, err := message.Parse(s.log, frame)
		if err != nil {
			s.log.Debug("Dropping malformed frame", "error", err)

			return
		}

		frames++
		s.handler.Dispatch(msg)
	}

	for {
		n, err := s.rwc.Read(buf)
		if n > 0 {
			if ferr := f.Feed(buf[:n], emit); ferr != nil {
				s.log.Error("Frame exceeds limit", "buffered", f.Buffered(), "limit", maxFrameSize)

				err = ferr
			}
		}

		if err != nil {
			s.log.Debug("Stream ended", "error", err, "frames", frames)
			m.drop(s, err)

			if stderrors.Is(err, io.EOF) {
				return nil
			}

			return err
		}
	}
}

// drop tears s down after the stream failed. It is a no-op if s is no
// longer the active session, which means Close already handled it.
func (m *Manager) drop(s *session, reason error) {
	m.teardownMu.Lock()
	defer m.teardownMu.Unlock()

	m.mu.Lock()

	current := m.sess == s
	if current {
		m.sess = nil
		m.state = StateDisconnected
		m.gen++
	}

	m.mu.Unlock()

	if !current {
		return
	}

	_ = s.rwc.Close()

	s.log.Info("Connection lost", "reason", reason)
	s.reset(errors.NewConnectionError(errors.CodeConnectionReset, reason))
}

package protocol

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/wagiedev/linemux-go/internal/errors"
	"github.com/wagiedev/linemux-go/internal/message"
	"github.com/wagiedev/linemux-go/internal/transport"
)

// Link is the part of the connection the Correlator writes through.
//
// This interface is satisfied by transport.Manager but allows for testing
// with mock links.
type Link interface {
	Connected() bool
	SendFrame(ctx context.Context, frame []byte) error
}

// Compile-time verification that Correlator can be fed by a transport.Manager.
var (
	_ transport.Handler = (*Correlator)(nil)
	_ Link              = (*transport.Manager)(nil)
)

// Correlator routes inbound messages to the requests waiting for them.
//
// The Correlator handles:
//   - Generating request ids that are never reused
//   - Registering one waiter per in-flight id
//   - Writing framed requests through the Link
//   - Dispatching inbound messages to their waiter, in arrival order
//   - Per-request timeouts for Send
//   - Failing every waiter when the connection resets
type Correlator struct {
	log            *slog.Logger
	link           Link
	requestTimeout time.Duration

	nextID atomic.Uint64

	mu      sync.Mutex
	waiters map[string]waiter
}

// NewCorrelator creates a correlator writing through link. requestTimeout is
// the Send timeout used when a call passes zero.
func NewCorrelator(log *slog.Logger, link Link, requestTimeout time.Duration) *Correlator {
	return &Correlator{
		log:            log.With("component", "protocol"),
		link:           link,
		requestTimeout: requestTimeout,
		waiters:        make(map[string]waiter, 10),
	}
}

// GenerateID returns the next request id: "1", "2", ... The counter never
// resets for the life of the Correlator, including across reconnects.
func (c *Correlator) GenerateID() string {
	return strconv.FormatUint(c.nextID.Add(1), 10)
}

// Pending returns the number of registered waiters.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}

// Send writes req and waits for its terminal message.
//
// It returns every message received for req.ID, in arrival order, ending
// with the terminal one. An error-tagged terminal is returned as a
// *errors.ProtocolError. If timeout is zero or negative the default request
// timeout applies; when it elapses Send fails with ErrRequestTimeout and any
// later message for the id is dropped. The timeout also covers writing the
// request: a write still blocked when it fires is aborted.
func (c *Correlator) Send(ctx context.Context, req message.Request, timeout time.Duration) ([]*message.Message, error) {
	if timeout <= 0 {
		timeout = c.requestTimeout
	}

	writeCtx, abort := context.WithCancel(ctx)
	defer abort()

	w := newBatchWaiter()
	w.abort = abort

	c.mu.Lock()

	if err := c.addLocked(req.ID, w); err != nil {
		c.mu.Unlock()

		return nil, err
	}

	// Armed under the lock so that whoever claims the waiter sees the timer.
	w.timer = time.AfterFunc(timeout, func() {
		c.expire(req.ID, w, timeout)
	})

	c.mu.Unlock()

	c.log.Debug("Sending request", "id", req.ID, "call", req.Call, "timeout", timeout)

	if err := c.write(writeCtx, req); err != nil {
		claimed := c.claim(req.ID, w)
		if claimed {
			w.timer.Stop()
		}

		if !claimed && ctx.Err() == nil {
			// The timer or a reset got the waiter first and is delivering
			// the reason the write was cut short.
			res := <-w.result

			return res.msgs, res.err
		}

		c.log.Error("Failed to send request", "id", req.ID, "error", err)

		return nil, fmt.Errorf("send request %s: %w", req.ID, err)
	}

	select {
	case res := <-w.result:
		return res.msgs, res.err

	case <-ctx.Done():
		if c.claim(req.ID, w) {
			w.timer.Stop()
			c.log.Debug("Request cancelled", "id", req.ID)

			return nil, ctx.Err()
		}

		// Someone else claimed the waiter and is delivering its result.
		res := <-w.result

		return res.msgs, res.err
	}
}

// Stream writes req when iteration starts and yields its messages as they
// arrive.
//
// The sequence ends without error after the terminal message has been
// yielded. An error-tagged terminal is yielded as a *errors.ProtocolError.
// A connection reset or ctx cancellation ends it with that error. If the
// correlator is not connected, the first pull yields ErrNotConnected.
// Stopping early releases the id. The sequence can be ranged over once.
func (c *Correlator) Stream(ctx context.Context, req message.Request) iter.Seq2[*message.Message, error] {
	var used atomic.Bool

	return func(yield func(*message.Message, error) bool) {
		if used.Swap(true) {
			yield(nil, errors.ErrStreamConsumed)

			return
		}

		w := newStreamWaiter()

		c.mu.Lock()
		err := c.addLocked(req.ID, w)
		c.mu.Unlock()

		if err != nil {
			yield(nil, err)

			return
		}

		defer c.release(req.ID, w)

		c.log.Debug("Opening stream", "id", req.ID, "call", req.Call)

		if err := c.write(ctx, req); err != nil {
			c.log.Error("Failed to send stream request", "id", req.ID, "error", err)
			yield(nil, fmt.Errorf("send request %s: %w", req.ID, err))

			return
		}

		for {
			msg, err := w.next(ctx)
			if err != nil {
				yield(nil, err)

				return
			}

			if msg.Op == message.OpError {
				yield(nil, protocolError(msg))

				return
			}

			if !yield(msg, nil) {
				return
			}

			if msg.Terminal() {
				return
			}
		}
	}
}

// Dispatch routes msg to the waiter registered under msg.ID. Messages for
// unknown or finished ids are dropped.
func (c *Correlator) Dispatch(msg *message.Message) {
	c.mu.Lock()

	w, ok := c.waiters[msg.ID]
	if !ok {
		c.mu.Unlock()
		c.log.Debug("Dropping message for unknown request", "id", msg.ID, "op", msg.Op)

		return
	}

	terminal := msg.Terminal()
	if terminal {
		delete(c.waiters, msg.ID)
	}

	switch w := w.(type) {
	case *batchWaiter:
		w.msgs = append(w.msgs, msg)
		c.mu.Unlock()

		if terminal {
			c.log.Debug("Request completed", "id", msg.ID, "op", msg.Op, "messages", len(w.msgs))
			w.complete(batchResultFor(w.msgs))
		}

	case *streamWaiter:
		c.mu.Unlock()
		w.push(msg)

	default:
		c.mu.Unlock()
	}
}

// Reset fails and removes every waiter.
func (c *Correlator) Reset(err error) {
	c.mu.Lock()

	waiters := c.waiters
	c.waiters = make(map[string]waiter, 10)

	c.mu.Unlock()

	if len(waiters) > 0 {
		c.log.Info("Failing pending requests", "count", len(waiters), "reason", err)
	}

	for _, w := range waiters {
		w.fail(err)
	}
}

// addLocked registers w under id. Caller must hold c.mu.
func (c *Correlator) addLocked(id string, w waiter) error {
	if !c.link.Connected() {
		return errors.ErrNotConnected
	}

	if _, exists := c.waiters[id]; exists {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateRequestID, id)
	}

	c.waiters[id] = w

	return nil
}

// claim removes w if it is still the waiter registered under id. The caller
// that gets true owns the waiter's completion.
func (c *Correlator) claim(id string, w waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.waiters[id]; ok && current == w {
		delete(c.waiters, id)

		return true
	}

	return false
}

// release drops a stream's routing entry when its iterator exits.
func (c *Correlator) release(id string, w *streamWaiter) {
	if c.claim(id, w) {
		c.log.Debug("Stream released before terminal message", "id", id)
	}
}

func (c *Correlator) expire(id string, w *batchWaiter, timeout time.Duration) {
	if !c.claim(id, w) {
		return
	}

	c.log.Warn("Request timed out", "id", id, "timeout", timeout)
	w.fail(fmt.Errorf("%w after %s", errors.ErrRequestTimeout, timeout))

	if w.abort != nil {
		w.abort()
	}
}

func (c *Correlator) write(ctx context.Context, req message.Request) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := message.Encode(buf, req); err != nil {
		return err
	}

	return c.link.SendFrame(ctx, buf.B)
}

func batchResultFor(msgs []*message.Message) batchResult {
	last := msgs[len(msgs)-1]
	if last.Op == message.OpError {
		return batchResult{err: protocolError(last)}
	}

	return batchResult{msgs: msgs}
}

func protocolError(msg *message.Message) *errors.ProtocolError {
	return &errors.ProtocolError{
		ID:      msg.ID,
		Code:    msg.Code,
		Message: msg.Message,
	}
}

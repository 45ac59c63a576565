package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/wagiedev/linemux-go/internal/message"
)

// waiter is a routing table entry, either a *batchWaiter or a *streamWaiter.
//
// Whoever removes a waiter from the table owns its completion, so fail is
// called at most once.
type waiter interface {
	fail(err error)
}

// Compile-time verification that both waiter kinds implement waiter.
var (
	_ waiter = (*batchWaiter)(nil)
	_ waiter = (*streamWaiter)(nil)
)

type batchResult struct {
	msgs []*message.Message
	err  error
}

// batchWaiter collects messages for Send until a terminal one arrives.
// msgs is guarded by the Correlator's mutex.
type batchWaiter struct {
	msgs   []*message.Message
	timer  *time.Timer
	abort  context.CancelFunc // cancels the request write
	result chan batchResult
}

func newBatchWaiter() *batchWaiter {
	return &batchWaiter{result: make(chan batchResult, 1)}
}

func (w *batchWaiter) complete(res batchResult) {
	if w.timer != nil {
		w.timer.Stop()
	}

	w.result <- res
}

func (w *batchWaiter) fail(err error) {
	w.complete(batchResult{err: err})
}

// streamWaiter queues messages for a Stream iterator.
// There is one reader (the iterator) and one writer (dispatch).
type streamWaiter struct {
	mu     sync.Mutex
	queue  []*message.Message
	err    error
	notify chan struct{}
}

func newStreamWaiter() *streamWaiter {
	return &streamWaiter{notify: make(chan struct{}, 1)}
}

func (w *streamWaiter) push(msg *message.Message) {
	w.mu.Lock()
	w.queue = append(w.queue, msg)
	w.mu.Unlock()

	w.signal()
}

func (w *streamWaiter) fail(err error) {
	w.mu.Lock()

	if w.err == nil {
		w.err = err
	}

	w.mu.Unlock()

	w.signal()
}

func (w *streamWaiter) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// next returns the oldest queued message, suspending until one arrives.
// Queued messages are drained before a failure is reported.
func (w *streamWaiter) next(ctx context.Context) (*message.Message, error) {
	for {
		w.mu.Lock()

		if len(w.queue) > 0 {
			msg := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]

			w.mu.Unlock()

			return msg, nil
		}

		err := w.err

		w.mu.Unlock()

		if err != nil {
			return nil, err
		}

		select {
		case <-w.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

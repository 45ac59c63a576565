package transport

import (
	"bytes"

	"github.com/valyala/bytebufferpool"

	"github.com/wagiedev/linemux-go/internal/errors"
)

const (
	// maxFrameSize is the largest partial frame kept while waiting for its
	// delimiter.
	maxFrameSize = 1024 * 1024 // 1MB

	frameDelimiter = '\n'
)

// framer accumulates stream bytes and splits them into frames.
type framer struct {
	buf *bytebufferpool.ByteBuffer
	max int
}

func newFramer(maxSize int) *framer {
	return &framer{
		buf: bytebufferpool.Get(),
		max: maxSize,
	}
}

// Feed appends chunk and calls emit for every complete, non-blank frame, in
// order, with the delimiter and surrounding whitespace removed. The frame
// slice is only valid during the call. Only the trailing partial frame is
// kept afterwards.
func (f *framer) Feed(chunk []byte, emit func(frame []byte)) error {
	_, _ = f.buf.Write(chunk)

	data := f.buf.B
	start := 0

	for {
		i := bytes.IndexByte(data[start:], frameDelimiter)
		if i < 0 {
			break
		}

		frame := bytes.TrimSpace(data[start : start+i])
		start += i + 1

		if len(frame) > 0 {
			emit(frame)
		}
	}

	n := copy(data, data[start:])
	f.buf.B = data[:n]

	if n > f.max {
		return errors.ErrFrameTooLarge
	}

	return nil
}

// Buffered returns the size of the pending partial frame.
func (f *framer) Buffered() int {
	return f.buf.Len()
}

// release returns the buffer to the pool. The framer must not be used after.
func (f *framer) release() {
	bytebufferpool.Put(f.buf)
	f.buf = nil
}

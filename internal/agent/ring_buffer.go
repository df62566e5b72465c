package agent

import (
	"sync"
)

const defaultMaxOutputBytes = 1 << 20

// ringBuffer keeps the most recent size bytes written to it so a chatty
// agent cannot exhaust memory. Older bytes are overwritten and counted.
type ringBuffer struct {
	mu      sync.Mutex
	buf     []byte
	start   int // oldest byte
	n       int // bytes held
	dropped int64
}

func newRingBuffer(size int) *ringBuffer {
	if size <= 0 {
		size = defaultMaxOutputBytes
	}
	return &ringBuffer{buf: make([]byte, size)}
}

// Write implements io.Writer. It never fails.
func (r *ringBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	if len(p) >= size {
		r.dropped += int64(r.n + len(p) - size)
		copy(r.buf, p[len(p)-size:])
		r.start, r.n = 0, size
		return len(p), nil
	}

	if over := r.n + len(p) - size; over > 0 {
		r.start = (r.start + over) % size
		r.n -= over
		r.dropped += int64(over)
	}

	end := (r.start + r.n) % size
	k := copy(r.buf[end:], p)
	copy(r.buf, p[k:])
	r.n += len(p)
	return len(p), nil
}

// Bytes returns a copy of the held bytes, oldest first.
func (r *ringBuffer) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, r.n)
	k := copy(out, r.buf[r.start:min(r.start+r.n, len(r.buf))])
	copy(out[k:], r.buf[:r.n-k])
	return out
}

func (r *ringBuffer) String() string {
	return string(r.Bytes())
}

// Dropped reports how many bytes were overwritten.
func (r *ringBuffer) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

package audio

import "sync"

// Ring is a looping sample buffer: the capture callback writes into it and
// the playback callback reads behind the write cursor. When the reader
// catches up it gets silence; when the writer laps the reader the oldest
// samples are dropped.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	w       int   // next write index
	r       int   // next read index
	pending int   // unread samples, <= len(buf)
	written int64 // total samples ever written
}

// NewRing creates a ring holding n samples.
func NewRing(n int) *Ring {
	if n <= 0 {
		n = 1
	}
	return &Ring{buf: make([]float32, n)}
}

// Write appends samples, overwriting the oldest when full.
func (rb *Ring) Write(samples []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for _, s := range samples {
		rb.buf[rb.w] = s
		rb.w = (rb.w + 1) % len(rb.buf)
		if rb.pending == len(rb.buf) {
			rb.r = rb.w // writer lapped the reader
		} else {
			rb.pending++
		}
	}
	rb.written += int64(len(samples))
}

// Read fills out with pending samples and zero-fills the remainder.
// Returns the number of real samples copied.
func (rb *Ring) Read(out []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(out)
	if n > rb.pending {
		n = rb.pending
	}
	for i := 0; i < n; i++ {
		out[i] = rb.buf[rb.r]
		rb.r = (rb.r + 1) % len(rb.buf)
	}
	rb.pending -= n
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return n
}

// Written reports the total number of samples the device has produced.
// A non-zero value is the readiness signal after opening a capture.
func (rb *Ring) Written() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.written
}

// Buffered reports the number of unread samples.
func (rb *Ring) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.pending
}

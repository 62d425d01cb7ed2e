package video

import (
	"sync"
	"time"
)

// meterWindow is the wall-clock span over which frame arrivals are
// averaged before the reported rate updates.
const meterWindow = 500 * time.Millisecond

// RateMeter measures an observed frame rate: arrivals accumulate over a
// fixed window and the reported value is the window average, with the
// accumulator reset at each window boundary.
type RateMeter struct {
	mu     sync.Mutex
	window time.Duration
	start  time.Time
	frames int
	rate   float64
	now    func() time.Time
}

// NewRateMeter creates a meter averaging over the given window.
func NewRateMeter(window time.Duration) *RateMeter {
	if window <= 0 {
		window = meterWindow
	}
	return &RateMeter{window: window, now: time.Now}
}

// Tick records one frame arrival.
func (m *RateMeter) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.start.IsZero() {
		m.start = now
	}
	m.frames++

	elapsed := now.Sub(m.start)
	if elapsed >= m.window {
		m.rate = float64(m.frames) / elapsed.Seconds()
		m.frames = 0
		m.start = now
	}
}

// Rate returns the last completed window's average, or 0 before the first window
// completes.
func (m *RateMeter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Reset clears the meter.
func (m *RateMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = time.Time{}
	m.frames = 0
	m.rate = 0
}

package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateMeterAveragesOverWindow(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewRateMeter(500 * time.Millisecond)
	m.now = func() time.Time { return now }

	// No completed window yet.
	assert.Equal(t, 0.0, m.Rate())

	// 30 frames spread across exactly half a second.
	for i := 0; i < 30; i++ {
		m.Tick()
		now = now.Add(500 * time.Millisecond / 30)
	}
	m.Tick() // crosses the window boundary

	assert.InDelta(t, 60.0, m.Rate(), 3.0)
}

func TestRateMeterResetsAccumulatorEachWindow(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewRateMeter(500 * time.Millisecond)
	m.now = func() time.Time { return now }

	// Fast window: 60 ticks in 0.5s.
	for i := 0; i < 60; i++ {
		now = now.Add(500 * time.Millisecond / 60)
		m.Tick()
	}
	fast := m.Rate()
	assert.InDelta(t, 120.0, fast, 5.0)

	// Slow window: 10 ticks in 0.5s. The previous window must not bleed in.
	for i := 0; i < 10; i++ {
		now = now.Add(50 * time.Millisecond)
		m.Tick()
	}
	assert.InDelta(t, 20.0, m.Rate(), 3.0)
}

func TestRateMeterReset(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewRateMeter(500 * time.Millisecond)
	m.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		now = now.Add(10 * time.Millisecond)
		m.Tick()
	}
	assert.NotZero(t, m.Rate())

	m.Reset()
	assert.Equal(t, 0.0, m.Rate())
}

func TestModeAspect(t *testing.T) {
	assert.InDelta(t, 16.0/9.0, Mode{Width: 1920, Height: 1080}.Aspect(), 1e-9)
	assert.InDelta(t, 4.0/3.0, Mode{Width: 640, Height: 480}.Aspect(), 1e-9)

	// Degenerate modes report the placeholder ratio.
	assert.InDelta(t, 16.0/9.0, Mode{}.Aspect(), 1e-9)
}

package resync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTarget struct {
	restarts atomic.Int64
}

func (c *countingTarget) Restart() error {
	c.restarts.Add(1)
	return nil
}

func TestStartFiresAfterFullInterval(t *testing.T) {
	target := &countingTarget{}
	s := New(target, zerolog.Nop())
	defer s.Stop()

	s.Start(50 * time.Millisecond)

	// Nothing fires before the first interval elapses.
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, target.restarts.Load())

	require.Eventually(t, func() bool {
		return target.restarts.Load() >= 2
	}, time.Second, 5*time.Millisecond, "timer keeps repeating")
}

func TestRestartReplacesTimer(t *testing.T) {
	target := &countingTarget{}
	s := New(target, zerolog.Nop())
	defer s.Stop()

	s.Start(30 * time.Millisecond)
	s.Start(500 * time.Millisecond)

	assert.True(t, s.Armed())
	assert.Equal(t, 500*time.Millisecond, s.Interval())

	// If the first timer were still alive it would have fired many times
	// by now; the replacement hasn't reached its first interval yet.
	time.Sleep(200 * time.Millisecond)
	assert.EqualValues(t, 0, target.restarts.Load())
}

func TestStopDisarms(t *testing.T) {
	target := &countingTarget{}
	s := New(target, zerolog.Nop())

	s.Start(20 * time.Millisecond)
	s.Stop()
	assert.False(t, s.Armed())
	assert.Equal(t, time.Duration(0), s.Interval())

	fired := target.restarts.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, fired, target.restarts.Load(), "no firings after stop")
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(&countingTarget{}, zerolog.Nop())

	s.Stop() // never armed
	s.Start(20 * time.Millisecond)
	s.Stop()
	s.Stop()
	assert.False(t, s.Armed())
}

func TestStartIgnoresNonPositiveInterval(t *testing.T) {
	s := New(&countingTarget{}, zerolog.Nop())

	s.Start(0)
	assert.False(t, s.Armed())

	s.Start(-time.Minute)
	assert.False(t, s.Armed())
}

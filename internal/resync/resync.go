// Package resync periodically restarts the audio capture to clear the
// distortion that accumulates over long sessions. The root cause lives in
// the capture hardware or its driver; re-acquiring the device is the
// mitigation, not a fix.
package resync

import (
	"context"
	"sync"
	"time"

	"github.com/petems/capture-tray/internal/metrics"
	"github.com/rs/zerolog"
)

// Target is the operation the scheduler fires. The audio session's
// Restart satisfies it.
type Target interface {
	Restart() error
}

// Scheduler arms at most one repeating timer against its target. Start
// cancels any armed timer before arming a new one, so an interval change
// never leaves two firing loops behind.
type Scheduler struct {
	target Target
	log    zerolog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// New creates a disarmed scheduler.
func New(target Target, log zerolog.Logger) *Scheduler {
	return &Scheduler{target: target, log: log}
}

// Start arms the timer. The first firing comes after one full interval,
// not immediately. Replaces any previously armed timer.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.interval = interval

	go s.run(ctx, interval, done)
	s.log.Info().Dur("interval", interval).Msg("Audio sync timer armed")
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.target.Restart(); err != nil {
				s.log.Error().Err(err).Msg("Scheduled audio restart failed")
				continue
			}
			metrics.AudioResyncs.WithLabelValues("scheduled").Inc()
		}
	}
}

// Stop disarms the timer. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done // confirm the firing loop exited before rearming
	s.cancel = nil
	s.done = nil
	s.interval = 0
}

// Armed reports whether a timer is currently armed.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Interval reports the armed interval, or 0 when disarmed.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

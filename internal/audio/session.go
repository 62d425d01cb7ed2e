package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultVolume is restored on unmute when the saved volume was zero.
	DefaultVolume = 0.5

	// loopDuration is the length of the looping capture buffer.
	loopDuration = time.Second

	// playbackDelay offsets playback start to avoid an audible pop while
	// the buffer fills.
	playbackDelay = 50 * time.Millisecond

	readinessTimeout = 2 * time.Second
	readinessBackoff = 5 * time.Millisecond
)

// Session owns at most one active audio capture feeding a playback sink.
// All methods are safe for concurrent use; the stop-old/start-new
// transition in Configure happens under one lock so no caller can observe
// a half-configured session.
type Session struct {
	backend Backend
	log     zerolog.Logger

	mu         sync.Mutex
	deviceName string
	sampleRate int
	ring       *Ring
	capture    Capture
	playback   Playback
	vol        Volume
	userVolume float64
	preMute    float64
	muted      bool
	paused     bool

	readiness time.Duration // overridden in tests
}

// NewSession creates an idle session on the given backend.
func NewSession(backend Backend, log zerolog.Logger) *Session {
	s := &Session{
		backend:    backend,
		log:        log,
		userVolume: DefaultVolume,
		readiness:  readinessTimeout,
	}
	s.vol.Set(DefaultVolume)
	return s
}

// Configure switches capture to the named device. An empty or sentinel
// name stops capture and clears the device. On failure the session is left
// in the no-device state and a typed error is returned.
func (s *Session) Configure(deviceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configureLocked(deviceName)
}

func (s *Session) configureLocked(deviceName string) error {
	s.stopLocked()

	if !DeviceSelected(deviceName) {
		s.log.Info().Msg("Audio capture disabled")
		return nil
	}

	maxRate, err := s.backend.MaxSampleRate(deviceName)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, deviceName, err)
	}
	// Half the maximum supported rate: trades fidelity for stable capture
	// on flaky USB devices.
	rate := maxRate / 2
	if rate <= 0 {
		return fmt.Errorf("%w: %s reported max sample rate %d", ErrDeviceUnavailable, deviceName, maxRate)
	}

	ring := NewRing(int(float64(rate) * loopDuration.Seconds()))
	capture, err := s.backend.OpenCapture(deviceName, rate, ring)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, deviceName, err)
	}

	if err := waitReady(ring, s.readiness); err != nil {
		capture.Stop()
		return err
	}

	playback, err := s.backend.OpenPlayback(rate, ring, &s.vol)
	if err != nil {
		capture.Stop()
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, deviceName, err)
	}
	if err := playback.Start(playbackDelay); err != nil {
		capture.Stop()
		playback.Stop()
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, deviceName, err)
	}

	s.deviceName = deviceName
	s.sampleRate = rate
	s.ring = ring
	s.capture = capture
	s.playback = playback
	s.paused = false
	s.applyVolumeLocked()

	s.log.Info().Str("device", deviceName).Int("sampleRate", rate).Msg("Audio capture started")
	return nil
}

// waitReady polls the ring until the device has written its first samples.
// Bounded: a device that never reports data yields ErrReadinessTimeout
// instead of hanging the caller.
func waitReady(ring *Ring, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for ring.Written() == 0 {
		if time.Now().After(deadline) {
			return ErrReadinessTimeout
		}
		time.Sleep(readinessBackoff)
	}
	return nil
}

// Stop halts capture and playback. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	if s.capture != nil {
		s.capture.Stop()
		s.capture = nil
	}
	s.ring = nil
	s.deviceName = ""
	s.sampleRate = 0
	s.paused = false
}

// Restart re-acquires the current device to clear accumulated distortion
// artifacts, preserving volume and mute state. No-op without a device.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !DeviceSelected(s.deviceName) {
		return nil
	}

	device := s.deviceName
	s.log.Info().Str("device", device).Msg("Restarting audio capture")
	return s.configureLocked(device)
}

// SetVolume stores clamp(v, 0, 1). A positive volume clears mute.
func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.userVolume = v
	if v > 0 {
		s.muted = false
	}
	s.applyVolumeLocked()
}

// Volume returns the user-set volume, independent of mute.
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userVolume
}

// Mute zeroes the sink volume, remembering the current value. No-op when
// already muted.
func (s *Session) Mute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.muted {
		return
	}
	s.preMute = s.userVolume
	s.muted = true
	s.applyVolumeLocked()
}

// Unmute restores the pre-mute volume, or DefaultVolume if that was zero.
func (s *Session) Unmute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.muted {
		return
	}
	s.muted = false
	s.userVolume = s.preMute
	if s.userVolume == 0 {
		s.userVolume = DefaultVolume
	}
	s.applyVolumeLocked()
}

// ToggleMute flips the mute state.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	muted := s.muted
	s.mu.Unlock()

	if muted {
		s.Unmute()
	} else {
		s.Mute()
	}
}

func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// applyVolumeLocked pushes the effective sink volume to the playback gain.
func (s *Session) applyVolumeLocked() {
	if s.muted {
		s.vol.Set(0)
		return
	}
	s.vol.Set(s.userVolume)
}

// Pause halts playback without releasing the device, for process suspend.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playback == nil || s.paused {
		return
	}
	if err := s.playback.Pause(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to pause playback")
		return
	}
	s.paused = true
}

// Resume unpauses playback if a stream is still bound.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playback == nil || !s.paused {
		return
	}
	if err := s.playback.Resume(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to resume playback")
		return
	}
	s.paused = false
}

// DeviceName returns the active device name, or "" when idle.
func (s *Session) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceName
}

// SampleRate returns the active sampling rate, or 0 when idle.
func (s *Session) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Active reports whether a device is currently capturing.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture != nil
}

// ListDevices enumerates the backend's input devices.
func (s *Session) ListDevices() ([]Device, error) {
	return s.backend.Devices()
}

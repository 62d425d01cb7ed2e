package video

import (
	"fmt"
	"sync"

	"github.com/petems/capture-tray/internal/metrics"
	"github.com/rs/zerolog"
)

// Session owns at most one active video capture handle bound to the
// display sink. Configure replaces the handle as a single stop-old,
// start-new transition under one lock, so the sink never observes a stale
// or half-bound source.
type Session struct {
	backend Backend
	sink    Sink
	log     zerolog.Logger

	mu         sync.Mutex
	deviceName string
	requested  Mode
	actual     Mode
	handle     Handle
	pumpDone   chan struct{}
	meter      *RateMeter
}

// NewSession creates an idle session displaying the placeholder.
func NewSession(backend Backend, sink Sink, log zerolog.Logger) *Session {
	return &Session{
		backend: backend,
		sink:    sink,
		log:     log,
		meter:   NewRateMeter(meterWindow),
	}
}

// Configure switches capture to the named device at the requested mode.
// An empty or sentinel name stops capture and shows the placeholder. On
// open failure the session degrades to the no-device state and returns a
// typed error.
func (s *Session) Configure(deviceName string, requested Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configureLocked(deviceName, requested)
}

func (s *Session) configureLocked(deviceName string, requested Mode) error {
	s.stopLocked()

	if !DeviceSelected(deviceName) {
		s.sink.ShowPlaceholder()
		s.sink.SetAspect(placeholderAspect)
		s.log.Info().Msg("Video capture disabled")
		return nil
	}

	if requested.Width <= 0 || requested.Height <= 0 {
		requested.Width = DefaultWidth
		requested.Height = DefaultHeight
	}
	if requested.FPS <= 0 {
		requested.FPS = DefaultFPS
	}

	handle, err := s.backend.Open(deviceName, requested)
	if err != nil {
		s.sink.ShowPlaceholder()
		s.sink.SetAspect(placeholderAspect)
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, deviceName, err)
	}

	actual := handle.Mode()

	// Bind before any frame can arrive: aspect from the actual mode the
	// device granted, not the requested one.
	out := make(chan Frame, 4)
	s.sink.SetAspect(actual.Aspect())
	s.sink.SetSource(out)

	s.deviceName = deviceName
	s.requested = requested
	s.actual = actual
	s.handle = handle
	s.meter.Reset()
	s.pumpDone = make(chan struct{})
	go s.pump(handle.Frames(), out, s.pumpDone)

	s.log.Info().
		Str("device", deviceName).
		Int("width", actual.Width).
		Int("height", actual.Height).
		Int("fps", actual.FPS).
		Msg("Video capture started")
	return nil
}

// pump forwards frames from the handle to the sink, metering the observed
// rate. Slow sinks drop frames rather than stall capture.
func (s *Session) pump(in <-chan Frame, out chan<- Frame, done chan struct{}) {
	defer close(done)
	defer close(out)

	for frame := range in {
		s.meter.Tick()
		metrics.ActualFPS.Set(s.meter.Rate())

		select {
		case out <- frame:
		default:
		}
	}
}

// ChangeResolution re-opens the current device at a new resolution.
// No-op without a device: the underlying APIs cannot resize a live stream,
// so this is a full restart.
func (s *Session) ChangeResolution(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !DeviceSelected(s.deviceName) {
		return nil
	}
	req := s.requested
	req.Width = width
	req.Height = height
	return s.configureLocked(s.deviceName, req)
}

// ChangeFrameRate re-opens the current device at a new frame rate. No-op
// without a device.
func (s *Session) ChangeFrameRate(fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !DeviceSelected(s.deviceName) {
		return nil
	}
	req := s.requested
	req.FPS = fps
	return s.configureLocked(s.deviceName, req)
}

// Stop halts capture. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.handle == nil {
		return
	}
	s.handle.Stop()
	<-s.pumpDone // no frames in flight once the old source is released
	s.handle = nil
	s.pumpDone = nil
	s.deviceName = ""
	s.actual = Mode{}
	s.meter.Reset()
	metrics.ActualFPS.Set(0)
}

// DeviceName returns the active device name, or "" when idle.
func (s *Session) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceName
}

// ActualMode reports the mode the device actually granted.
func (s *Session) ActualMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actual
}

// Active reports whether a device is currently capturing.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// ActualFrameRate reports the measured frame rate, averaged over the
// meter window. Zero until the first window completes.
func (s *Session) ActualFrameRate() float64 {
	return s.meter.Rate()
}

// ListDevices enumerates the backend's capture devices.
func (s *Session) ListDevices() ([]Device, error) {
	return s.backend.Devices()
}

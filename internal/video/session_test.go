package video

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBackend grants whatever mode the fake device supports, which may
// differ from the request.
type mockBackend struct {
	granted Mode // zero value means "grant the request"
	openErr error
	handles []*mockHandle
}

func (m *mockBackend) Devices() ([]Device, error) {
	return []Device{{Name: "DeviceA", Path: "/dev/video0"}}, nil
}

func (m *mockBackend) Open(name string, requested Mode) (Handle, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	mode := m.granted
	if mode == (Mode{}) {
		mode = requested
	}
	h := &mockHandle{mode: mode, frames: make(chan Frame)}
	m.handles = append(m.handles, h)
	return h, nil
}

type mockHandle struct {
	mode    Mode
	frames  chan Frame
	stopped bool
}

func (h *mockHandle) Mode() Mode           { return h.mode }
func (h *mockHandle) Frames() <-chan Frame { return h.frames }
func (h *mockHandle) Stop() error {
	if !h.stopped {
		h.stopped = true
		close(h.frames)
	}
	return nil
}

// mockSink records the binding sequence the session performs.
type mockSink struct {
	source      <-chan Frame
	aspect      float64
	placeholder bool
}

func (s *mockSink) SetSource(frames <-chan Frame) {
	s.source = frames
	s.placeholder = false
}

func (s *mockSink) SetAspect(ratio float64) { s.aspect = ratio }
func (s *mockSink) ShowPlaceholder()        { s.placeholder = true }

func newTestVideoSession(b *mockBackend) (*Session, *mockSink) {
	sink := &mockSink{}
	return NewSession(b, sink, zerolog.Nop()), sink
}

func TestConfigureBindsActualMode(t *testing.T) {
	b := &mockBackend{granted: Mode{Width: 1280, Height: 720, FPS: 30}}
	s, sink := newTestVideoSession(b)

	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1920, Height: 1080, FPS: 60}))

	// Aspect comes from what the device granted, not what was asked for.
	assert.Equal(t, Mode{Width: 1280, Height: 720, FPS: 30}, s.ActualMode())
	assert.InDelta(t, 1280.0/720.0, sink.aspect, 1e-9)
	assert.NotNil(t, sink.source)
	assert.False(t, sink.placeholder)
	assert.True(t, s.Active())
}

func TestConfigureSentinelShowsPlaceholder(t *testing.T) {
	b := &mockBackend{}
	s, sink := newTestVideoSession(b)
	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1920, Height: 1080, FPS: 60}))

	for _, name := range []string{"", NoDevice} {
		require.NoError(t, s.Configure(name, Mode{}))
		assert.False(t, s.Active())
		assert.Equal(t, "", s.DeviceName())
		assert.True(t, sink.placeholder)
		assert.InDelta(t, 16.0/9.0, sink.aspect, 1e-9)
	}
}

func TestConfigureFallsBackToDefaultsOnNonPositiveMode(t *testing.T) {
	b := &mockBackend{}
	s, _ := newTestVideoSession(b)

	require.NoError(t, s.Configure("DeviceA", Mode{Width: 0, Height: -1, FPS: 0}))
	assert.Equal(t, Mode{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}, s.ActualMode())
}

func TestConfigureOpenFailureDegradesToPlaceholder(t *testing.T) {
	b := &mockBackend{openErr: errors.New("busy")}
	s, sink := newTestVideoSession(b)

	err := s.Configure("DeviceA", Mode{Width: 1920, Height: 1080, FPS: 60})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.False(t, s.Active())
	assert.True(t, sink.placeholder)
}

func TestStopStartStopStartLeavesNoDanglingHandle(t *testing.T) {
	b := &mockBackend{}
	s, _ := newTestVideoSession(b)
	req := Mode{Width: 1920, Height: 1080, FPS: 60}

	require.NoError(t, s.Configure("DeviceA", req))
	require.NoError(t, s.Configure("", Mode{}))
	require.NoError(t, s.Configure("DeviceA", req))

	assert.Equal(t, "DeviceA", s.DeviceName())
	assert.Equal(t, req, s.ActualMode())
	require.Len(t, b.handles, 2)
	assert.True(t, b.handles[0].stopped)
	assert.False(t, b.handles[1].stopped)
}

func TestChangeResolutionRestartsWithExistingFrameRate(t *testing.T) {
	b := &mockBackend{}
	s, _ := newTestVideoSession(b)
	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1920, Height: 1080, FPS: 60}))

	require.NoError(t, s.ChangeResolution(1280, 720))

	assert.Equal(t, Mode{Width: 1280, Height: 720, FPS: 60}, s.ActualMode())
	require.Len(t, b.handles, 2, "resolution change is a full restart")
	assert.True(t, b.handles[0].stopped)
}

func TestChangeFrameRateRestartsWithExistingResolution(t *testing.T) {
	b := &mockBackend{}
	s, _ := newTestVideoSession(b)
	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1280, Height: 720, FPS: 60}))

	require.NoError(t, s.ChangeFrameRate(30))
	assert.Equal(t, Mode{Width: 1280, Height: 720, FPS: 30}, s.ActualMode())
}

func TestChangeResolutionWithoutDeviceIsNoop(t *testing.T) {
	b := &mockBackend{}
	s, _ := newTestVideoSession(b)

	require.NoError(t, s.ChangeResolution(1280, 720))
	require.NoError(t, s.ChangeFrameRate(30))
	assert.Empty(t, b.handles)
}

func TestStopIsIdempotent(t *testing.T) {
	b := &mockBackend{}
	s, _ := newTestVideoSession(b)
	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1920, Height: 1080, FPS: 60}))

	s.Stop()
	s.Stop()
	assert.False(t, s.Active())
}

// slowStopHandle closes its frame channel only after Stop, from a separate
// goroutine, the way a device read loop winds down. A device that never
// delivered a frame must still stop promptly.
type slowStopHandle struct {
	mode   Mode
	frames chan Frame
	stop   chan struct{}
	once   sync.Once
}

func newSlowStopHandle(mode Mode) *slowStopHandle {
	h := &slowStopHandle{mode: mode, frames: make(chan Frame), stop: make(chan struct{})}
	go func() {
		<-h.stop
		time.Sleep(10 * time.Millisecond)
		close(h.frames)
	}()
	return h
}

func (h *slowStopHandle) Mode() Mode           { return h.mode }
func (h *slowStopHandle) Frames() <-chan Frame { return h.frames }
func (h *slowStopHandle) Stop() error {
	h.once.Do(func() { close(h.stop) })
	return nil
}

type slowStopBackend struct{}

func (b *slowStopBackend) Devices() ([]Device, error) {
	return []Device{{Name: "DeviceA", Path: "/dev/video0"}}, nil
}

func (b *slowStopBackend) Open(name string, requested Mode) (Handle, error) {
	return newSlowStopHandle(requested), nil
}

func TestStopWaitsOutAsynchronousHandleShutdown(t *testing.T) {
	s := NewSession(&slowStopBackend{}, &mockSink{}, zerolog.Nop())
	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1280, Height: 720, FPS: 30}))

	errc := make(chan error, 1)
	go func() { errc <- s.Configure("", Mode{}) }()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("device change blocked on handle shutdown")
	}
	assert.False(t, s.Active())
}

func TestPumpForwardsFramesToSink(t *testing.T) {
	b := &mockBackend{}
	s, sink := newTestVideoSession(b)
	require.NoError(t, s.Configure("DeviceA", Mode{Width: 1280, Height: 720, FPS: 30}))

	b.handles[0].frames <- Frame{Data: []byte{1}, Width: 1280, Height: 720}

	select {
	case f := <-sink.source:
		assert.Equal(t, []byte{1}, f.Data)
	case <-time.After(time.Second):
		t.Fatal("frame never reached the sink")
	}

	s.Stop()
}

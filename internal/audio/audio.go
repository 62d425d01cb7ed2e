package audio

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// NoDevice is the reserved device name meaning "capture explicitly
// disabled". The empty string is treated the same way.
const NoDevice = "None"

// DeviceSelected reports whether name refers to a real device.
func DeviceSelected(name string) bool {
	return name != "" && name != NoDevice
}

var (
	// ErrDeviceUnavailable means the named device was not found or could
	// not be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrReadinessTimeout means an opened device produced no samples
	// before the readiness deadline.
	ErrReadinessTimeout = errors.New("audio device produced no data before deadline")
)

// Device is an audio input device as reported by the host API.
type Device struct {
	Name    string
	Default bool
}

// Backend abstracts the host audio API so the session can be tested
// without real hardware.
type Backend interface {
	// Devices lists the available input devices.
	Devices() ([]Device, error)
	// MaxSampleRate reports the highest sampling rate the device supports.
	MaxSampleRate(deviceName string) (int, error)
	// OpenCapture starts capturing from the device into ring at the given
	// rate. The returned Capture stays active until Stop.
	OpenCapture(deviceName string, sampleRate int, ring *Ring) (Capture, error)
	// OpenPlayback creates a playback stream pulling from ring, scaled by
	// vol. Playback does not start until Start is called.
	OpenPlayback(sampleRate int, ring *Ring, vol *Volume) (Playback, error)
	Close() error
}

// Capture is an active recording stream.
type Capture interface {
	Stop() error
}

// Playback is a playback stream bound to a capture ring.
type Playback interface {
	// Start begins playback after the given delay.
	Start(delay time.Duration) error
	// Pause halts playback without releasing the stream.
	Pause() error
	// Resume restarts a paused stream.
	Resume() error
	Stop() error
}

// Volume is a gain shared between the session and the playback callback.
// The callback reads it on the audio thread, so access is atomic.
type Volume struct {
	bits atomic.Uint64
}

func (v *Volume) Set(f float64) {
	v.bits.Store(math.Float64bits(f))
}

func (v *Volume) Get() float64 {
	return math.Float64frombits(v.bits.Load())
}

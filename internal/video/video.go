package video

import "errors"

// NoDevice is the reserved device name meaning "capture explicitly
// disabled". The empty string is treated the same way.
const NoDevice = "None"

// DeviceSelected reports whether name refers to a real device.
func DeviceSelected(name string) bool {
	return name != "" && name != NoDevice
}

// ErrDeviceUnavailable means the named device was not found or could not
// be opened.
var ErrDeviceUnavailable = errors.New("video device unavailable")

// Component defaults, applied when a requested mode is non-positive.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
	DefaultFPS    = 60
)

// placeholderAspect is the fixed ratio of the "no signal" placeholder.
const placeholderAspect = 16.0 / 9.0

// Device is a video capture device as reported by the host API.
type Device struct {
	Name string
	Path string
}

// Mode is a capture resolution and frame rate.
type Mode struct {
	Width  int
	Height int
	FPS    int
}

// Aspect returns the width/height ratio, or the placeholder ratio for a
// degenerate mode.
func (m Mode) Aspect() float64 {
	if m.Width <= 0 || m.Height <= 0 {
		return placeholderAspect
	}
	return float64(m.Width) / float64(m.Height)
}

// Frame is one captured image buffer.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// Backend abstracts the host video capture API.
type Backend interface {
	// Devices lists the available capture devices.
	Devices() ([]Device, error)
	// Open acquires the named device at the requested mode. The device may
	// negotiate a different mode; the handle reports the actual one.
	Open(name string, requested Mode) (Handle, error)
}

// Handle is an open, streaming capture device.
type Handle interface {
	// Mode reports the actual negotiated mode, which may differ from the
	// requested one.
	Mode() Mode
	// Frames delivers captured frames. Closed after Stop.
	Frames() <-chan Frame
	Stop() error
}

// Sink is the display surface consuming live frames. It is an external
// collaborator; the session only pushes a frame source and an aspect hint.
type Sink interface {
	// SetSource binds a new live frame source, replacing any previous one.
	SetSource(frames <-chan Frame)
	// SetAspect updates the aspect-ratio hint.
	SetAspect(ratio float64)
	// ShowPlaceholder switches the display to the "no signal" placeholder.
	ShowPlaceholder()
}

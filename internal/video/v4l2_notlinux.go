//go:build !linux

package video

import "fmt"

type unsupportedBackend struct{}

// NewV4L2 returns a backend that enumerates nothing on platforms without
// V4L2. The session degrades to the placeholder instead of failing to
// start.
func NewV4L2() (Backend, error) {
	return &unsupportedBackend{}, nil
}

func (b *unsupportedBackend) Devices() ([]Device, error) {
	return nil, nil
}

func (b *unsupportedBackend) Open(name string, requested Mode) (Handle, error) {
	return nil, fmt.Errorf("video capture is not supported on this platform: %s", name)
}

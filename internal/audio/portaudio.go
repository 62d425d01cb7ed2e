package audio

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

// probeRates is the ladder of standard rates used to find a device's
// maximum supported sampling rate, highest first.
var probeRates = []int{384000, 192000, 176400, 96000, 88200, 48000, 44100, 32000, 22050, 16000, 8000}

type paBackend struct{}

// NewPortAudio creates a PortAudio-based audio backend.
func NewPortAudio() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &paBackend{}, nil
}

func (b *paBackend) Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (b *paBackend) MaxSampleRate(deviceName string) (int, error) {
	device, err := findInputDevice(deviceName)
	if err != nil {
		return 0, err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
	}
	for _, rate := range probeRates {
		params.SampleRate = float64(rate)
		if err := portaudio.IsFormatSupported(params, make([]float32, 64)); err == nil {
			return rate, nil
		}
	}

	// No probe hit; trust the device's own report.
	return int(device.DefaultSampleRate), nil
}

func (b *paBackend) OpenCapture(deviceName string, sampleRate int, ring *Ring) (Capture, error) {
	device, err := findInputDevice(deviceName)
	if err != nil {
		return nil, err
	}

	// Open stream: mono, specified sample rate, float32
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: 512,
	}, func(in []float32) {
		ring.Write(in)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start capture stream: %w", err)
	}

	return &paCapture{stream: stream}, nil
}

func (b *paBackend) OpenPlayback(sampleRate int, ring *Ring, vol *Volume) (Playback, error) {
	device, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to get default output device: %w", err)
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: 512,
	}, func(out []float32) {
		ring.Read(out)
		gain := float32(vol.Get())
		for i := range out {
			out[i] *= gain
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}

	return &paPlayback{stream: stream}, nil
}

func (b *paBackend) Close() error {
	portaudio.Terminate()
	return nil
}

func findInputDevice(deviceName string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceName && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", deviceName)
}

type paCapture struct {
	stream *portaudio.Stream
}

func (c *paCapture) Stop() error {
	c.stream.Stop()
	return c.stream.Close()
}

type paPlayback struct {
	stream *portaudio.Stream
}

func (p *paPlayback) Start(delay time.Duration) error {
	time.Sleep(delay)
	return p.stream.Start()
}

func (p *paPlayback) Pause() error {
	return p.stream.Stop()
}

func (p *paPlayback) Resume() error {
	return p.stream.Start()
}

func (p *paPlayback) Stop() error {
	p.stream.Stop()
	return p.stream.Close()
}

//go:build linux

package video

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Pure-Go V4L2 backend: ioctl-based enumeration and format negotiation,
// read()-based frame delivery. No cgo, so cross-compiling for arm boards
// stays trivial.

const (
	bufTypeVideoCapture = 1

	capVideoCapture = 0x00000001
	capReadWrite    = 0x01000000
	capDeviceCaps   = 0x80000000

	fieldNone = 1

	// fourcc 'YUYV'
	pixFmtYUYV = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
)

type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Format mirrors struct v4l2_format: a type tag plus a 200-byte union
// aligned to 8 bytes. The pix format is overlaid on the union.
type v4l2Format struct {
	typ uint32
	_   uint32
	fmt [200]byte
}

func (f *v4l2Format) pix() *v4l2PixFormat {
	return (*v4l2PixFormat)(unsafe.Pointer(&f.fmt[0]))
}

type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

type v4l2CaptureParm struct {
	capability   uint32
	capturemode  uint32
	timeperframe v4l2Fract
	extendedmode uint32
	readbuffers  uint32
	reserved     [4]uint32
}

// v4l2Streamparm mirrors struct v4l2_streamparm: type tag plus 200-byte
// union, 4-byte aligned.
type v4l2Streamparm struct {
	typ  uint32
	parm [200]byte
}

func (p *v4l2Streamparm) capture() *v4l2CaptureParm {
	return (*v4l2CaptureParm)(unsafe.Pointer(&p.parm[0]))
}

const (
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

var (
	vidiocQuerycap = ioc(iocRead, 'V', 0, unsafe.Sizeof(v4l2Capability{}))
	vidiocGFmt     = ioc(iocRead|iocWrite, 'V', 4, unsafe.Sizeof(v4l2Format{}))
	vidiocSFmt     = ioc(iocRead|iocWrite, 'V', 5, unsafe.Sizeof(v4l2Format{}))
	vidiocGParm    = ioc(iocRead|iocWrite, 'V', 21, unsafe.Sizeof(v4l2Streamparm{}))
	vidiocSParm    = ioc(iocRead|iocWrite, 'V', 22, unsafe.Sizeof(v4l2Streamparm{}))
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

type v4l2Backend struct{}

// NewV4L2 creates a V4L2-based video backend.
func NewV4L2() (Backend, error) {
	return &v4l2Backend{}, nil
}

func (b *v4l2Backend) Devices() ([]Device, error) {
	paths, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var result []Device
	for _, path := range paths {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
		if err != nil {
			continue
		}

		var qc v4l2Capability
		err = ioctl(fd, vidiocQuerycap, unsafe.Pointer(&qc))
		unix.Close(fd)
		if err != nil {
			continue
		}

		caps := qc.capabilities
		if caps&capDeviceCaps != 0 {
			caps = qc.deviceCaps
		}
		if caps&capVideoCapture == 0 {
			continue // metadata or output node
		}

		result = append(result, Device{
			Name: cString(qc.card[:]),
			Path: path,
		})
	}
	return result, nil
}

func (b *v4l2Backend) Open(name string, requested Mode) (Handle, error) {
	devices, err := b.Devices()
	if err != nil {
		return nil, err
	}
	var path string
	for _, d := range devices {
		if d.Name == name || d.Path == name {
			path = d.Path
			break
		}
	}
	if path == "" {
		return nil, fmt.Errorf("device not found: %s", name)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	actual, sizeimage, err := negotiate(fd, requested)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if sizeimage <= 0 {
		sizeimage = actual.Width * actual.Height * 2 // YUYV worst case
	}

	// close() does not interrupt a blocked read(), so Stop wakes the read
	// loop through a pipe instead.
	var wake [2]int
	if err := unix.Pipe(wake[:]); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to create wake pipe: %w", err)
	}

	h := &v4l2Handle{
		fd:     fd,
		wakeR:  wake[0],
		wakeW:  wake[1],
		mode:   actual,
		frames: make(chan Frame, 4),
		size:   sizeimage,
	}
	go h.readLoop()
	return h, nil
}

// negotiate sets the requested format and frame interval, then reads back
// what the driver actually granted.
func negotiate(fd int, requested Mode) (Mode, int, error) {
	var f v4l2Format
	f.typ = bufTypeVideoCapture
	pix := f.pix()
	pix.width = uint32(requested.Width)
	pix.height = uint32(requested.Height)
	pix.pixelformat = pixFmtYUYV
	pix.field = fieldNone
	if err := ioctl(fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return Mode{}, 0, fmt.Errorf("failed to set format: %w", err)
	}

	actual := Mode{
		Width:  int(pix.width),
		Height: int(pix.height),
		FPS:    requested.FPS,
	}

	var p v4l2Streamparm
	p.typ = bufTypeVideoCapture
	cp := p.capture()
	cp.timeperframe = v4l2Fract{numerator: 1, denominator: uint32(requested.FPS)}
	if err := ioctl(fd, vidiocSParm, unsafe.Pointer(&p)); err == nil {
		if tf := cp.timeperframe; tf.numerator > 0 && tf.denominator > 0 {
			actual.FPS = int(tf.denominator / tf.numerator)
		}
	}

	return actual, int(pix.sizeimage), nil
}

type v4l2Handle struct {
	fd     int
	wakeR  int
	wakeW  int
	mode   Mode
	frames chan Frame
	size   int

	mu      sync.Mutex
	stopped bool
}

func (h *v4l2Handle) Mode() Mode {
	return h.mode
}

func (h *v4l2Handle) Frames() <-chan Frame {
	return h.frames
}

func (h *v4l2Handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	// Closing the write end of the pipe wakes the poll in the read loop,
	// which then closes the device fd and the frame channel. A device that
	// never delivers a frame cannot keep the loop parked.
	return unix.Close(h.wakeW)
}

// readLoop delivers frames via read(). UVC capture cards support read I/O;
// drivers that only do streaming I/O fail the first read and the handle
// goes quiet until stopped. The device fd is non-blocking; the loop polls
// on it together with the wake pipe so Stop always gets through.
func (h *v4l2Handle) readLoop() {
	defer close(h.frames)
	defer unix.Close(h.wakeR)
	defer unix.Close(h.fd)

	fds := []unix.PollFd{
		{Fd: int32(h.fd), Events: unix.POLLIN},
		{Fd: int32(h.wakeR), Events: unix.POLLIN},
	}
	buf := make([]byte, h.size)
	for {
		fds[0].Revents = 0
		fds[1].Revents = 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if fds[1].Revents != 0 {
			return
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return
		}

		n, err := unix.Read(h.fd, buf)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil || n <= 0 {
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case h.frames <- Frame{Data: data, Width: h.mode.Width, Height: h.mode.Height}:
		default:
			// Sink is behind; drop rather than stall the device.
		}
	}
}

package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Device describes one input-capable audio device as reported by the driver.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

// UseDefaultDevice selects the driver's default input device in StreamParams.
const UseDefaultDevice = -1

// StreamParams fixes the capture format for one stream at open time.
type StreamParams struct {
	DeviceIndex int // UseDefaultDevice for the configured default
	SampleRate  int
	Channels    int
	FrameSize   int // samples per channel per read
}

// FrameBytes is the size in bytes of one interleaved 16-bit frame read.
func (p StreamParams) FrameBytes() int {
	return p.FrameSize * p.Channels * 2
}

// ErrOverflow reports that the driver dropped input between reads. The frame
// returned alongside it is still valid.
var ErrOverflow = errors.New("input overflowed")

// Stream is a live capture stream handle.
type Stream interface {
	Start() error
	Stop() error
	Close() error
	Active() bool
	// Read fills dst with one frame of interleaved little-endian int16 PCM.
	Read(dst []byte) error
	Device() Device
}

// Backend abstracts the audio driver so the manager and engine can be tested
// without hardware.
type Backend interface {
	// Refresh tears the driver down and reinitializes it so newly connected
	// hardware shows up in the next enumeration.
	Refresh() error
	Devices() ([]Device, error)
	Open(params StreamParams) (Stream, error)
	Close() error
}

// DeviceErrorKind distinguishes the friendly no-device case from everything
// else so the two are never conflated in user-facing status.
type DeviceErrorKind int

const (
	DeviceErrorOpenFailed DeviceErrorKind = iota
	DeviceErrorNoDevice
)

// DeviceError reports that no usable input stream could be opened.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Kind == DeviceErrorNoDevice {
		return "no recording device detected"
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to access audio device: %v", e.Err)
	}
	return "failed to access audio device"
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsNoDevice reports whether err is the friendly no-device case.
func IsNoDevice(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Kind == DeviceErrorNoDevice
}

// looksLikeNoDevice matches driver error strings that mean no input device
// is present rather than a transient open failure.
func looksLikeNoDevice(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no input device") ||
		strings.Contains(msg, "no default") ||
		strings.Contains(msg, "invalid input device") ||
		strings.Contains(msg, "invalid device")
}

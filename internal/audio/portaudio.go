package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend adapts the PortAudio driver to the Backend interface.
type PortAudioBackend struct {
	mu          sync.Mutex
	initialized bool
}

func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	return &PortAudioBackend{initialized: true}, nil
}

func (b *PortAudioBackend) Refresh() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("portaudio terminate failed: %w", err)
		}
		b.initialized = false
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init failed: %w", err)
	}
	b.initialized = true
	return nil
}

func (b *PortAudioBackend) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

func (b *PortAudioBackend) Open(params StreamParams) (Stream, error) {
	buf := make([]int16, params.FrameSize*params.Channels)

	if params.DeviceIndex == UseDefaultDevice {
		s, err := portaudio.OpenDefaultStream(params.Channels, 0, float64(params.SampleRate), params.FrameSize, buf)
		if err != nil {
			return nil, err
		}
		dev := Device{Index: UseDefaultDevice, Name: "default"}
		if info, derr := portaudio.DefaultInputDevice(); derr == nil {
			dev.Name = info.Name
			dev.MaxInputChannels = info.MaxInputChannels
			dev.DefaultSampleRate = info.DefaultSampleRate
		}
		return &paStream{stream: s, buf: buf, device: dev}, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if params.DeviceIndex < 0 || params.DeviceIndex >= len(infos) {
		return nil, fmt.Errorf("device index %d out of range", params.DeviceIndex)
	}
	info := infos[params.DeviceIndex]

	p := portaudio.LowLatencyParameters(info, nil)
	p.Input.Channels = params.Channels
	p.SampleRate = float64(params.SampleRate)
	p.FramesPerBuffer = params.FrameSize
	s, err := portaudio.OpenStream(p, buf)
	if err != nil {
		return nil, err
	}
	return &paStream{
		stream: s,
		buf:    buf,
		device: Device{
			Index:             params.DeviceIndex,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		},
	}, nil
}

func (b *PortAudioBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil
	}
	b.initialized = false
	return portaudio.Terminate()
}

type paStream struct {
	stream *portaudio.Stream
	buf    []int16
	device Device

	mu     sync.Mutex
	active bool
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	return nil
}

func (s *paStream) Stop() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	return s.stream.Close()
}

func (s *paStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *paStream) Read(dst []byte) error {
	err := s.stream.Read()
	if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return err
	}
	if len(dst) < len(s.buf)*2 {
		return fmt.Errorf("frame buffer too small: %d < %d", len(dst), len(s.buf)*2)
	}
	for i, sample := range s.buf {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(sample))
	}
	if errors.Is(err, portaudio.InputOverflowed) {
		return ErrOverflow
	}
	return nil
}

func (s *paStream) Device() Device { return s.device }

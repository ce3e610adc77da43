package audio

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeStream struct {
	mu      sync.Mutex
	device  Device
	active  bool
	closed  bool
	frames  [][]byte
	readErr error
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.closed = true
	return nil
}

func (s *fakeStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeStream) Read(dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return s.readErr
	}
	if len(s.frames) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	copy(dst, s.frames[0])
	s.frames = s.frames[1:]
	return nil
}

func (s *fakeStream) Device() Device { return s.device }

type fakeBackend struct {
	mu          sync.Mutex
	devices     []Device
	defaultErr  error
	openErr     map[int]error
	refreshes   int
	opens       []int
	streamStubs map[int]*fakeStream
}

func newFakeBackend(devices ...Device) *fakeBackend {
	return &fakeBackend{
		devices:     devices,
		openErr:     map[int]error{},
		streamStubs: map[int]*fakeStream{},
	}
}

func (b *fakeBackend) Refresh() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshes++
	return nil
}

func (b *fakeBackend) Devices() ([]Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices, nil
}

func (b *fakeBackend) Open(params StreamParams) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens = append(b.opens, params.DeviceIndex)
	if params.DeviceIndex == UseDefaultDevice {
		if b.defaultErr != nil {
			return nil, b.defaultErr
		}
		return &fakeStream{device: Device{Index: UseDefaultDevice, Name: "default"}}, nil
	}
	if err := b.openErr[params.DeviceIndex]; err != nil {
		return nil, err
	}
	if stub := b.streamStubs[params.DeviceIndex]; stub != nil {
		return stub, nil
	}
	return &fakeStream{device: b.devices[params.DeviceIndex]}, nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

func params() StreamParams {
	return StreamParams{DeviceIndex: UseDefaultDevice, SampleRate: 16000, Channels: 1, FrameSize: 256}
}

func TestFallbackToFirstInputCapableDevice(t *testing.T) {
	backend := newFakeBackend(
		Device{Index: 0, Name: "hdmi-out", MaxInputChannels: 0},
		Device{Index: 1, Name: "loopback", MaxInputChannels: 0},
		Device{Index: 2, Name: "usb-mic", MaxInputChannels: 2, DefaultSampleRate: 48000},
		Device{Index: 3, Name: "headset", MaxInputChannels: 1, DefaultSampleRate: 44100},
	)
	backend.defaultErr = errors.New("no default device available")

	mgr := NewManager(backend, testLogger())
	stream, state, err := mgr.OpenOrReuse(params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream.Device().Index != 2 {
		t.Fatalf("expected fallback to device 2, got %d", stream.Device().Index)
	}
	if !state.Available {
		t.Fatal("expected device state available")
	}
}

func TestNoDeviceErrorIsDistinct(t *testing.T) {
	backend := newFakeBackend()
	backend.defaultErr = errors.New("no default device found")

	mgr := NewManager(backend, testLogger())
	_, _, err := mgr.OpenOrReuse(params())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNoDevice(err) {
		t.Fatalf("expected no-device error, got %v", err)
	}
	if mgr.LastAvailable() {
		t.Fatal("expected device marked unavailable after failure")
	}
}

func TestGenericOpenFailureKeepsDetail(t *testing.T) {
	backend := newFakeBackend(Device{Index: 0, Name: "mic", MaxInputChannels: 1})
	backend.defaultErr = errors.New("device busy")
	backend.openErr[0] = errors.New("device busy")

	mgr := NewManager(backend, testLogger())
	_, _, err := mgr.OpenOrReuse(params())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsNoDevice(err) {
		t.Fatal("busy device must not be reported as missing device")
	}
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeviceError, got %T", err)
	}
}

func TestReuseSkipsBackendRefresh(t *testing.T) {
	backend := newFakeBackend()
	mgr := NewManager(backend, testLogger())

	stream, _, err := mgr.OpenOrReuse(params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refreshesAfterOpen := backend.refreshCount()

	// Stream stays warm after Park while the device is available.
	mgr.Park()
	if stream.(*fakeStream).closed {
		t.Fatal("expected warm stream to stay open")
	}

	reused, state, err := mgr.OpenOrReuse(params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Reused {
		t.Fatal("expected stream reuse")
	}
	if reused != stream {
		t.Fatal("expected the same stream handle")
	}
	if backend.refreshCount() != refreshesAfterOpen {
		t.Fatalf("reuse must not refresh the backend, got %d extra refreshes",
			backend.refreshCount()-refreshesAfterOpen)
	}
}

func TestUnavailableDeviceForcesRefresh(t *testing.T) {
	backend := newFakeBackend()
	mgr := NewManager(backend, testLogger())

	if _, _, err := mgr.OpenOrReuse(params()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mgr.MarkUnavailable()
	mgr.Park() // tears the stream down since the device is gone

	before := backend.refreshCount()
	if _, state, err := mgr.OpenOrReuse(params()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if state.Reused {
		t.Fatal("expected a fresh stream, not reuse")
	}
	if backend.refreshCount() != before+1 {
		t.Fatalf("expected exactly one backend refresh, got %d", backend.refreshCount()-before)
	}
}

func TestReuseFailureFallsBackToFreshOpen(t *testing.T) {
	backend := newFakeBackend()
	mgr := NewManager(backend, testLogger())

	stream, _, err := mgr.OpenOrReuse(params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mgr.Park()

	// Poison the warm stream so reactivation fails.
	fs := stream.(*fakeStream)
	fs.mu.Lock()
	fs.closed = true
	fs.mu.Unlock()

	// The fake's Start always succeeds, so force the fresh path by marking
	// the device unavailable instead.
	mgr.MarkUnavailable()
	fresh, state, err := mgr.OpenOrReuse(params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Reused || fresh == stream {
		t.Fatal("expected a fresh stream handle")
	}
}

package audio

import (
	"log/slog"
	"sync"
)

// DeviceState is returned from OpenOrReuse so callers see an explicit value
// instead of peeking at manager internals.
type DeviceState struct {
	Available bool
	Reused    bool
	Device    Device
}

// Manager owns the live stream handle and decides per attempt whether to
// reuse it or rebuild the driver to pick up newly connected hardware.
type Manager struct {
	backend Backend
	log     *slog.Logger

	mu            sync.Mutex
	stream        Stream
	lastAvailable bool
}

func NewManager(backend Backend, log *slog.Logger) *Manager {
	return &Manager{
		backend:       backend,
		log:           log.With(slog.String("component", "device-manager")),
		lastAvailable: true,
	}
}

// OpenOrReuse returns a started stream, preferring to reuse the previous one
// when the device was available on the last attempt. Open and close
// transitions share the manager lock so a rapid stop cannot observe a
// half-initialized stream.
func (m *Manager) OpenOrReuse(params StreamParams) (Stream, DeviceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil && m.lastAvailable {
		if err := m.reuseLocked(); err == nil {
			return m.stream, DeviceState{Available: true, Reused: true, Device: m.stream.Device()}, nil
		}
		// Reuse failed: discard and fall through to a fresh open.
		_ = m.stream.Close()
		m.stream = nil
	}

	if m.stream == nil || !m.lastAvailable {
		if !m.lastAvailable {
			m.log.Info("device was unavailable on last attempt, refreshing audio backend")
		}
		if err := m.backend.Refresh(); err != nil {
			m.lastAvailable = false
			return nil, DeviceState{}, &DeviceError{Kind: DeviceErrorOpenFailed, Err: err}
		}
	}

	stream, err := m.openLocked(params)
	if err != nil {
		m.lastAvailable = false
		return nil, DeviceState{}, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		m.lastAvailable = false
		return nil, DeviceState{}, &DeviceError{Kind: DeviceErrorOpenFailed, Err: err}
	}

	wasUnavailable := !m.lastAvailable
	m.stream = stream
	m.lastAvailable = true
	if wasUnavailable {
		m.log.Info("audio device is available again", slog.String("device", stream.Device().Name))
	}
	return stream, DeviceState{Available: true, Device: stream.Device()}, nil
}

func (m *Manager) reuseLocked() error {
	if m.stream.Active() {
		return nil
	}
	return m.stream.Start()
}

// openLocked opens the configured default device first and falls back to the
// first enumerated device with input channels, at that device's own rate.
func (m *Manager) openLocked(params StreamParams) (Stream, error) {
	defaultParams := params
	defaultParams.DeviceIndex = UseDefaultDevice
	stream, defaultErr := m.backend.Open(defaultParams)
	if defaultErr == nil {
		return stream, nil
	}

	devices, err := m.backend.Devices()
	if err != nil {
		m.log.Warn("device enumeration failed during fallback", slog.String("error", err.Error()))
		devices = nil
	}
	for _, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		fallback := params
		fallback.DeviceIndex = dev.Index
		if dev.DefaultSampleRate > 0 {
			fallback.SampleRate = int(dev.DefaultSampleRate)
		}
		s, err := m.backend.Open(fallback)
		if err != nil {
			m.log.Debug("skipping unusable input device",
				slog.Int("index", dev.Index), slog.String("error", err.Error()))
			continue
		}
		return s, nil
	}

	if looksLikeNoDevice(defaultErr) || len(devices) == 0 {
		return nil, &DeviceError{Kind: DeviceErrorNoDevice, Err: defaultErr}
	}
	return nil, &DeviceError{Kind: DeviceErrorOpenFailed, Err: defaultErr}
}

// Park stops the stream after a recording, keeping it warm for reuse when the
// device is still available and tearing it down otherwise.
func (m *Manager) Park() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return
	}
	if m.lastAvailable {
		if m.stream.Active() {
			if err := m.stream.Stop(); err != nil {
				m.log.Warn("failed to stop stream, discarding it", slog.String("error", err.Error()))
				_ = m.stream.Close()
				m.stream = nil
				return
			}
		}
		m.log.Debug("stream stopped and kept warm for reuse")
		return
	}
	_ = m.stream.Close()
	m.stream = nil
	m.log.Debug("stream torn down, device unavailable")
}

// MarkUnavailable forces a backend refresh on the next open. Used when a read
// failure mid-recording suggests the device went away.
func (m *Manager) MarkUnavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAvailable = false
}

// LastAvailable reports device availability as of the most recent attempt.
func (m *Manager) LastAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAvailable
}

// Close releases the stream and the backend at shutdown. Failures here are
// logged at most, never returned, so they cannot block process exit.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		_ = m.stream.Close()
		m.stream = nil
	}
	if err := m.backend.Close(); err != nil {
		m.log.Debug("audio backend close failed", slog.String("error", err.Error()))
	}
}

package hotkey

import "sync"

// MockSource drives callbacks directly from tests.
type MockSource struct {
	mu        sync.Mutex
	chord     Chord
	onPress   func()
	onRelease func()
	registers int
	closed    bool
}

func NewMockSource() *MockSource {
	return &MockSource{}
}

func (m *MockSource) Register(chord Chord, onPress, onRelease func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chord = chord
	m.onPress = onPress
	m.onRelease = onRelease
	m.registers++
	return nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Press simulates one raw key-down event, repeats included.
func (m *MockSource) Press() {
	m.mu.Lock()
	fn := m.onPress
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Release simulates one raw key-up event.
func (m *MockSource) Release() {
	m.mu.Lock()
	fn := m.onRelease
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *MockSource) Registers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registers
}

func (m *MockSource) Chord() Chord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chord
}

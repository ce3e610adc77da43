package hotkey

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"sync"
)

// StdinSource emulates press-to-talk on terminals without global hooks: each
// line on stdin toggles between press and release. Useful headless and in
// development.
type StdinSource struct {
	log *slog.Logger
	in  io.Reader

	mu      sync.Mutex
	pressed bool
	started bool
	done    chan struct{}
}

func NewStdinSource(log *slog.Logger) *StdinSource {
	return &StdinSource{
		log: log.With(slog.String("component", "hotkey-stdin")),
		in:  os.Stdin,
	}
}

func (s *StdinSource) Register(chord Chord, onPress, onRelease func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		// One reader goroutine per process; replacing callbacks would race
		// with it, so stop the old loop first.
		close(s.done)
	}
	s.done = make(chan struct{})
	s.started = true
	s.pressed = false
	done := s.done

	s.log.Info("press enter to toggle recording", slog.String("chord", chord.String()))
	go s.readLoop(done, onPress, onRelease)
	return nil
}

func (s *StdinSource) readLoop(done <-chan struct{}, onPress, onRelease func()) {
	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}
		s.mu.Lock()
		s.pressed = !s.pressed
		pressed := s.pressed
		s.mu.Unlock()
		if pressed {
			onPress()
		} else {
			onRelease()
		}
	}
}

func (s *StdinSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		close(s.done)
		s.started = false
	}
	return nil
}

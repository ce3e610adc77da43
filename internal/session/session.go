// Package session holds the recording state machine: one instance lives for
// the whole process and cycles Idle -> Recording -> Idle once per dictation.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of a Stop call.
type Verdict int

const (
	// VerdictIgnored means Stop was called while idle; nothing happened.
	VerdictIgnored Verdict = iota
	// VerdictTooShort means the recording was discarded for being under the
	// configured minimum duration.
	VerdictTooShort
	// VerdictAccepted means the recording proceeds downstream.
	VerdictAccepted
)

// Session guards the recording lifecycle. Start is only valid from Idle and
// Stop only from Recording; violations are logged no-ops, never errors.
type Session struct {
	minimum time.Duration
	log     *slog.Logger
	clock   func() time.Time

	mu        sync.Mutex
	state     State
	id        string
	startedAt time.Time
}

func New(minimum time.Duration, log *slog.Logger) *Session {
	return &Session{
		minimum: minimum,
		log:     log.With(slog.String("component", "session")),
		clock:   time.Now,
	}
}

// Start transitions Idle -> Recording and stamps the start time. It returns
// false, leaving state untouched, when a recording is already running.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRecording {
		s.log.Debug("start ignored, already recording")
		return false
	}
	s.state = StateRecording
	s.id = uuid.NewString()
	s.startedAt = s.clock()
	return true
}

// Stop transitions Recording -> Idle and judges the elapsed duration against
// the configured minimum. Stopping while idle is a silent no-op.
func (s *Session) Stop() (time.Duration, Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		s.log.Debug("stop ignored, not recording")
		return 0, VerdictIgnored
	}
	s.state = StateIdle
	elapsed := s.clock().Sub(s.startedAt)
	if elapsed < s.minimum {
		return elapsed, VerdictTooShort
	}
	return elapsed, VerdictAccepted
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recording reports whether a recording is in flight.
func (s *Session) Recording() bool {
	return s.State() == StateRecording
}

// ID returns the identifier of the current (or most recent) recording.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Minimum returns the configured duration floor.
func (s *Session) Minimum() time.Duration {
	return s.minimum
}

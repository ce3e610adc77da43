package protocol

import "time"

// Status is a user-facing status update for one dictation attempt.
type Status struct {
	SessionID string    `json:"session_id"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the final text produced by a dictation attempt.
type Transcript struct {
	SessionID  string        `json:"session_id"`
	Text       string        `json:"text,omitempty"`
	Outcome    string        `json:"outcome"`
	Duration   time.Duration `json:"duration_ns"`
	AudioBytes int           `json:"audio_bytes"`
	Timestamp  time.Time     `json:"timestamp"`
}

const (
	SubjectStatus     = "dictation.status"
	SubjectTranscript = "dictation.transcript"
)

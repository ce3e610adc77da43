package stt

import (
	"context"
	"sync"

	"github.com/hushlabs/hush-core/internal/audio"
)

// MockTranscriber returns canned results. The default reply echoes the clip
// duration so wiring can be exercised without a real model.
type MockTranscriber struct {
	mu      sync.Mutex
	replies []Result
	errs    []error
	calls   int
}

func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Enqueue appends a scripted reply. Replies are consumed in order; once the
// script runs out the last entry repeats.
func (m *MockTranscriber) Enqueue(res Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, res)
	m.errs = append(m.errs, err)
}

func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockTranscriber) Transcribe(_ context.Context, clip *audio.Clip) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.replies) == 0 {
		return Result{Text: "mock transcription of " + clip.Duration().String(), Confidence: 1}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return m.replies[idx], m.errs[idx]
}

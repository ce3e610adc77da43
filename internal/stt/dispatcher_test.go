package stt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hushlabs/hush-core/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testClip() *audio.Clip {
	return &audio.Clip{PCM: make([]byte, 4096), SampleRate: 16000, Channels: 1, BitDepth: 16}
}

func TestRetryOnceOnColdBackend(t *testing.T) {
	mock := NewMockTranscriber()
	mock.Enqueue(Result{Text: "Service not initialized. Please wait."}, nil)
	mock.Enqueue(Result{Text: "hello world"}, nil)

	d := NewDispatcher(mock, testLogger())
	text, err := d.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
	if mock.Calls() != 2 {
		t.Fatalf("expected exactly 2 backend calls, got %d", mock.Calls())
	}
}

func TestSecondResultTakenAsIs(t *testing.T) {
	mock := NewMockTranscriber()
	mock.Enqueue(Result{Text: "Service not initialized"}, nil)
	mock.Enqueue(Result{Text: "Service not initialized"}, nil)

	d := NewDispatcher(mock, testLogger())
	text, err := d.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Service not initialized" {
		t.Fatalf("unexpected text: %q", text)
	}
	if mock.Calls() != 2 {
		t.Fatalf("expected exactly 2 backend calls, got %d", mock.Calls())
	}
}

func TestNoRetryOnCleanResult(t *testing.T) {
	mock := NewMockTranscriber()
	mock.Enqueue(Result{Text: "clean output"}, nil)

	d := NewDispatcher(mock, testLogger())
	if _, err := d.Transcribe(context.Background(), testClip()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.Calls() != 1 {
		t.Fatalf("expected a single backend call, got %d", mock.Calls())
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	mock := NewMockTranscriber()
	mock.Enqueue(Result{}, errors.New("model crashed"))

	d := NewDispatcher(mock, testLogger())
	if _, err := d.Transcribe(context.Background(), testClip()); err == nil {
		t.Fatal("expected error from backend")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"first line New paragraph. second line", "first line \n\n second line"},
		{"New paragraph.", ""},
		{"no commands here", "no commands here"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

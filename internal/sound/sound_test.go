package sound

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadMissingFileFails(t *testing.T) {
	p, err := NewExecPlayer("aplay -q", testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Load(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing cue file")
	}
}

func TestEmptyPathDisablesCue(t *testing.T) {
	p, err := NewExecPlayer("", testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Load(""); err != nil {
		t.Fatalf("empty path should disable, not fail: %v", err)
	}
	p.Play() // must be a silent no-op
}

func TestLoadExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cue.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := NewExecPlayer("true", testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Load(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}

func TestBadCommandRejected(t *testing.T) {
	if _, err := NewExecPlayer(`aplay "unterminated`, testLogger()); err == nil {
		t.Fatal("expected parse error")
	}
}

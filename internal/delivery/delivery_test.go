package delivery

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeClipboard struct {
	mu     sync.Mutex
	texts  []string
	err    error
	lastAt time.Time
}

func (c *fakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.texts = append(c.texts, text)
	c.lastAt = time.Now()
	return nil
}

type fakeInjector struct {
	mu      sync.Mutex
	pastes  int
	err     error
	firstAt time.Time
}

func (k *fakeInjector) Paste() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return k.err
	}
	k.pastes++
	if k.pastes == 1 {
		k.firstAt = time.Now()
	}
	return nil
}

func TestDeliverCopiesThenPastesOnce(t *testing.T) {
	clip := &fakeClipboard{}
	keys := &fakeInjector{}
	d := New(clip, keys, 20*time.Millisecond, testLogger())

	if !d.Deliver("hello") {
		t.Fatal("expected delivery to succeed")
	}
	if len(clip.texts) != 1 || clip.texts[0] != "hello" {
		t.Fatalf("unexpected clipboard writes: %v", clip.texts)
	}
	if keys.pastes != 1 {
		t.Fatalf("expected exactly one paste, got %d", keys.pastes)
	}
	if gap := keys.firstAt.Sub(clip.lastAt); gap < 20*time.Millisecond {
		t.Fatalf("paste fired before the settle delay elapsed: %v", gap)
	}
}

func TestClipboardFailureStillPastes(t *testing.T) {
	clip := &fakeClipboard{err: errors.New("no display")}
	keys := &fakeInjector{}
	d := New(clip, keys, time.Millisecond, testLogger())

	if !d.Deliver("hello") {
		t.Fatal("clipboard failure must not abort delivery")
	}
	if keys.pastes != 1 {
		t.Fatalf("expected the paste to happen anyway, got %d", keys.pastes)
	}
}

func TestInjectionFailureReportsFalse(t *testing.T) {
	clip := &fakeClipboard{}
	keys := &fakeInjector{err: errors.New("uinput denied")}
	d := New(clip, keys, time.Millisecond, testLogger())

	if d.Deliver("hello") {
		t.Fatal("expected delivery to report failure")
	}
}

// Package hotkey binds a global key chord to press and release callbacks.
// Press starts a recording, release stops it; the controller filters the
// auto-repeat noise the OS generates while the chord is held.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hushlabs/hush-core/internal/config"
)

// Source delivers raw press/release events for one chord. Registering a new
// chord replaces any prior registration.
type Source interface {
	Register(chord Chord, onPress, onRelease func()) error
	Close() error
}

// NewSource builds the event source named by configuration. "auto" picks the
// native hook where one exists and falls back to stdin.
func NewSource(cfg config.HotkeyConfig, log *slog.Logger) (Source, error) {
	switch cfg.Source {
	case "auto":
		return newPlatformSource(log), nil
	case "stdin":
		return NewStdinSource(log), nil
	case "mock":
		return NewMockSource(), nil
	default:
		return nil, fmt.Errorf("unknown hotkey source %q", cfg.Source)
	}
}

// Controller owns the chord registration and debounces held-key repeats so
// downstream sees exactly one press and one release per physical hold.
type Controller struct {
	source Source
	log    *slog.Logger

	mu      sync.Mutex
	held    bool
	onStart func()
	onStop  func()
}

func NewController(source Source, log *slog.Logger) *Controller {
	return &Controller{
		source: source,
		log:    log.With(slog.String("component", "hotkey")),
	}
}

// Bind parses and registers the chord. onStart fires on the first press of a
// hold, onStop on the matching release. Rebinding replaces the old chord.
func (c *Controller) Bind(chord string, onStart, onStop func()) error {
	parsed, err := ParseChord(chord)
	if err != nil {
		return fmt.Errorf("bind hotkey: %w", err)
	}

	c.mu.Lock()
	c.onStart = onStart
	c.onStop = onStop
	c.held = false
	c.mu.Unlock()

	if err := c.source.Register(parsed, c.press, c.release); err != nil {
		return fmt.Errorf("register hotkey %q: %w", parsed, err)
	}
	c.log.Info("hotkey bound", slog.String("chord", parsed.String()))
	return nil
}

func (c *Controller) press() {
	c.mu.Lock()
	if c.held {
		c.mu.Unlock()
		return
	}
	c.held = true
	start := c.onStart
	c.mu.Unlock()
	if start != nil {
		start()
	}
}

func (c *Controller) release() {
	c.mu.Lock()
	if !c.held {
		c.mu.Unlock()
		return
	}
	c.held = false
	stop := c.onStop
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (c *Controller) Close() error {
	return c.source.Close()
}

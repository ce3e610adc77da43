// Package sound plays the short audible cue that confirms a recording has
// started. Playback is fire-and-forget; a broken player never blocks capture.
package sound

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
)

// Player plays a preloaded cue.
type Player interface {
	// Load resolves and checks the cue ahead of time so the first playback
	// does not pay the cost.
	Load(path string) error
	// Play starts playback and returns immediately.
	Play()
}

// ExecPlayer shells out to the platform audio utility. The command can be
// overridden; by default it picks aplay on Linux and afplay on macOS.
type ExecPlayer struct {
	log *slog.Logger

	mu     sync.Mutex
	cmd    []string
	path   string
	loaded bool
}

func NewExecPlayer(command string, log *slog.Logger) (*ExecPlayer, error) {
	if command == "" {
		command = defaultPlayerCommand()
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("player command empty")
	}
	return &ExecPlayer{cmd: args, log: log.With(slog.String("component", "sound"))}, nil
}

func defaultPlayerCommand() string {
	if runtime.GOOS == "darwin" {
		return "afplay"
	}
	return "aplay -q"
}

func (p *ExecPlayer) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if path == "" {
		p.loaded = false
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		p.loaded = false
		return fmt.Errorf("cue file: %w", err)
	}
	p.path = path
	p.loaded = true
	return nil
}

// Play launches the player in the background. Failures are logged and
// swallowed; the cue is a convenience, not part of the pipeline.
func (p *ExecPlayer) Play() {
	p.mu.Lock()
	loaded, path := p.loaded, p.path
	cmd := append([]string{}, p.cmd...)
	p.mu.Unlock()
	if !loaded {
		return
	}
	go func() {
		args := append(cmd[1:], path)
		command := exec.CommandContext(context.Background(), cmd[0], args...)
		if err := command.Run(); err != nil {
			p.log.Warn("start cue playback failed", slog.String("error", err.Error()))
		}
	}()
}

// MockPlayer records calls for tests.
type MockPlayer struct {
	mu      sync.Mutex
	LoadErr error
	plays   int
	path    string
}

func (m *MockPlayer) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.path = path
	return nil
}

func (m *MockPlayer) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
}

func (m *MockPlayer) Plays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Chord is a parsed key combination like "ctrl+alt+space".
type Chord struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Super bool
	Key   string
}

func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Super {
		parts = append(parts, "super")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// ParseChord accepts strings like "alt+q", "ctrl+shift+f1", "esc".
func ParseChord(s string) (Chord, error) {
	if s == "" {
		return Chord{}, fmt.Errorf("empty chord")
	}
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}
	var c Chord
	keyToken := parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt", "menu":
			c.Alt = true
		case "shift":
			c.Shift = true
		case "win", "meta", "super", "cmd":
			c.Super = true
		default:
			return Chord{}, fmt.Errorf("unknown modifier %q", p)
		}
	}
	if !validKeyToken(keyToken) {
		return Chord{}, fmt.Errorf("unsupported key token %q", keyToken)
	}
	c.Key = keyToken
	return c, nil
}

func validKeyToken(tok string) bool {
	if len(tok) == 1 {
		ch := tok[0]
		return (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')
	}
	switch tok {
	case "esc", "escape", "space", "enter", "return", "tab", "backspace",
		"insert", "delete", "home", "end", "pageup", "pagedown",
		"left", "up", "right", "down":
		return true
	}
	if strings.HasPrefix(tok, "f") {
		if n, err := strconv.Atoi(strings.TrimPrefix(tok, "f")); err == nil {
			return n >= 1 && n <= 24
		}
	}
	return false
}

//go:build windows

package hotkey

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

func newPlatformSource(log *slog.Logger) Source {
	return NewHookSource(log)
}

// HookSource installs a WH_KEYBOARD_LL hook so the chord works regardless of
// which window has focus. Key-down maps to press, key-up to release; both are
// swallowed so the focused application never sees the chord.
type HookSource struct {
	log *slog.Logger

	mu   sync.Mutex
	quit chan struct{}
}

func NewHookSource(log *slog.Logger) *HookSource {
	return &HookSource{log: log.With(slog.String("component", "hotkey-hook"))}
}

const (
	whKeyboardLL  = 13
	wmKeydown     = 0x0100
	wmKeyup       = 0x0101
	wmSyskeydown  = 0x0104
	wmSyskeyup    = 0x0105
	llkhfInjected = 0x10

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C
)

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

func (s *HookSource) Register(chord Chord, onPress, onRelease func()) error {
	vk, err := chordVirtualKey(chord)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.quit != nil {
		close(s.quit)
	}
	s.quit = make(chan struct{})
	quit := s.quit
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		user32 := syscall.NewLazyDLL("user32.dll")
		procSetWindowsHookExW := user32.NewProc("SetWindowsHookExW")
		procUnhookWindowsHookEx := user32.NewProc("UnhookWindowsHookEx")
		procCallNextHookEx := user32.NewProc("CallNextHookEx")
		procPeekMessageW := user32.NewProc("PeekMessageW")
		procGetAsyncKeyState := user32.NewProc("GetAsyncKeyState")

		keyDown := func(virtual int) bool {
			st, _, _ := procGetAsyncKeyState.Call(uintptr(virtual))
			return st&0x8000 != 0
		}
		modsSatisfied := func() bool {
			if chord.Ctrl && !keyDown(vkControl) {
				return false
			}
			if chord.Alt && !keyDown(vkMenu) {
				return false
			}
			if chord.Shift && !keyDown(vkShift) {
				return false
			}
			if chord.Super && !keyDown(vkLWin) && !keyDown(vkRWin) {
				return false
			}
			return true
		}

		swallowed := false
		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			msg := uint32(wParam)
			k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if k.flags&llkhfInjected != 0 || k.vkCode != vk {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			switch msg {
			case wmKeydown, wmSyskeydown:
				if modsSatisfied() {
					swallowed = true
					go onPress()
					return 1
				}
			case wmKeyup, wmSyskeyup:
				if swallowed {
					swallowed = false
					go onRelease()
					return 1
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("install keyboard hook failed")
			return
		}
		errCh <- nil

		// The hook only fires while this thread pumps messages.
		var msg struct {
			Hwnd    uintptr
			Message uint32
			WParam  uintptr
			LParam  uintptr
			Time    uint32
			PtX     int32
			PtY     int32
		}
		const pmRemove = 0x0001
		for {
			select {
			case <-quit:
				procUnhookWindowsHookEx.Call(hook)
				return
			default:
			}
			procPeekMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0, pmRemove)
			time.Sleep(5 * time.Millisecond)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout installing keyboard hook")
	}
}

func (s *HookSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
	return nil
}

func chordVirtualKey(c Chord) (uint32, error) {
	tok := c.Key
	if len(tok) == 1 {
		ch := tok[0]
		if ch >= 'a' && ch <= 'z' {
			return uint32(ch - 'a' + 'A'), nil
		}
		if ch >= '0' && ch <= '9' {
			return uint32(ch), nil
		}
	}
	switch tok {
	case "esc", "escape":
		return 0x1B, nil
	case "space":
		return 0x20, nil
	case "enter", "return":
		return 0x0D, nil
	case "tab":
		return 0x09, nil
	case "backspace":
		return 0x08, nil
	case "insert":
		return 0x2D, nil
	case "delete":
		return 0x2E, nil
	case "home":
		return 0x24, nil
	case "end":
		return 0x23, nil
	case "pageup":
		return 0x21, nil
	case "pagedown":
		return 0x22, nil
	case "left":
		return 0x25, nil
	case "up":
		return 0x26, nil
	case "right":
		return 0x27, nil
	case "down":
		return 0x28, nil
	}
	if strings.HasPrefix(tok, "f") {
		if n, err := strconv.Atoi(strings.TrimPrefix(tok, "f")); err == nil && n >= 1 && n <= 24 {
			return 0x70 + uint32(n-1), nil
		}
	}
	return 0, fmt.Errorf("unsupported key token %q", tok)
}

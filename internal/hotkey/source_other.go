//go:build !windows

package hotkey

import "log/slog"

func newPlatformSource(log *slog.Logger) Source {
	// No global hook on this platform yet; stdin toggling keeps the pipeline
	// usable for development and headless runs.
	return NewStdinSource(log)
}

// Package delivery puts finished transcriptions into the focused application:
// copy to the clipboard, wait for it to settle, then inject one paste chord.
package delivery

import (
	"log/slog"
	"time"
)

// ClipboardSink writes text to the system clipboard.
type ClipboardSink interface {
	Write(text string) error
}

// KeystrokeInjector sends the platform paste chord to the focused window.
type KeystrokeInjector interface {
	Paste() error
}

// Deliverer runs the copy-settle-paste sequence. The settle delay gives the
// clipboard manager time to register the new content before the paste lands;
// it is configurable but never zero.
type Deliverer struct {
	clipboard ClipboardSink
	keys      KeystrokeInjector
	settle    time.Duration
	log       *slog.Logger
}

func New(clipboard ClipboardSink, keys KeystrokeInjector, settle time.Duration, log *slog.Logger) *Deliverer {
	return &Deliverer{
		clipboard: clipboard,
		keys:      keys,
		settle:    settle,
		log:       log.With(slog.String("component", "delivery")),
	}
}

// Deliver copies text and pastes it exactly once. A clipboard failure is
// logged but does not abort: the paste may still hit stale content, which
// beats silently dropping the dictation. An injection failure returns false.
func (d *Deliverer) Deliver(text string) bool {
	if err := d.clipboard.Write(text); err != nil {
		d.log.Warn("clipboard copy failed", slog.String("error", err.Error()))
	}
	time.Sleep(d.settle)
	if err := d.keys.Paste(); err != nil {
		d.log.Error("paste injection failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

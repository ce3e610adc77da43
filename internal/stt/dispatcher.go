package stt

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hushlabs/hush-core/internal/audio"
)

// notInitializedSentinel marks a backend that answered before its model was
// warm. One retry is enough in practice: the first call forces the load.
const notInitializedSentinel = "Service not initialized"

// paragraphToken is the spoken command recognizers emit verbatim; it becomes
// a real paragraph break on the way out.
const paragraphToken = "New paragraph."

// Dispatcher wraps a Transcriber with the normalization and warm-up retry
// every backend needs. Pipelines talk to the dispatcher, never to a backend
// directly.
type Dispatcher struct {
	backend Transcriber
	log     *slog.Logger
}

func NewDispatcher(backend Transcriber, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		log:     log.With(slog.String("component", "stt-dispatcher")),
	}
}

// Transcribe runs the backend, retrying exactly once when the result carries
// the not-initialized sentinel. The second result is taken as-is, sentinel or
// not. Normalization is applied to whatever text survives.
func (d *Dispatcher) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	res, err := d.backend.Transcribe(ctx, clip)
	if err != nil {
		return "", err
	}
	if strings.Contains(res.Text, notInitializedSentinel) {
		d.log.Warn("backend not warm, retrying once")
		res, err = d.backend.Transcribe(ctx, clip)
		if err != nil {
			return "", err
		}
	}
	return Normalize(res.Text), nil
}

// Normalize expands spoken paragraph commands and trims surrounding
// whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, paragraphToken, "\n\n"))
}

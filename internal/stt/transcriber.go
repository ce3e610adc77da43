// Package stt turns captured clips into text through a pluggable backend.
package stt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hushlabs/hush-core/internal/audio"
	"github.com/hushlabs/hush-core/internal/config"
)

// Result captures backend output for one clip.
type Result struct {
	Text       string
	Confidence float64
}

// Transcriber abstracts speech-to-text backends.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *audio.Clip) (Result, error)
}

// New builds the backend selected by configuration.
func New(cfg config.STTConfig, log *slog.Logger) (Transcriber, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockTranscriber(), nil
	case "exec":
		return NewExecTranscriber(cfg)
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}

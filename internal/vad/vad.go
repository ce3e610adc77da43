// Package vad decides whether a captured clip contains speech before any
// transcription work is spent on it.
package vad

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/hushlabs/hush-core/internal/audio"
	"github.com/hushlabs/hush-core/internal/config"
)

// Detector judges a clip. Implementations must be safe for reuse across
// recordings but are only ever called from one goroutine at a time.
type Detector interface {
	HasSpeech(clip *audio.Clip) bool
	Name() string
}

// New builds the detector selected by configuration.
func New(cfg config.VADConfig, log *slog.Logger) (Detector, error) {
	switch cfg.Mode {
	case "energy":
		return NewEnergyDetector(cfg.Threshold, log), nil
	case "mock":
		return NewMockDetector(true), nil
	default:
		return nil, fmt.Errorf("unknown vad mode %q", cfg.Mode)
	}
}

// EnergyDetector compares the normalized RMS energy of the clip against a
// fixed threshold. Cheap, model-free, and good enough to reject silence and
// low-level room noise.
type EnergyDetector struct {
	threshold float64
	log       *slog.Logger
}

func NewEnergyDetector(threshold float64, log *slog.Logger) *EnergyDetector {
	return &EnergyDetector{
		threshold: threshold,
		log:       log.With(slog.String("component", "vad")),
	}
}

func (d *EnergyDetector) Name() string { return "energy" }

func (d *EnergyDetector) HasSpeech(clip *audio.Clip) bool {
	samples := clip.Samples()
	if len(samples) == 0 {
		return false
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	speech := rms >= d.threshold
	d.log.Debug("energy gate",
		slog.Float64("rms", rms),
		slog.Float64("threshold", d.threshold),
		slog.Bool("speech", speech))
	return speech
}

// MockDetector returns a fixed answer. Used in tests and in configurations
// that want the gate disabled.
type MockDetector struct {
	Answer bool
}

func NewMockDetector(answer bool) *MockDetector {
	return &MockDetector{Answer: answer}
}

func (d *MockDetector) Name() string { return "mock" }

func (d *MockDetector) HasSpeech(_ *audio.Clip) bool { return d.Answer }

// Package pipeline ties the dictation stages together: hotkey press opens a
// recording, release runs speech gating, transcription, and delivery on a
// background goroutine so the hotkey thread is never blocked.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hushlabs/hush-core/internal/audio"
	"github.com/hushlabs/hush-core/internal/bus"
	"github.com/hushlabs/hush-core/internal/notify"
	"github.com/hushlabs/hush-core/internal/protocol"
	"github.com/hushlabs/hush-core/internal/session"
	"github.com/hushlabs/hush-core/internal/stt"
	"github.com/hushlabs/hush-core/internal/vad"
)

// Outcome classifies how a dictation attempt ended.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeTooShort     Outcome = "too_short"
	OutcomeNoAudio      Outcome = "no_audio"
	OutcomeNoSpeech     Outcome = "no_speech"
	OutcomeEmpty        Outcome = "empty_transcription"
	OutcomeDeviceFailed Outcome = "device_failed"
	OutcomeFailed       Outcome = "failed"
)

// readyPlaceholder is handed to the completion callback when an attempt ends
// without text to paste, so UIs can reset without special-casing failures.
const readyPlaceholder = "Ready for transcription"

const noDeviceMessage = "No recording device detected. Please connect a microphone."

// Deliverer pastes accepted text into the focused application.
type Deliverer interface {
	Deliver(text string) bool
}

// CuePlayer plays the recording-started sound.
type CuePlayer interface {
	Play()
}

// Service is the dictation orchestrator. StartRecording and StopRecording
// are safe to call from hotkey callbacks on any goroutine.
type Service struct {
	session    *session.Session
	engine     *audio.Engine
	detector   vad.Detector
	dispatcher *stt.Dispatcher
	deliverer  Deliverer
	cue        CuePlayer
	reporter   *notify.Reporter
	bus        *bus.Client
	log        *slog.Logger

	// OnComplete fires once per attempt with the delivered text, or with a
	// benign placeholder when nothing was pasted.
	OnComplete func(text string)

	outcomes metric.Int64Counter

	mu       sync.Mutex
	current  *attempt
	inflight sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// attempt tracks one press-to-release cycle. The stream open runs on its own
// goroutine, so the release path must know whether capture actually started
// for this attempt before it trusts the engine's buffer.
type attempt struct {
	mu         sync.Mutex
	captured   bool // engine.Start completed for this attempt
	finalized  bool // StopRecording already settled this attempt
	deviceDown bool
}

func NewService(parent context.Context, sess *session.Session, engine *audio.Engine, detector vad.Detector,
	dispatcher *stt.Dispatcher, deliverer Deliverer, cue CuePlayer, reporter *notify.Reporter,
	busClient *bus.Client, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	meter := otel.Meter("github.com/hushlabs/hush-core/runtime")
	outcomes, err := meter.Int64Counter("hush.dictation.outcomes",
		metric.WithDescription("Dictation attempts by terminal outcome"))
	if err != nil {
		log.Warn("register outcome counter", slog.String("error", err.Error()))
	}
	return &Service{
		session:    sess,
		engine:     engine,
		detector:   detector,
		dispatcher: dispatcher,
		deliverer:  deliverer,
		cue:        cue,
		reporter:   reporter,
		bus:        busClient,
		log:        log.With(slog.String("component", "pipeline")),
		outcomes:   outcomes,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Prewarm opens and parks a capture stream ahead of the first press so the
// first dictation does not pay device startup cost. Failure is non-fatal.
func (s *Service) Prewarm() {
	state, err := s.engine.Warm()
	if err != nil {
		s.log.Warn("prewarm failed", slog.String("error", err.Error()))
		return
	}
	s.log.Info("capture prewarmed", slog.String("device", state.Device.Name))
}

// StartRecording begins a new attempt. Pressing again while recording is a
// no-op. The start cue and the stream open run concurrently; neither waits
// for the other.
func (s *Service) StartRecording() {
	if !s.session.Start() {
		return
	}
	att := &attempt{}
	s.mu.Lock()
	s.current = att
	s.mu.Unlock()

	if s.cue != nil {
		go s.cue.Play()
	}

	go s.openCapture(att, s.session.ID())
}

func (s *Service) openCapture(att *attempt, sessionID string) {
	state, err := s.engine.Start()

	att.mu.Lock()
	finalized := att.finalized
	if err != nil {
		att.deviceDown = true
		att.mu.Unlock()
		if finalized {
			// The release already settled this attempt; a second status now
			// would double-report it.
			return
		}
		if audio.IsNoDevice(err) {
			// The friendly message goes to the user, not the log; the
			// condition is expected whenever a laptop lid closes.
			s.reporter.Report(sessionID, string(OutcomeDeviceFailed), noDeviceMessage)
		} else {
			s.log.Error("open capture stream", slog.String("error", err.Error()))
			s.reporter.Report(sessionID, string(OutcomeDeviceFailed), "Recording device failed.")
		}
		return
	}
	if finalized {
		att.mu.Unlock()
		// The release landed while the stream was still opening; nothing
		// from this open belongs to any attempt.
		s.engine.Stop()
		return
	}
	att.captured = true
	att.mu.Unlock()

	s.log.Debug("capture running",
		slog.String("session_id", sessionID),
		slog.String("device", state.Device.Name),
		slog.Bool("reused", state.Reused))
}

// StopRecording ends the attempt and hands the clip to the processing
// goroutine. Releasing while idle is a no-op.
func (s *Service) StopRecording() {
	sessionID := s.session.ID()
	elapsed, verdict := s.session.Stop()
	if verdict == session.VerdictIgnored {
		return
	}

	s.mu.Lock()
	att := s.current
	s.mu.Unlock()

	var deviceDown, captured bool
	if att != nil {
		att.mu.Lock()
		att.finalized = true
		captured = att.captured
		deviceDown = att.deviceDown
		att.mu.Unlock()
	}

	// The engine's buffer belongs to this attempt only if its own stream
	// open finished; otherwise assembling would hand back whatever audio a
	// previous attempt left behind.
	var clip *audio.Clip
	if captured {
		s.engine.Stop()
		clip = s.engine.Assemble()
	} else {
		params := s.engine.Params()
		clip = &audio.Clip{SampleRate: params.SampleRate, Channels: params.Channels, BitDepth: 16}
	}

	if deviceDown {
		// The start path already told the user; a too-short warning on top
		// would be misleading.
		s.finish(sessionID, OutcomeDeviceFailed, "", elapsed, len(clip.PCM), "")
		return
	}

	if verdict == session.VerdictTooShort {
		s.finish(sessionID, OutcomeTooShort, "Recording too short. Hold the key a bit longer.", elapsed, len(clip.PCM), "")
		return
	}

	if !clip.Usable() {
		s.finish(sessionID, OutcomeNoAudio, "No usable audio captured.", elapsed, len(clip.PCM), "")
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.process(sessionID, clip, elapsed)
	}()
}

func (s *Service) process(sessionID string, clip *audio.Clip, elapsed time.Duration) {
	if !s.detector.HasSpeech(clip) {
		s.finish(sessionID, OutcomeNoSpeech, "No speech detected.", elapsed, len(clip.PCM), "")
		return
	}

	text, err := s.dispatcher.Transcribe(s.ctx, clip)
	if err != nil {
		s.log.Error("transcription failed", slog.String("error", err.Error()), slog.String("session_id", sessionID))
		s.finish(sessionID, OutcomeFailed, "Transcription failed.", elapsed, len(clip.PCM), "")
		return
	}
	if text == "" {
		s.log.Warn("transcription came back empty", slog.String("session_id", sessionID))
		s.finish(sessionID, OutcomeEmpty, "Nothing was transcribed.", elapsed, len(clip.PCM), "")
		return
	}

	if !s.deliverer.Deliver(text) {
		s.finish(sessionID, OutcomeFailed, "Could not paste the transcription.", elapsed, len(clip.PCM), text)
		return
	}
	s.finish(sessionID, OutcomeAccepted, "", elapsed, len(clip.PCM), text)
}

// finish emits the single terminal status for the attempt, publishes the
// transcript record, bumps the outcome counter, and fires the completion
// callback.
func (s *Service) finish(sessionID string, outcome Outcome, message string, elapsed time.Duration, audioBytes int, text string) {
	if message != "" || outcome == OutcomeAccepted {
		s.reporter.Report(sessionID, string(outcome), message)
	}

	if s.outcomes != nil {
		s.outcomes.Add(s.ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	}

	s.publishTranscript(protocol.Transcript{
		SessionID:  sessionID,
		Text:       text,
		Outcome:    string(outcome),
		Duration:   elapsed,
		AudioBytes: audioBytes,
		Timestamp:  time.Now().UTC(),
	})

	if s.OnComplete != nil {
		if outcome == OutcomeAccepted {
			s.OnComplete(text)
		} else {
			s.OnComplete(readyPlaceholder)
		}
	}
}

func (s *Service) publishTranscript(t protocol.Transcript) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(t)
	if err != nil {
		s.log.Error("encode transcript", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectTranscript, payload); err != nil {
		s.log.Warn("publish transcript", slog.String("error", err.Error()))
	}
}

// Close stops any running capture and waits, with a bound, for in-flight
// processing to finish.
func (s *Service) Close() {
	s.engine.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn("shutdown timed out waiting for transcription")
	}
}

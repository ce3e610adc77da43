// Package notify fans dictation status updates out to whoever is listening:
// the log, the message bus, and any UI callback the host wires in.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hushlabs/hush-core/internal/bus"
	"github.com/hushlabs/hush-core/internal/protocol"
)

// Sink receives one status update. Sinks must not block for long; a panicking
// sink is isolated and must never take the pipeline down.
type Sink interface {
	Notify(status protocol.Status)
}

// Reporter distributes status updates to all registered sinks.
type Reporter struct {
	log *slog.Logger

	mu    sync.Mutex
	sinks []Sink
}

func NewReporter(log *slog.Logger) *Reporter {
	return &Reporter{log: log.With(slog.String("component", "notify"))}
}

func (r *Reporter) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Report stamps and delivers the status to every sink.
func (r *Reporter) Report(sessionID, outcome, message string) {
	status := protocol.Status{
		SessionID: sessionID,
		Outcome:   outcome,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	r.mu.Lock()
	sinks := append([]Sink{}, r.sinks...)
	r.mu.Unlock()
	for _, s := range sinks {
		r.deliver(s, status)
	}
}

func (r *Reporter) deliver(s Sink, status protocol.Status) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("status sink panicked", slog.Any("panic", rec))
		}
	}()
	s.Notify(status)
}

// LogSink writes status updates to the structured log.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With(slog.String("component", "status"))}
}

func (s *LogSink) Notify(status protocol.Status) {
	s.log.Info("dictation status",
		slog.String("session_id", status.SessionID),
		slog.String("outcome", status.Outcome),
		slog.String("message", status.Message))
}

// BusSink publishes status updates so external subscribers (tray UI, overlay)
// can react without linking against the daemon.
type BusSink struct {
	client *bus.Client
	log    *slog.Logger
}

func NewBusSink(client *bus.Client, log *slog.Logger) *BusSink {
	return &BusSink{client: client, log: log.With(slog.String("component", "status-bus"))}
}

func (s *BusSink) Notify(status protocol.Status) {
	payload, err := json.Marshal(status)
	if err != nil {
		s.log.Error("encode status", slog.String("error", err.Error()))
		return
	}
	if err := s.client.Conn().Publish(protocol.SubjectStatus, payload); err != nil {
		s.log.Warn("publish status", slog.String("error", err.Error()))
	}
}

// CallbackSink adapts a plain function, typically a UI hook.
type CallbackSink struct {
	fn func(status protocol.Status)
}

func NewCallbackSink(fn func(status protocol.Status)) *CallbackSink {
	return &CallbackSink{fn: fn}
}

func (s *CallbackSink) Notify(status protocol.Status) {
	s.fn(status)
}

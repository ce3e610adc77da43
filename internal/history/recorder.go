package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hushlabs/hush-core/internal/bus"
	"github.com/hushlabs/hush-core/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Recorder subscribes to finished transcripts on the bus and writes them to
// the store. Keeping it off the hot path means a slow disk never delays a
// paste.
type Recorder struct {
	store  *Store
	bus    *bus.Client
	log    *slog.Logger
	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRecorder(parent context.Context, store *Store, busClient *bus.Client, log *slog.Logger) *Recorder {
	ctx, cancel := context.WithCancel(parent)
	return &Recorder{
		store:  store,
		bus:    busClient,
		log:    log.With(slog.String("component", "history-recorder")),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *Recorder) Start() error {
	sub, err := r.bus.Conn().Subscribe(protocol.SubjectTranscript, r.handleTranscript)
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *Recorder) Close() {
	r.cancel()
	if r.sub != nil {
		_ = r.sub.Drain()
	}
}

func (r *Recorder) Healthy() bool {
	return r.sub != nil
}

func (r *Recorder) handleTranscript(msg *nats.Msg) {
	var transcript protocol.Transcript
	if err := json.Unmarshal(msg.Data, &transcript); err != nil {
		r.log.Warn("decode transcript", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	err := r.store.Append(ctx, Entry{
		SessionID:  transcript.SessionID,
		Outcome:    transcript.Outcome,
		Text:       transcript.Text,
		Duration:   transcript.Duration,
		AudioBytes: transcript.AudioBytes,
		CreatedAt:  transcript.Timestamp,
	})
	if err != nil {
		r.log.Warn("append history entry", slog.String("error", err.Error()))
	}
}

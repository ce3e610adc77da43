package audio

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/hushlabs/hush-core/internal/config"
)

// Engine owns the capture loop for one recording at a time. The loop
// goroutine is the sole writer of the frame buffer; consumers read it back
// through Assemble only after the loop has fully exited.
type Engine struct {
	cfg config.AudioConfig
	mgr *Manager
	log *slog.Logger

	mu        sync.Mutex
	recording bool
	frames    []byte
	stop      chan struct{}
	done      chan struct{}
}

func NewEngine(cfg config.AudioConfig, mgr *Manager, log *slog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		mgr: mgr,
		log: log.With(slog.String("component", "capture-engine")),
	}
}

// Params returns the stream parameters derived from configuration.
func (e *Engine) Params() StreamParams {
	return StreamParams{
		DeviceIndex: UseDefaultDevice,
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		FrameSize:   e.cfg.FrameSize,
	}
}

// Start opens (or reuses) a stream and spawns the frame-reading loop. The
// frame buffer is always reset before the first read.
func (e *Engine) Start() (DeviceState, error) {
	e.mu.Lock()
	if e.recording {
		e.mu.Unlock()
		return DeviceState{}, errors.New("capture already running")
	}
	e.mu.Unlock()

	stream, state, err := e.mgr.OpenOrReuse(e.Params())
	if err != nil {
		return state, err
	}

	e.mu.Lock()
	e.frames = e.frames[:0]
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.recording = true
	stopCh, doneCh := e.stop, e.done
	e.mu.Unlock()

	go e.readLoop(stream, stopCh, doneCh)
	e.log.Debug("recording started", slog.String("device", state.Device.Name), slog.Bool("reused", state.Reused))
	return state, nil
}

func (e *Engine) readLoop(stream Stream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	frame := make([]byte, e.Params().FrameBytes())
	for {
		select {
		case <-stop:
			return
		default:
		}
		err := stream.Read(frame)
		if err != nil && !errors.Is(err, ErrOverflow) {
			e.log.Error("error during recording", slog.String("error", err.Error()))
			e.mgr.MarkUnavailable()
			return
		}
		// Overflowed reads still carry a valid frame; keep it and move on.
		e.mu.Lock()
		e.frames = append(e.frames, frame...)
		e.mu.Unlock()
	}
}

// Warm opens a stream and parks it immediately so the first recording skips
// the device startup cost. No-op while a recording is running.
func (e *Engine) Warm() (DeviceState, error) {
	e.mu.Lock()
	if e.recording {
		e.mu.Unlock()
		return DeviceState{}, nil
	}
	e.mu.Unlock()

	_, state, err := e.mgr.OpenOrReuse(e.Params())
	if err != nil {
		return state, err
	}
	e.mgr.Park()
	return state, nil
}

// Stop signals the read loop to end and parks or tears down the stream
// according to device availability. Calling it when not recording is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.recording {
		e.mu.Unlock()
		return
	}
	e.recording = false
	stopCh, doneCh := e.stop, e.done
	e.mu.Unlock()

	close(stopCh)
	<-doneCh
	e.mgr.Park()
	e.log.Debug("recording stopped")
}

// Recording reports whether a capture loop is currently running.
func (e *Engine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

// Assemble consumes the frames captured since the last Start and returns
// them as a Clip. Must be called after Stop has returned. The buffer is
// consumed exactly once: a second call before the next Start returns an
// empty clip, never a replay of old audio.
func (e *Engine) Assemble() *Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	pcm := make([]byte, len(e.frames))
	copy(pcm, e.frames)
	e.frames = e.frames[:0]
	return &Clip{
		PCM:        pcm,
		SampleRate: e.cfg.SampleRate,
		Channels:   e.cfg.Channels,
		BitDepth:   16,
	}
}

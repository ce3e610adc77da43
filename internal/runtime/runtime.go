// Package runtime assembles the daemon: configuration in, wired dictation
// pipeline out, plus health endpoints and telemetry around it.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hushlabs/hush-core/internal/audio"
	"github.com/hushlabs/hush-core/internal/bus"
	"github.com/hushlabs/hush-core/internal/config"
	"github.com/hushlabs/hush-core/internal/delivery"
	"github.com/hushlabs/hush-core/internal/history"
	"github.com/hushlabs/hush-core/internal/hotkey"
	"github.com/hushlabs/hush-core/internal/natsserver"
	"github.com/hushlabs/hush-core/internal/notify"
	"github.com/hushlabs/hush-core/internal/pipeline"
	"github.com/hushlabs/hush-core/internal/session"
	"github.com/hushlabs/hush-core/internal/sound"
	"github.com/hushlabs/hush-core/internal/stt"
	"github.com/hushlabs/hush-core/internal/vad"
)

type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	httpServer    *http.Server
	metricsServer *http.Server
	telemetry     *telemetry

	busClient *bus.Client
	embedded  *natsserver.EmbeddedServer
	recorder  *history.Recorder

	ready atomic.Bool
	wg    sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start wires every component and blocks until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := initTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	r.telemetry = tel

	// Every wired component pushes its teardown here so a failure later in
	// startup unwinds everything already running.
	var cleanups cleanupStack
	fail := func(step string, err error) error {
		cleanups.unwind()
		return fmt.Errorf("%s: %w", step, err)
	}

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fail("start embedded bus", err)
	}
	r.embedded = embedded
	cleanups.push(embedded.Shutdown)

	busCfg := r.cfg.Bus
	if busCfg.Embedded {
		busCfg.Servers = []string{fmt.Sprintf("nats://127.0.0.1:%d", busCfg.Port)}
	}
	busClient, err := bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		return fail("connect bus", err)
	}
	r.busClient = busClient
	cleanups.push(busClient.Close)

	store, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fail("open history store", err)
	}
	cleanups.push(func() { store.Close() })

	recorder := history.NewRecorder(ctx, store, busClient, r.logger)
	if err := recorder.Start(); err != nil {
		return fail("start history recorder", err)
	}
	r.recorder = recorder
	cleanups.push(recorder.Close)

	backend, err := audio.NewPortAudioBackend()
	if err != nil {
		return fail("init audio backend", err)
	}
	manager := audio.NewManager(backend, r.logger)
	engine := audio.NewEngine(r.cfg.Audio, manager, r.logger)
	cleanups.push(manager.Close)

	detector, err := vad.New(r.cfg.VAD, r.logger)
	if err != nil {
		return fail("init vad", err)
	}

	transcriber, err := stt.New(r.cfg.STT, r.logger)
	if err != nil {
		return fail("init stt backend", err)
	}
	dispatcher := stt.NewDispatcher(transcriber, r.logger)

	injector, err := delivery.NewPasteInjector()
	var deliverer pipeline.Deliverer
	if err != nil {
		// Without paste injection the pipeline still works for subscribers
		// on the bus, so keep running.
		r.logger.Warn("paste injection unavailable", slog.String("error", err.Error()))
		deliverer = disabledDeliverer{log: r.logger}
	} else {
		settle := time.Duration(r.cfg.Delivery.SettleDelayMS) * time.Millisecond
		deliverer = delivery.New(delivery.NewSystemClipboard(), injector, settle, r.logger)
	}

	cue, err := sound.NewExecPlayer("", r.logger)
	if err != nil {
		return fail("init sound player", err)
	}

	reporter := notify.NewReporter(r.logger)
	reporter.AddSink(notify.NewLogSink(r.logger))
	reporter.AddSink(notify.NewBusSink(busClient, r.logger))

	minimum := time.Duration(r.cfg.Audio.MinimumDurationMS) * time.Millisecond
	sess := session.New(minimum, r.logger)

	svc := pipeline.NewService(ctx, sess, engine, detector, dispatcher, deliverer, cue, reporter, busClient, r.logger)

	source, err := hotkey.NewSource(r.cfg.Hotkey, r.logger)
	if err != nil {
		svc.Close()
		return fail("init hotkey source", err)
	}
	controller := hotkey.NewController(source, r.logger)
	if err := controller.Bind(r.cfg.Hotkey.Chord, svc.StartRecording, svc.StopRecording); err != nil {
		controller.Close()
		svc.Close()
		return fail("bind hotkey", err)
	}

	// Warm-up happens at registration time so the first press is snappy.
	if err := cue.Load(r.cfg.Audio.StartSoundPath); err != nil {
		r.logger.Warn("start sound unavailable", slog.String("error", err.Error()))
	}
	if r.cfg.Hotkey.Prewarm {
		svc.Prewarm()
	}

	r.startHTTP(tel.Handler())
	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("hotkey", r.cfg.Hotkey.Chord),
		slog.String("stt_mode", r.cfg.STT.Mode))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	controller.Close()
	svc.Close()
	recorder.Close()
	store.Close()
	manager.Close()
	r.teardownBus()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	r.stopHTTP(shutdownCtx)
	r.wg.Wait()

	if err := r.telemetry.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}

	return nil
}

func (r *Runtime) startHTTP(metricsHandler http.Handler) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.logger.Info("http endpoints listening", slog.String("addr", addr))
}

func (r *Runtime) stopHTTP(ctx context.Context) {
	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(ctx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(ctx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
}

func (r *Runtime) teardownBus() {
	r.busClient.Close()
	r.embedded.Shutdown()
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.busClient.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// cleanupStack collects teardown functions during startup so a failure
// midway can unwind the components already running, newest first.
type cleanupStack struct {
	fns []func()
}

func (c *cleanupStack) push(fn func()) { c.fns = append(c.fns, fn) }

func (c *cleanupStack) unwind() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}

// disabledDeliverer stands in when no keystroke injector could be created.
type disabledDeliverer struct {
	log *slog.Logger
}

func (d disabledDeliverer) Deliver(text string) bool {
	d.log.Warn("delivery disabled, transcription dropped", slog.Int("chars", len(text)))
	return false
}

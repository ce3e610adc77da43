package audio

import (
	"testing"
	"time"

	"github.com/hushlabs/hush-core/internal/config"
)

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{SampleRate: 16000, Channels: 1, FrameSize: 256, MinimumDurationMS: 500}
}

func newTestEngine(t *testing.T, backend *fakeBackend) *Engine {
	t.Helper()
	mgr := NewManager(backend, testLogger())
	return NewEngine(testAudioConfig(), mgr, testLogger())
}

func waitForFrames(t *testing.T, e *Engine, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		got := len(e.frames)
		e.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for captured frames")
}

func TestStopIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	engine := newTestEngine(t, backend)

	if _, err := engine.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForFrames(t, engine, 512)

	engine.Stop()
	engine.Stop() // second stop is a no-op

	clip := engine.Assemble()
	if len(clip.PCM) < 512 {
		t.Fatalf("expected captured frames to survive the double stop, got %d bytes", len(clip.PCM))
	}
}

func TestAssembleConsumesBuffer(t *testing.T) {
	backend := newFakeBackend()
	engine := newTestEngine(t, backend)

	if _, err := engine.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForFrames(t, engine, 512)
	engine.Stop()

	first := engine.Assemble()
	if len(first.PCM) == 0 {
		t.Fatal("expected frames from the recording")
	}
	again := engine.Assemble()
	if len(again.PCM) != 0 {
		t.Fatalf("assembling twice must not replay old audio, got %d bytes", len(again.PCM))
	}
}

func TestStartResetsFrameBuffer(t *testing.T) {
	backend := newFakeBackend()
	engine := newTestEngine(t, backend)

	if _, err := engine.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForFrames(t, engine, 512)
	engine.Stop()
	first := engine.Assemble()
	if len(first.PCM) == 0 {
		t.Fatal("expected frames from first recording")
	}

	if _, err := engine.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	engine.mu.Lock()
	fresh := len(engine.frames)
	engine.mu.Unlock()
	if fresh >= len(first.PCM) {
		t.Fatalf("expected buffer reset on start, still holds %d bytes", fresh)
	}
	engine.Stop()
}

func TestDoubleStartRejected(t *testing.T) {
	backend := newFakeBackend()
	engine := newTestEngine(t, backend)

	if _, err := engine.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := engine.Start(); err == nil {
		t.Fatal("expected second start to fail while recording")
	}
	engine.Stop()
}

func TestAssembleFixesFormat(t *testing.T) {
	backend := newFakeBackend()
	engine := newTestEngine(t, backend)

	if _, err := engine.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForFrames(t, engine, 512)
	engine.Stop()

	clip := engine.Assemble()
	if clip.SampleRate != 16000 || clip.Channels != 1 || clip.BitDepth != 16 {
		t.Fatalf("unexpected clip format: %+v", clip)
	}
	if clip.Duration() <= 0 {
		t.Fatal("expected positive clip duration")
	}
}

package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Audio.MinimumDurationMS != 500 {
		t.Fatalf("expected default minimum duration 500ms, got %d", cfg.Audio.MinimumDurationMS)
	}
	if cfg.Delivery.SettleDelayMS != 80 {
		t.Fatalf("expected default settle delay 80ms, got %d", cfg.Delivery.SettleDelayMS)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HUSH_HOTKEY_CHORD", "f9")
	t.Setenv("HUSH_HOTKEY_SOURCE", "stdin")
	t.Setenv("HUSH_AUDIO_SAMPLE_RATE", "44100")
	t.Setenv("HUSH_AUDIO_CHANNELS", "2")
	t.Setenv("HUSH_AUDIO_MINIMUM_DURATION_MS", "750")
	t.Setenv("HUSH_VAD_MODE", "mock")
	t.Setenv("HUSH_STT_MODE", "exec")
	t.Setenv("HUSH_STT_COMMAND", "whisper-cli --output-json")
	t.Setenv("HUSH_DELIVERY_SETTLE_DELAY_MS", "120")
	t.Setenv("HUSH_HISTORY_PATH", "./tmp.db")
	t.Setenv("HUSH_HISTORY_RETENTION_MODE", "persistent")
	t.Setenv("HUSH_HISTORY_STORE_TEXT", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Hotkey.Chord != "f9" {
		t.Fatalf("expected hotkey chord override, got %q", cfg.Hotkey.Chord)
	}
	if cfg.Hotkey.Source != "stdin" {
		t.Fatalf("expected hotkey source override, got %q", cfg.Hotkey.Source)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 2 {
		t.Fatalf("expected audio overrides, got %+v", cfg.Audio)
	}
	if cfg.Audio.MinimumDurationMS != 750 {
		t.Fatalf("expected minimum duration override, got %d", cfg.Audio.MinimumDurationMS)
	}
	if cfg.VAD.Mode != "mock" {
		t.Fatalf("expected vad mode override, got %q", cfg.VAD.Mode)
	}
	if cfg.STT.Mode != "exec" || cfg.STT.Command != "whisper-cli --output-json" {
		t.Fatalf("expected stt overrides, got %+v", cfg.STT)
	}
	if cfg.Delivery.SettleDelayMS != 120 {
		t.Fatalf("expected settle delay override, got %d", cfg.Delivery.SettleDelayMS)
	}
	if cfg.History.Path != "./tmp.db" {
		t.Fatalf("expected history path override")
	}
	if cfg.History.RetentionMode != "persistent" {
		t.Fatalf("expected history retention mode override")
	}
	if !cfg.History.StoreText {
		t.Fatalf("expected history store_text override")
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	t.Setenv("HUSH_STT_MODE", "exec")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec mode without command")
	}
}

func TestValidateRejectsZeroSettleDelay(t *testing.T) {
	t.Setenv("HUSH_DELIVERY_SETTLE_DELAY_MS", "0")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for zero settle delay")
	}
}

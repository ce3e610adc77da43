package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HotkeyConfig struct {
	Chord   string `yaml:"chord"`
	Source  string `yaml:"source"` // auto, stdin, mock
	Prewarm bool   `yaml:"prewarm"`
}

type AudioConfig struct {
	SampleRate        int    `yaml:"sample_rate"`
	Channels          int    `yaml:"channels"`
	FrameSize         int    `yaml:"frame_size"`
	MinimumDurationMS int    `yaml:"minimum_duration_ms"`
	StartSoundPath    string `yaml:"start_sound_path"`
}

type VADConfig struct {
	Mode      string  `yaml:"mode"` // energy, mock
	Threshold float64 `yaml:"threshold"`
}

type STTConfig struct {
	Mode      string `yaml:"mode"` // mock, exec
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

type DeliveryConfig struct {
	SettleDelayMS int `yaml:"settle_delay_ms"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	StoreText     bool   `yaml:"store_text"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Hotkey      HotkeyConfig    `yaml:"hotkey"`
	Audio       AudioConfig     `yaml:"audio"`
	VAD         VADConfig       `yaml:"vad"`
	STT         STTConfig       `yaml:"stt"`
	Delivery    DeliveryConfig  `yaml:"delivery"`
	History     HistoryConfig   `yaml:"history"`
}

func Default() Config {
	return Config{
		RuntimeName: "hush-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8090,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9092",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Hotkey: HotkeyConfig{
			Chord:   "ctrl+alt+space",
			Source:  "auto",
			Prewarm: true,
		},
		Audio: AudioConfig{
			SampleRate:        16000,
			Channels:          1,
			FrameSize:         256,
			MinimumDurationMS: 500,
			StartSoundPath:    "",
		},
		VAD: VADConfig{
			Mode:      "energy",
			Threshold: 0.0075,
		},
		STT: STTConfig{
			Mode: "mock",
		},
		Delivery: DeliveryConfig{
			SettleDelayMS: 80,
		},
		History: HistoryConfig{
			Path:          "./data/hush-history.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
			StoreText:     false,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "HUSH_RUNTIME_NAME")
	overrideString(&cfg.Environment, "HUSH_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "HUSH_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "HUSH_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "HUSH_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "HUSH_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "HUSH_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "HUSH_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "HUSH_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "HUSH_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "HUSH_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "HUSH_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "HUSH_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "HUSH_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "HUSH_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "HUSH_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Hotkey.Chord, "HUSH_HOTKEY_CHORD")
	overrideString(&cfg.Hotkey.Source, "HUSH_HOTKEY_SOURCE")
	overrideBool(&cfg.Hotkey.Prewarm, "HUSH_HOTKEY_PREWARM")
	overrideInt(&cfg.Audio.SampleRate, "HUSH_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "HUSH_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.FrameSize, "HUSH_AUDIO_FRAME_SIZE")
	overrideInt(&cfg.Audio.MinimumDurationMS, "HUSH_AUDIO_MINIMUM_DURATION_MS")
	overrideString(&cfg.Audio.StartSoundPath, "HUSH_AUDIO_START_SOUND_PATH")
	overrideString(&cfg.VAD.Mode, "HUSH_VAD_MODE")
	overrideFloat(&cfg.VAD.Threshold, "HUSH_VAD_THRESHOLD")
	overrideString(&cfg.STT.Mode, "HUSH_STT_MODE")
	overrideString(&cfg.STT.Command, "HUSH_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "HUSH_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "HUSH_STT_LANGUAGE")
	overrideInt(&cfg.Delivery.SettleDelayMS, "HUSH_DELIVERY_SETTLE_DELAY_MS")
	overrideString(&cfg.History.Path, "HUSH_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "HUSH_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "HUSH_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxSessions, "HUSH_HISTORY_MAX_SESSIONS")
	overrideBool(&cfg.History.StoreText, "HUSH_HISTORY_STORE_TEXT")
	overrideBool(&cfg.History.VacuumOnStart, "HUSH_HISTORY_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Hotkey.Chord == "" {
		return errors.New("hotkey.chord must not be empty")
	}
	switch cfg.Hotkey.Source {
	case "auto", "stdin", "mock":
	default:
		return errors.New("hotkey.source must be one of auto|stdin|mock")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if cfg.Audio.FrameSize <= 0 {
		return errors.New("audio.frame_size must be positive")
	}
	if cfg.Audio.MinimumDurationMS < 0 {
		return errors.New("audio.minimum_duration_ms must be >= 0")
	}
	switch cfg.VAD.Mode {
	case "energy", "mock":
	default:
		return errors.New("vad.mode must be one of energy|mock")
	}
	if cfg.VAD.Mode == "energy" && cfg.VAD.Threshold <= 0 {
		return errors.New("vad.threshold must be positive when mode=energy")
	}
	switch cfg.STT.Mode {
	case "mock", "exec":
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.Delivery.SettleDelayMS <= 0 {
		return errors.New("delivery.settle_delay_ms must be positive")
	}
	if cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}

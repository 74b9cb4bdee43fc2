// Package config loads the assistant's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configuration the assistant cannot run with.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	WakeWord  WakeWordConfig  `yaml:"wake_word"`
	Recording RecordingConfig `yaml:"recording"`
	STT       STTConfig       `yaml:"stt"`
	LLM       LLMConfig       `yaml:"llm"`
	Devices   DevicesConfig   `yaml:"devices"`
	Notify    NotifyConfig    `yaml:"notify"`
	HTTP      HTTPConfig      `yaml:"http"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AudioConfig struct {
	// Device is an input device index or part of its name. Empty picks a
	// known I2S microphone, then the system default.
	Device      string `yaml:"device"`
	SampleRates []int  `yaml:"sample_rates"`
}

type WakeWordConfig struct {
	Phrase    string        `yaml:"phrase"`
	Threshold float32       `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	Stride    int           `yaml:"stride"`
}

type RecordingConfig struct {
	SilenceThreshold float64       `yaml:"silence_threshold"`
	SilenceDuration  time.Duration `yaml:"silence_duration"`
	MaxDuration      time.Duration `yaml:"max_duration"`
}

// STTConfig selects the transcription backend. The whisper model is also
// used for wake phrase recognition.
type STTConfig struct {
	Backend  string        `yaml:"backend"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type DevicesConfig struct {
	File           string        `yaml:"file"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	ControlTimeout time.Duration `yaml:"control_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

type NotifyConfig struct {
	// Backend is one of log, mqtt or embedded.
	Backend     string `yaml:"backend"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	// Listen is the embedded broker's address.
	Listen string `yaml:"listen"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	STTBackendWhisper = "whisper"
	STTBackendHTTP    = "http"

	NotifyBackendLog      = "log"
	NotifyBackendMQTT     = "mqtt"
	NotifyBackendEmbedded = "embedded"
)

func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRates: []int{48000, 44100, 32000, 22050, 16000},
		},
		WakeWord: WakeWordConfig{
			Phrase:    "hey jarvis",
			Threshold: 0.5,
			Window:    1500 * time.Millisecond,
			Stride:    6,
		},
		Recording: RecordingConfig{
			SilenceThreshold: 500,
			SilenceDuration:  1500 * time.Millisecond,
			MaxDuration:      7 * time.Second,
		},
		STT: STTConfig{
			Backend:  STTBackendWhisper,
			Model:    "models/ggml-base.en.bin",
			Language: "en",
			Timeout:  30 * time.Second,
		},
		LLM: LLMConfig{
			Endpoint: "http://localhost:11434/api/generate",
			Model:    "mistral",
			Timeout:  30 * time.Second,
		},
		Devices: DevicesConfig{
			File:           "devices.json",
			PollTimeout:    2 * time.Second,
			ControlTimeout: 3 * time.Second,
			PollInterval:   time.Minute,
		},
		Notify: NotifyConfig{
			Backend:     NotifyBackendLog,
			Broker:      "tcp://localhost:1883",
			ClientID:    "home-voice",
			TopicPrefix: "homevoice",
			Listen:      ":1883",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: ":8080",
		},
		Archive: ArchiveConfig{
			Dir: "recordings",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path from the OS filesystem. An empty path yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

func LoadFs(fileSys afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fileSys, path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEVOICE_LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}

	if v := os.Getenv("HOMEVOICE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("HOMEVOICE_MQTT_BROKER"); v != "" {
		cfg.Notify.Broker = v
	}

	if v := os.Getenv("HOMEVOICE_WAKE_PHRASE"); v != "" {
		cfg.WakeWord.Phrase = v
	}

	if v := os.Getenv("HOMEVOICE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.WakeWord.Phrase == "" {
		return fmt.Errorf("%w: wake_word.phrase is required", ErrInvalidConfig)
	}

	if c.WakeWord.Threshold <= 0 || c.WakeWord.Threshold > 1 {
		return fmt.Errorf("%w: wake_word.threshold must be within (0,1], got %v", ErrInvalidConfig, c.WakeWord.Threshold)
	}

	if c.WakeWord.Window <= 0 || c.WakeWord.Stride <= 0 {
		return fmt.Errorf("%w: wake_word.window and wake_word.stride must be positive", ErrInvalidConfig)
	}

	if c.Recording.SilenceThreshold <= 0 {
		return fmt.Errorf("%w: recording.silence_threshold must be positive", ErrInvalidConfig)
	}

	if c.Recording.SilenceDuration <= 0 || c.Recording.MaxDuration <= 0 {
		return fmt.Errorf("%w: recording durations must be positive", ErrInvalidConfig)
	}

	if len(c.Audio.SampleRates) == 0 {
		return fmt.Errorf("%w: audio.sample_rates must not be empty", ErrInvalidConfig)
	}

	for _, rate := range c.Audio.SampleRates {
		if rate < 16000 {
			return fmt.Errorf("%w: unsupported sample rate %d", ErrInvalidConfig, rate)
		}
	}

	switch c.STT.Backend {
	case STTBackendWhisper:
		if c.STT.Model == "" {
			return fmt.Errorf("%w: stt.model is required for the whisper backend", ErrInvalidConfig)
		}
	case STTBackendHTTP:
		if c.STT.Endpoint == "" {
			return fmt.Errorf("%w: stt.endpoint is required for the http backend", ErrInvalidConfig)
		}

		if c.STT.Model == "" {
			return fmt.Errorf("%w: stt.model is required for wake phrase recognition", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown stt.backend %q", ErrInvalidConfig, c.STT.Backend)
	}

	if c.LLM.Endpoint == "" || c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.endpoint and llm.model are required", ErrInvalidConfig)
	}

	if c.LLM.Timeout <= 0 || c.STT.Timeout <= 0 {
		return fmt.Errorf("%w: service timeouts must be positive", ErrInvalidConfig)
	}

	if c.Devices.PollTimeout <= 0 || c.Devices.ControlTimeout <= 0 {
		return fmt.Errorf("%w: device timeouts must be positive", ErrInvalidConfig)
	}

	if c.Devices.PollInterval < 0 {
		return fmt.Errorf("%w: devices.poll_interval must not be negative", ErrInvalidConfig)
	}

	switch c.Notify.Backend {
	case NotifyBackendLog, NotifyBackendEmbedded:
	case NotifyBackendMQTT:
		if c.Notify.Broker == "" {
			return fmt.Errorf("%w: notify.broker is required for the mqtt backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown notify.backend %q", ErrInvalidConfig, c.Notify.Backend)
	}

	if c.Notify.QoS < 0 || c.Notify.QoS > 2 {
		return fmt.Errorf("%w: notify.qos must be 0, 1 or 2", ErrInvalidConfig)
	}

	if c.HTTP.Enabled && c.HTTP.Address == "" {
		return fmt.Errorf("%w: http.address is required when http is enabled", ErrInvalidConfig)
	}

	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("%w: archive.dir is required when archive is enabled", ErrInvalidConfig)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel     string          `yaml:"log_level"`
	Language     string          `yaml:"language"`
	Model        string          `yaml:"model"`
	OutputFormat string          `yaml:"output_format"`
	Engine       EngineConfig    `yaml:"engine"`
	Decoder      DecoderConfig   `yaml:"decoder"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
}

type EngineConfig struct {
	Backend          string       `yaml:"backend"` // exec, whispercpp, openai
	Command          string       `yaml:"command"`
	ModelsDir        string       `yaml:"models_dir"`
	Threads          int          `yaml:"threads"`
	SuppressWarnings []string     `yaml:"suppress_warnings"`
	OpenAI           OpenAIConfig `yaml:"openai"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type DecoderConfig struct {
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

func Default() Config {
	return Config{
		LogLevel:     "info",
		Language:     "es",
		Model:        "medium",
		OutputFormat: "txt",
		Engine: EngineConfig{
			Backend:   "exec",
			Command:   "whisper",
			ModelsDir: "./models",
			SuppressWarnings: []string{
				"FP16 is not supported on CPU; using FP32 instead",
			},
			OpenAI: OpenAIConfig{
				Model: "whisper-1",
			},
		},
		Decoder: DecoderConfig{
			Command:    "ffmpeg",
			SampleRate: 16000,
			Channels:   1,
		},
		Telemetry: TelemetryConfig{
			OTLPInsecure: true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and TRANSCRIBER_* variables,
// in that order of increasing precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	// Variables already present in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env file: %w", err)
	}

	if path == "" {
		path = os.Getenv("TRANSCRIBER_CONFIG")
	}
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
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.LogLevel, "TRANSCRIBER_LOG_LEVEL")
	overrideString(&cfg.Language, "TRANSCRIBER_LANGUAGE")
	overrideString(&cfg.Model, "TRANSCRIBER_MODEL")
	overrideString(&cfg.OutputFormat, "TRANSCRIBER_OUTPUT_FORMAT")
	overrideString(&cfg.Engine.Backend, "TRANSCRIBER_ENGINE_BACKEND")
	overrideString(&cfg.Engine.Command, "TRANSCRIBER_ENGINE_COMMAND")
	overrideString(&cfg.Engine.ModelsDir, "TRANSCRIBER_ENGINE_MODELS_DIR")
	overrideString(&cfg.Engine.ModelsDir, "WHISPER_MODELS_DIR")
	overrideInt(&cfg.Engine.Threads, "WHISPER_THREADS")
	overrideInt(&cfg.Engine.Threads, "TRANSCRIBER_ENGINE_THREADS")
	overrideStringSlice(&cfg.Engine.SuppressWarnings, "TRANSCRIBER_ENGINE_SUPPRESS_WARNINGS")
	overrideString(&cfg.Engine.OpenAI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.Engine.OpenAI.APIKey, "TRANSCRIBER_OPENAI_API_KEY")
	overrideString(&cfg.Engine.OpenAI.BaseURL, "TRANSCRIBER_OPENAI_BASE_URL")
	overrideString(&cfg.Engine.OpenAI.Model, "TRANSCRIBER_OPENAI_MODEL")
	overrideString(&cfg.Decoder.Command, "TRANSCRIBER_DECODER_COMMAND")
	overrideInt(&cfg.Decoder.SampleRate, "TRANSCRIBER_DECODER_SAMPLE_RATE")
	overrideInt(&cfg.Decoder.Channels, "TRANSCRIBER_DECODER_CHANNELS")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "TRANSCRIBER_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "TRANSCRIBER_OTLP_INSECURE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	value, ok := os.LookupEnv(envKey)
	if !ok || value == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false", "no", "off":
		*target = false
	default:
		*target = true
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
		*target = trimmed
	}
}

func validate(cfg Config) error {
	switch cfg.OutputFormat {
	case "txt", "srt", "json":
	default:
		return errors.New("output_format must be one of txt|srt|json")
	}
	if cfg.Language == "" {
		return errors.New("language must not be empty")
	}
	if cfg.Model == "" {
		return errors.New("model must not be empty")
	}
	switch cfg.Engine.Backend {
	case "exec", "whispercpp", "openai":
	default:
		return errors.New("engine.backend must be one of exec|whispercpp|openai")
	}
	if cfg.Engine.Backend == "exec" && cfg.Engine.Command == "" {
		return errors.New("engine.command must be set when backend=exec")
	}
	if cfg.Engine.Threads < 0 {
		return errors.New("engine.threads must be >= 0")
	}
	if cfg.Decoder.Command == "" {
		return errors.New("decoder.command must not be empty")
	}
	if cfg.Decoder.SampleRate <= 0 {
		return errors.New("decoder.sample_rate must be positive")
	}
	if cfg.Decoder.Channels <= 0 {
		return errors.New("decoder.channels must be positive")
	}
	return nil
}

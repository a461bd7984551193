package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/docsynth/docsynth/internal/text"
)

// Config holds all configuration for a synthesis run. Everything is fixed
// at load time; nothing here mutates mid-run.
type Config struct {
	// Synthesis provider: yandex, google or openai
	Provider string `envconfig:"PROVIDER" default:"google"`

	// Chunking. The limit is in runes; zero or unset falls back to
	// text.DefaultChunkLimit.
	ChunkLimit int `envconfig:"CHUNK_LIMIT" default:"0"`

	// Pipeline behavior
	SynthesisWorkers int    `envconfig:"SYNTHESIS_WORKERS" default:"1"`  // >1 enables the bounded worker pool
	ChunkTimeout     int    `envconfig:"CHUNK_TIMEOUT" default:"120"`    // per-chunk provider call timeout, seconds
	OutputFormat     string `envconfig:"OUTPUT_FORMAT" default:"mp3"`    // target container for the final artifact
	KeepFragments    bool   `envconfig:"KEEP_FRAGMENTS" default:"false"` // leave per-chunk fragment files on disk
	FFmpegPath       string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`

	// Preprocessing rules file: one "pattern => replacement" per line.
	RulesFile string `envconfig:"RULES_FILE" default:""`

	// Yandex SpeechKit
	YandexAPIKey   string  `envconfig:"YANDEX_API_KEY" default:""`
	YandexFolderID string  `envconfig:"YANDEX_FOLDER_ID" default:""`
	YandexVoice    string  `envconfig:"YANDEX_VOICE" default:"filipp"`
	YandexSpeed    float64 `envconfig:"YANDEX_SPEED" default:"1.0"`

	// Google Cloud Text-to-Speech
	GoogleAPIKey          string   `envconfig:"GOOGLE_API_KEY" default:""`
	GoogleLanguage        string   `envconfig:"GOOGLE_LANGUAGE" default:"en-US"`
	GoogleVoice           string   `envconfig:"GOOGLE_VOICE" default:""` // empty means <language>-Wavenet-A
	GoogleSSMLGender      string   `envconfig:"GOOGLE_SSML_GENDER" default:"MALE"`
	GoogleSpeakingRate    float64  `envconfig:"GOOGLE_SPEAKING_RATE" default:"1.0"`
	GooglePitch           float64  `envconfig:"GOOGLE_PITCH" default:"0.0"`
	GoogleVolumeGainDB    float64  `envconfig:"GOOGLE_VOLUME_GAIN_DB" default:"0.0"`
	GoogleEffectsProfiles []string `envconfig:"GOOGLE_EFFECTS_PROFILES" default:""`

	// OpenAI speech
	OpenAIAPIKey string  `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel  string  `envconfig:"OPENAI_MODEL" default:"tts-1"`
	OpenAIVoice  string  `envconfig:"OPENAI_VOICE" default:"alloy"`
	OpenAISpeed  float64 `envconfig:"OPENAI_SPEED" default:"1.0"`

	// Provider-internal retry for transient network faults
	RetryMaxAttempts    int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds

	// Observability
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9090"`

	// Substitution rules loaded from RulesFile, in file order.
	Rules []text.Rule `ignored:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from .env file if it exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ChunkLimit == 0 {
		cfg.ChunkLimit = text.DefaultChunkLimit
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.RulesFile != "" {
		f, err := os.Open(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open rules file: %w", err)
		}
		defer f.Close()
		cfg.Rules, err = ParseRules(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rules file %s: %w", cfg.RulesFile, err)
		}
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkLimit < 0 {
		return fmt.Errorf("CHUNK_LIMIT must not be negative, got %d", c.ChunkLimit)
	}
	if c.SynthesisWorkers < 1 {
		return fmt.Errorf("SYNTHESIS_WORKERS must be at least 1, got %d", c.SynthesisWorkers)
	}

	switch c.Provider {
	case "yandex":
		if c.YandexAPIKey == "" {
			return fmt.Errorf("YANDEX_API_KEY is required for the yandex provider")
		}
		if c.YandexFolderID == "" {
			return fmt.Errorf("YANDEX_FOLDER_ID is required for the yandex provider")
		}
	case "google":
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for the google provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown provider %q (expected yandex, google or openai)", c.Provider)
	}

	return nil
}

// ParseRules reads substitution rules, one per line, in the form
//
//	pattern => replacement
//
// Blank lines and lines starting with # are skipped. Order is preserved:
// rules apply in file order.
func ParseRules(r io.Reader) ([]text.Rule, error) {
	var rules []text.Rule
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pattern, replacement, found := strings.Cut(line, "=>")
		if !found {
			return nil, fmt.Errorf("line %d: expected \"pattern => replacement\", got %q", lineNo, line)
		}
		rules = append(rules, text.Rule{
			Pattern:     strings.TrimSpace(pattern),
			Replacement: strings.TrimSpace(replacement),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

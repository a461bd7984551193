package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docsynth/docsynth/internal/text"
)

func TestLoad(t *testing.T) {
	os.Setenv("PROVIDER", "google")
	os.Setenv("GOOGLE_API_KEY", "test-google-key")
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("GOOGLE_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != "google" {
		t.Errorf("Expected Provider 'google', got '%s'", cfg.Provider)
	}
	if cfg.GoogleAPIKey != "test-google-key" {
		t.Errorf("Expected GoogleAPIKey 'test-google-key', got '%s'", cfg.GoogleAPIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("GOOGLE_API_KEY", "test-google-key")
	defer os.Unsetenv("GOOGLE_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ChunkLimit != text.DefaultChunkLimit {
		t.Errorf("Expected default ChunkLimit %d, got %d", text.DefaultChunkLimit, cfg.ChunkLimit)
	}
	if cfg.SynthesisWorkers != 1 {
		t.Errorf("Expected default SynthesisWorkers 1, got %d", cfg.SynthesisWorkers)
	}
	if cfg.ChunkTimeout != 120 {
		t.Errorf("Expected default ChunkTimeout 120, got %d", cfg.ChunkTimeout)
	}
	if cfg.OutputFormat != "mp3" {
		t.Errorf("Expected default OutputFormat 'mp3', got '%s'", cfg.OutputFormat)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected default FFmpegPath 'ffmpeg', got '%s'", cfg.FFmpegPath)
	}
	if cfg.GoogleLanguage != "en-US" {
		t.Errorf("Expected default GoogleLanguage 'en-US', got '%s'", cfg.GoogleLanguage)
	}
	if cfg.GoogleSpeakingRate != 1.0 {
		t.Errorf("Expected default GoogleSpeakingRate 1.0, got %f", cfg.GoogleSpeakingRate)
	}
	if cfg.YandexVoice != "filipp" {
		t.Errorf("Expected default YandexVoice 'filipp', got '%s'", cfg.YandexVoice)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.KeepFragments {
		t.Error("Expected default KeepFragments false, got true")
	}
	if cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled false, got true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoad_MissingProviderCredentials(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		env      map[string]string
	}{
		{"google_no_key", "google", nil},
		{"yandex_no_key", "yandex", nil},
		{"yandex_no_folder", "yandex", map[string]string{"YANDEX_API_KEY": "key"}},
		{"openai_no_key", "openai", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("PROVIDER", tt.provider)
			defer os.Unsetenv("PROVIDER")
			for k, v := range tt.env {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for provider %q with missing credentials", tt.provider)
			}
		})
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	os.Setenv("PROVIDER", "espeak")
	defer os.Unsetenv("PROVIDER")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestLoad_InvalidChunkLimit(t *testing.T) {
	os.Setenv("PROVIDER", "google")
	os.Setenv("GOOGLE_API_KEY", "key")
	os.Setenv("CHUNK_LIMIT", "-1")
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("GOOGLE_API_KEY")
	defer os.Unsetenv("CHUNK_LIMIT")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for negative chunk limit")
	}
}

func TestLoad_ZeroChunkLimitFallsBack(t *testing.T) {
	os.Setenv("PROVIDER", "google")
	os.Setenv("GOOGLE_API_KEY", "key")
	os.Setenv("CHUNK_LIMIT", "0")
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("GOOGLE_API_KEY")
	defer os.Unsetenv("CHUNK_LIMIT")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if cfg.ChunkLimit != text.DefaultChunkLimit {
		t.Errorf("Expected fallback ChunkLimit %d, got %d", text.DefaultChunkLimit, cfg.ChunkLimit)
	}
}

func TestParseRules(t *testing.T) {
	input := strings.NewReader(`
# abbreviations
Dr\. => Doctor
\bист\. => источник

(\d+)% => $1 percent
`)
	rules, err := ParseRules(input)
	if err != nil {
		t.Fatalf("ParseRules failed: %v", err)
	}

	if len(rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(rules))
	}
	if rules[0].Pattern != `Dr\.` || rules[0].Replacement != "Doctor" {
		t.Errorf("Unexpected first rule: %+v", rules[0])
	}
	if rules[2].Replacement != "$1 percent" {
		t.Errorf("Unexpected third rule replacement: %q", rules[2].Replacement)
	}
}

func TestParseRules_Malformed(t *testing.T) {
	_, err := ParseRules(strings.NewReader("no separator here"))
	if err == nil {
		t.Error("Expected error for malformed rule line")
	}
}

func TestLoad_RulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	if err := os.WriteFile(path, []byte("Mr\\. => Mister\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("PROVIDER", "google")
	os.Setenv("GOOGLE_API_KEY", "key")
	os.Setenv("RULES_FILE", path)
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("GOOGLE_API_KEY")
	defer os.Unsetenv("RULES_FILE")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Replacement != "Mister" {
		t.Errorf("Unexpected rules: %+v", cfg.Rules)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	if value := GetEnv("TEST_KEY", "default"); value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}
	if value := GetEnv("NON_EXISTENT_KEY", "default"); value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/docsynth/docsynth/internal/config"
	"github.com/docsynth/docsynth/internal/resilience"
)

const googleAPIURL = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleClient synthesizes speech through the Google Cloud Text-to-Speech
// REST API. Fragments are written as MP3.
type GoogleClient struct {
	cfg        *config.Config
	apiURL     string
	httpClient *http.Client
	retry      *resilience.RetryConfig
}

type googleRequest struct {
	Input       googleInput       `json:"input"`
	Voice       googleVoice       `json:"voice"`
	AudioConfig googleAudioConfig `json:"audioConfig"`
}

type googleInput struct {
	Text string `json:"text"`
}

type googleVoice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
	SSMLGender   string `json:"ssmlGender,omitempty"`
}

type googleAudioConfig struct {
	AudioEncoding    string   `json:"audioEncoding"`
	SpeakingRate     float64  `json:"speakingRate,omitempty"`
	Pitch            float64  `json:"pitch,omitempty"`
	VolumeGainDB     float64  `json:"volumeGainDb,omitempty"`
	EffectsProfileID []string `json:"effectsProfileId,omitempty"`
}

type googleResponse struct {
	AudioContent string `json:"audioContent"`
}

// NewGoogleClient creates a Google Cloud TTS client from config.
func NewGoogleClient(cfg *config.Config) *GoogleClient {
	return &GoogleClient{
		cfg:        cfg,
		apiURL:     googleAPIURL,
		httpClient: &http.Client{},
		retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
	}
}

// SynthesizeChunk sends one synthesis request and writes the decoded MP3
// bytes to pathStem.mp3.
func (c *GoogleClient) SynthesizeChunk(ctx context.Context, text, pathStem string) (string, error) {
	voiceName := c.cfg.GoogleVoice
	if voiceName == "" {
		voiceName = c.cfg.GoogleLanguage + "-Wavenet-A"
	}

	// An empty GOOGLE_EFFECTS_PROFILES env var parses to a single empty
	// element, which the API rejects.
	profiles := make([]string, 0, len(c.cfg.GoogleEffectsProfiles))
	for _, p := range c.cfg.GoogleEffectsProfiles {
		if p != "" {
			profiles = append(profiles, p)
		}
	}

	reqBody := googleRequest{
		Input: googleInput{Text: text},
		Voice: googleVoice{
			LanguageCode: c.cfg.GoogleLanguage,
			Name:         voiceName,
			SSMLGender:   c.cfg.GoogleSSMLGender,
		},
		AudioConfig: googleAudioConfig{
			AudioEncoding:    "MP3",
			SpeakingRate:     c.cfg.GoogleSpeakingRate,
			Pitch:            c.cfg.GooglePitch,
			VolumeGainDB:     c.cfg.GoogleVolumeGainDB,
			EffectsProfileID: profiles,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	audio, err := c.post(ctx, jsonData)
	if err != nil {
		return "", err
	}

	path := pathStem + ".mp3"
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fragment: %w", err)
	}
	return path, nil
}

// post performs the HTTP call, retrying only transient transport faults.
// A non-200 response is surfaced as a ProviderError and never retried.
func (c *GoogleClient) post(ctx context.Context, jsonData []byte) ([]byte, error) {
	var audio []byte
	err := resilience.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.cfg.GoogleAPIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return &ProviderError{
				Provider:   "google",
				StatusCode: resp.StatusCode,
				Message:    string(bytes.TrimSpace(body)),
			}
		}

		var decoded googleResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		audio, err = base64.StdEncoding.DecodeString(decoded.AudioContent)
		if err != nil {
			return fmt.Errorf("failed to decode audio content: %w", err)
		}
		return nil
	}, c.retry, isRetryable)
	if err != nil {
		return nil, err
	}

	if len(audio) == 0 {
		return nil, &ProviderError{
			Provider:   "google",
			StatusCode: http.StatusOK,
			Message:    "empty audio content in response",
		}
	}
	return audio, nil
}

// Close implements Synthesizer. The HTTP client holds no persistent state.
func (c *GoogleClient) Close() error {
	return nil
}

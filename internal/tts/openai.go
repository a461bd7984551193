package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docsynth/docsynth/internal/config"
	"github.com/docsynth/docsynth/internal/resilience"
)

// OpenAIClient synthesizes speech through the OpenAI speech endpoint.
// Fragments are written as MP3.
type OpenAIClient struct {
	cfg    *config.Config
	client *openai.Client
	retry  *resilience.RetryConfig
}

// NewOpenAIClient creates an OpenAI speech client from config.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		cfg:    cfg,
		client: openai.NewClient(cfg.OpenAIAPIKey),
		retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
	}
}

// SynthesizeChunk requests speech for one chunk and writes the MP3 stream
// to pathStem.mp3.
func (c *OpenAIClient) SynthesizeChunk(ctx context.Context, text, pathStem string) (string, error) {
	path := pathStem + ".mp3"

	err := resilience.Retry(func() error {
		resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(c.cfg.OpenAIModel),
			Input:          text,
			Voice:          openai.SpeechVoice(c.cfg.OpenAIVoice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
			Speed:          c.cfg.OpenAISpeed,
		})
		if err != nil {
			return openaiError(err)
		}
		defer resp.Close()

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create fragment: %w", err)
		}
		defer f.Close()

		if _, err := io.Copy(f, resp); err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to write fragment: %w", err)
		}
		return nil
	}, c.retry, isRetryable)
	if err != nil {
		return "", err
	}

	return path, nil
}

// openaiError maps an API failure onto the provider error contract,
// keeping transport errors intact so the retry policy can see them.
func openaiError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}
	return err
}

// Close implements Synthesizer. The SDK client holds no persistent state.
func (c *OpenAIClient) Close() error {
	return nil
}

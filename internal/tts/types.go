// Package tts provides the speech-synthesis capability consumed by the
// pipeline, polymorphic over providers. Each provider turns one text chunk
// into one audio fragment file.
package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/docsynth/docsynth/internal/config"
	"github.com/docsynth/docsynth/internal/resilience"
)

// Synthesizer is the synthesis capability: one call per chunk, producing
// one fragment file.
type Synthesizer interface {
	// SynthesizeChunk synthesizes text and persists the audio to a file
	// named pathStem plus the provider's container extension, returning
	// the written path.
	SynthesizeChunk(ctx context.Context, text, pathStem string) (string, error)

	// Close releases any connections held by the provider.
	Close() error
}

// ProviderError is a non-success response from a synthesis provider.
// It is fatal: the run aborts, no partial output survives.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s synthesis failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// isRetryable marks transient transport faults as retryable. A ProviderError
// is a definitive answer from the service and is never retried.
func isRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return false
	}
	return resilience.IsRetryableNetworkError(err)
}

// New constructs the provider selected by cfg.Provider.
func New(cfg *config.Config) (Synthesizer, error) {
	switch cfg.Provider {
	case "yandex":
		return NewYandexClient(cfg)
	case "google":
		return NewGoogleClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q", cfg.Provider)
	}
}

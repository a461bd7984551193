// Package resilience provides retry with exponential backoff for the
// synthesis providers. The orchestrator itself never retries a failed
// chunk; transient network faults are absorbed here, inside the provider,
// before a failure becomes fatal for the run.
package resilience

import (
	"math/rand"
	"strings"
	"time"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of attempts, including the first
	InitialBackoff    time.Duration // Backoff before the second attempt
	MaxBackoff        time.Duration // Cap applied to every backoff
	BackoffMultiplier float64       // Growth factor between attempts
	Jitter            bool          // Add up to 25% random jitter to each backoff
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// IsRetryableError decides whether an error is worth another attempt.
type IsRetryableError func(error) bool

// Retry executes fn until it succeeds, returns a non-retryable error, or
// exhausts config.MaxAttempts. A nil isRetryable retries every error.
func Retry(fn RetryableFunc, config *RetryConfig, isRetryable IsRetryableError) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable != nil && !isRetryable(err) {
			return err
		}

		if attempt < config.MaxAttempts-1 {
			sleep := backoff
			if config.Jitter {
				sleep += time.Duration(rand.Float64() * 0.25 * float64(sleep))
			}
			if sleep > config.MaxBackoff {
				sleep = config.MaxBackoff
			}
			time.Sleep(sleep)

			backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	return lastErr
}

// IsRetryableNetworkError reports whether an error looks like a transient
// transport failure. Non-success provider responses are never retried; they
// carry their own error type and abort the run.
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"transport is closing",
		"unavailable",
		"network is unreachable",
		"no route to host",
		"deadline exceeded",
		"timeout",
		"i/o timeout",
		"resource exhausted",
		"too many connections",
		"rate limit",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

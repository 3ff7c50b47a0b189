package honyaku

import (
	"context"
	"errors"
	"time"
)

// RetryConfig controls how often a failed provider call is repeated.
// The delay doubles from BaseDelay on each attempt and is capped at MaxDelay.
type RetryConfig struct {
	MaxRetries int // attempts after the first; 0 disables retrying
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig matches the retry section of config.Default.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// RetryFunc is one attempt of a provider call.
type RetryFunc[T any] func() (T, error)

// WithRetry runs fn until it succeeds, returns an error IsRetryable rejects,
// the attempts run out or ctx is done. The last error is returned.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			delay := cfg.BaseDelay * time.Duration(1<<attempt)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return zero, lastErr
}

// IsRetryable reports whether err carries a ProviderError marked
// Retryable. Context errors and everything else are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return false
}

// RetryableProvider repeats failed Translate, Analyze and ExtractText
// calls with exponential backoff. Only failures the provider marks
// retryable (rate limits, 5xx, timeouts, empty replies) are repeated.
type RetryableProvider struct {
	provider AIProvider
	config   RetryConfig
}

// NewRetryableProvider wraps provider. ExtractText is available only when
// provider also implements TextExtractor.
func NewRetryableProvider(provider AIProvider, cfg RetryConfig) *RetryableProvider {
	return &RetryableProvider{
		provider: provider,
		config:   cfg,
	}
}

// Translate retries a translation call.
func (p *RetryableProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	return WithRetry(ctx, p.config, func() (string, error) {
		return p.provider.Translate(ctx, req)
	})
}

// Analyze retries a breakdown call. Schema validation happens later in
// Service, so a malformed document is not retried here.
func (p *RetryableProvider) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	return WithRetry(ctx, p.config, func() (string, error) {
		return p.provider.Analyze(ctx, req)
	})
}

// ExtractText retries OCR when the wrapped provider supports it.
func (p *RetryableProvider) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	extractor, ok := p.provider.(TextExtractor)
	if !ok {
		return "", &ProviderError{Message: "text extraction not supported"}
	}
	return WithRetry(ctx, p.config, func() (string, error) {
		return extractor.ExtractText(ctx, image, contentType)
	})
}

package honyaku

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter controls the rate of API requests using a token bucket algorithm.
type RateLimiter struct {
	limiter *rate.Limiter
}

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute
	BurstSize         int // Maximum burst size (default: same as RPM)
}

// NewRateLimiter creates a new rate limiter. The bucket starts full.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60 // Default: 60 RPM
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm // Default burst = RPM
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

// Wait blocks until a token is available or context is cancelled. It fails
// immediately when ctx would expire before the next token.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token without blocking.
// Returns true if a token was acquired, false otherwise.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// Available returns the current number of available tokens.
func (r *RateLimiter) Available() float64 {
	return r.limiter.Tokens()
}

// RateLimitedProvider wraps an AIProvider with rate limiting.
// Translate, Analyze and ExtractText draw from the same bucket.
type RateLimitedProvider struct {
	provider AIProvider
	limiter  *RateLimiter
}

// NewRateLimitedProvider creates a new rate-limited provider.
func NewRateLimitedProvider(provider AIProvider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewRateLimiter(cfg),
	}
}

// Translate implements AIProvider with rate limiting.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return p.provider.Translate(ctx, req)
}

// Analyze implements AIProvider with rate limiting.
func (p *RateLimitedProvider) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return p.provider.Analyze(ctx, req)
}

// ExtractText rate-limits OCR when the wrapped provider supports it.
func (p *RateLimitedProvider) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	extractor, ok := p.provider.(TextExtractor)
	if !ok {
		return "", &ProviderError{Message: "text extraction not supported"}
	}
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return extractor.ExtractText(ctx, image, contentType)
}

func (p *RateLimitedProvider) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &ProviderError{
			Message:   "rate limit wait cancelled",
			Cause:     err,
			Retryable: false,
		}
	}
	return nil
}

// Limiter returns the underlying rate limiter for inspection.
func (p *RateLimitedProvider) Limiter() *RateLimiter {
	return p.limiter
}

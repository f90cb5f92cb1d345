package ai

import (
	"context"

	"golang.org/x/time/rate"

	"edinsights/pkg/errors"
)

// RateLimiter defines the interface for rate limiting AI provider requests.
type RateLimiter interface {
	// Wait blocks until request can proceed or context is cancelled.
	Wait(ctx context.Context) error

	// Allow checks if request can proceed without blocking.
	Allow() bool

	// Limit returns current rate limit (requests per minute).
	Limit() float64
}

// TokenBucketLimiter rate limits model calls with a token bucket.
type TokenBucketLimiter struct {
	limiter  *rate.Limiter
	provider ProviderName
}

// NewTokenBucketLimiter creates a rate limiter for a provider.
// reqPerMinute: maximum requests per minute (e.g., 60 for Gemini free tier)
// burst: maximum burst size (typically 10-20% of rate)
func NewTokenBucketLimiter(provider ProviderName, reqPerMinute float64, burst int) *TokenBucketLimiter {
	if burst <= 0 {
		burst = int(reqPerMinute / 10)
		if burst < 1 {
			burst = 1
		}
	}

	return &TokenBucketLimiter{
		limiter:  rate.NewLimiter(rate.Limit(reqPerMinute/60.0), burst),
		provider: provider,
	}
}

// Wait blocks until a token is available or context is cancelled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter wait cancelled for provider %s", l.provider)
	}
	return nil
}

// Allow checks if a request can proceed and consumes a token if available.
func (l *TokenBucketLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit returns the current rate limit in requests per minute.
func (l *TokenBucketLimiter) Limit() float64 {
	return float64(l.limiter.Limit()) * 60.0
}

// NoOpLimiter is a rate limiter that never blocks (for testing or disabled rate limiting).
type NoOpLimiter struct{}

// NewNoOpLimiter creates a no-op rate limiter.
func NewNoOpLimiter() *NoOpLimiter {
	return &NoOpLimiter{}
}

// Wait always returns immediately without error.
func (l *NoOpLimiter) Wait(ctx context.Context) error {
	return nil
}

// Allow always returns true.
func (l *NoOpLimiter) Allow() bool {
	return true
}

// Limit returns -1 to indicate unlimited.
func (l *NoOpLimiter) Limit() float64 {
	return -1
}

// RateLimitConfig contains rate limit configuration for a provider.
type RateLimitConfig struct {
	Enabled      bool
	ReqPerMinute float64
	Burst        int
}

// GetRateLimiter creates the appropriate rate limiter based on config.
func GetRateLimiter(provider ProviderName, config RateLimitConfig) RateLimiter {
	if !config.Enabled || config.ReqPerMinute <= 0 {
		return NewNoOpLimiter()
	}
	return NewTokenBucketLimiter(provider, config.ReqPerMinute, config.Burst)
}

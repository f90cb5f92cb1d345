package ai

import (
	"strings"

	"edinsights/internal/adapters/config"
	"edinsights/pkg/errors"
)

// BuildRegistry initializes a ProviderRegistry with all enabled providers
// based on configuration. At least one provider must be configured.
func BuildRegistry(cfg config.AIConfig) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	if cfg.GeminiKey != "" {
		if err := registry.Register(NewGeminiProvider(cfg.GeminiKey, cfg.RequestTimeout)); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI providers configured")
	}

	return registry, nil
}

// BuildRateLimiter creates the model-call rate limiter from config.
func BuildRateLimiter(cfg config.AIConfig) RateLimiter {
	return GetRateLimiter(ProviderNameGemini, RateLimitConfig{
		Enabled:      cfg.ReqPerMinute > 0,
		ReqPerMinute: cfg.ReqPerMinute,
		Burst:        cfg.RateLimitBurst,
	})
}

// NormalizeProviderName makes provider lookup more forgiving.
func NormalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

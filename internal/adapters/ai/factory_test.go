package ai

import (
	"context"
	"testing"
	"time"

	"edinsights/internal/adapters/config"
)

func TestBuildRegistryRequiresAProvider(t *testing.T) {
	if _, err := BuildRegistry(config.AIConfig{}); err == nil {
		t.Fatal("expected error when no providers configured")
	}
}

func TestBuildRegistryRegistersGemini(t *testing.T) {
	registry, err := BuildRegistry(config.AIConfig{GeminiKey: "key", RequestTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	provider, err := registry.Get("gemini")
	if err != nil {
		t.Fatalf("gemini provider not registered: %v", err)
	}
	if provider.Name() != string(ProviderNameGemini) {
		t.Errorf("unexpected provider name %q", provider.Name())
	}
}

func TestResolveModelUnknownProvider(t *testing.T) {
	registry, err := BuildRegistry(config.AIConfig{GeminiKey: "key", RequestTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	if _, err := registry.ResolveModel(context.Background(), "openai", "gpt-4"); err == nil {
		t.Error("expected error for unregistered provider")
	}
}

func TestBuildRateLimiter(t *testing.T) {
	limiter := BuildRateLimiter(config.AIConfig{ReqPerMinute: 60, RateLimitBurst: 2})
	if _, ok := limiter.(*TokenBucketLimiter); !ok {
		t.Errorf("expected TokenBucketLimiter, got %T", limiter)
	}

	disabled := BuildRateLimiter(config.AIConfig{})
	if _, ok := disabled.(*NoOpLimiter); !ok {
		t.Errorf("expected NoOpLimiter when rate limiting unset, got %T", disabled)
	}
}

package ai

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketLimiterBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameGemini, 60, 2)

	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first request should succeed: %v", err)
	}
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second request should succeed within burst: %v", err)
	}

	// Bucket is drained; a non-blocking check must fail now.
	if limiter.Allow() {
		t.Error("third request should be throttled after burst is spent")
	}
}

func TestTokenBucketLimiterWaitRespectsContext(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameGemini, 1, 1)

	ctx := context.Background()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first request should succeed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(cancelCtx); err == nil {
		t.Error("wait should fail when context expires before a token frees up")
	}
}

func TestTokenBucketLimiterReportsLimit(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameGemini, 120, 5)
	if got := limiter.Limit(); got != 120 {
		t.Errorf("expected limit 120 req/min, got %f", got)
	}
}

func TestNoOpLimiterNeverBlocks(t *testing.T) {
	limiter := NewNoOpLimiter()

	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatal("noop limiter must always allow")
		}
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("noop limiter wait failed: %v", err)
	}
	if limiter.Limit() != -1 {
		t.Error("noop limiter should report unlimited")
	}
}

func TestGetRateLimiterDisabled(t *testing.T) {
	limiter := GetRateLimiter(ProviderNameGemini, RateLimitConfig{Enabled: false})
	if _, ok := limiter.(*NoOpLimiter); !ok {
		t.Errorf("expected NoOpLimiter when disabled, got %T", limiter)
	}
}

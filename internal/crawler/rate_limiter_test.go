package crawler

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(10) // one request per 100ms
	ctx := context.Background()

	start := time.Now()

	// First request should be immediate
	if err := limiter.Wait(ctx, "https://example.com/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	// Second request should wait
	if err := limiter.Wait(ctx, "https://example.com/page2"); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Rate limiting not working, elapsed time: %v", elapsed)
	}

	// Different host should not be rate limited
	start2 := time.Now()
	if err := limiter.Wait(ctx, "https://other.com/page1"); err != nil {
		t.Errorf("Different host request failed: %v", err)
	}
	if elapsed := time.Since(start2); elapsed > 20*time.Millisecond {
		t.Errorf("Different host was rate limited, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := limiter.Wait(ctx, "https://example.com/"); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Unlimited limiter waited %v", elapsed)
	}
}

func TestRateLimiterHostDelay(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	limiter.SetHostDelay("example.com", 150*time.Millisecond)

	start := time.Now()
	_ = limiter.Wait(ctx, "https://example.com/page1")
	_ = limiter.Wait(ctx, "https://example.com/page2")

	if elapsed := time.Since(start); elapsed < 140*time.Millisecond {
		t.Errorf("Host delay not applied, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterHostDelayNeverLoosens(t *testing.T) {
	limiter := NewRateLimiter(2) // 500ms apart
	limiter.SetHostDelay("example.com", 10*time.Millisecond)

	if got := limiter.getLimiter("example.com").Limit(); got != 2 {
		t.Errorf("Expected configured limit to win, got %v", got)
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(2)

	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.Wait(ctx, "https://example.com/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	cancel()

	err := limiter.Wait(ctx, "https://example.com/page2")
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRateLimiterInvalidURL(t *testing.T) {
	limiter := NewRateLimiter(10)

	if err := limiter.Wait(context.Background(), "http://[::1]:namedport"); err == nil {
		t.Errorf("Expected error for invalid URL, got nil")
	}
}

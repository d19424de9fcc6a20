//go:build integration

package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/postboard/postboard/internal/cache"
	"github.com/postboard/postboard/internal/testutil"
)

func newIntegrationCache(t *testing.T) *cache.Cache {
	t.Helper()
	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

// TestIntegrationCallerRateLimitConcurrency verifies the token bucket stays
// atomic under concurrent load.
func TestIntegrationCallerRateLimitConcurrency(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	const (
		rpm   = 10
		burst = 5
	)

	var allowed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				result, err := c.CheckCallerRateLimit(ctx, "concurrent-caller", rpm, burst)
				if err != nil {
					t.Errorf("CheckCallerRateLimit error: %v", err)
					return
				}
				if result.Allowed {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	t.Logf("caller rate limit: %d allowed, %d rejected", allowed, rejected)

	// 10 rpm refills well under one token during the test.
	if allowed > burst+1 {
		t.Errorf("Too many requests allowed: %d (expected <= %d)", allowed, burst+1)
	}
	if rejected == 0 {
		t.Error("Expected some requests to be rejected")
	}
}

// TestIntegrationIPRateLimitConcurrency verifies IP-based rate limiting concurrency.
func TestIntegrationIPRateLimitConcurrency(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	var allowed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _ := c.CheckIPRateLimit(ctx, "192.168.1.100", 5, 3)
			if result.Allowed {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	t.Logf("IP rate limit: %d allowed, %d rejected", allowed, rejected)

	if rejected == 0 {
		t.Error("Expected some requests to be rejected")
	}
}

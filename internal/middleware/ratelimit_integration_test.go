//go:build integration

package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/meetly/meetly/internal/cache"
	"github.com/meetly/meetly/internal/testutil"
)

// TestIntegrationRateLimitIP drives the Redis bucket through the middleware
// under concurrent load.
func TestIntegrationRateLimitIP(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	cacheClient, err := cache.New(ctx, cache.Options{URL: redisURL})
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	defer cacheClient.Close()
	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	mw := RateLimitIP(RateLimitConfig{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter: cacheClient,
		Enabled: true,
		Bucket:  "join",
		RPS:     5,
		Burst:   3,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var allowed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/meeting/join/x", nil)
			req.Header.Set("X-Real-IP", "192.168.1.100")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code == http.StatusOK {
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

	// A different bucket has its own budget.
	result, err := cacheClient.CheckIPRateLimit(ctx, "upload", "192.168.1.100", 5, 3)
	if err != nil {
		t.Fatalf("CheckIPRateLimit: %v", err)
	}
	if !result.Allowed {
		t.Error("upload bucket should be independent of join bucket")
	}
}

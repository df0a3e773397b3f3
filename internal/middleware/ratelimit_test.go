package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meetly/meetly/internal/cache"
)

type stubLimiter struct {
	result *cache.RateLimitResult
	err    error
	bucket string
	ip     string
}

func (s *stubLimiter) CheckIPRateLimit(_ context.Context, bucket, ip string, _, _ int) (*cache.RateLimitResult, error) {
	s.bucket = bucket
	s.ip = ip
	return s.result, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitIP(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resetAt := time.Unix(1_800_000_000, 0)

	tests := []struct {
		name       string
		enabled    bool
		limiter    *stubLimiter
		wantStatus int
	}{
		{"disabled", false, &stubLimiter{}, http.StatusOK},
		{"allowed", true, &stubLimiter{result: &cache.RateLimitResult{Allowed: true, Remaining: 4, ResetAt: resetAt}}, http.StatusOK},
		{"rejected", true, &stubLimiter{result: &cache.RateLimitResult{Allowed: false, ResetAt: resetAt, RetryAfter: 2 * time.Second}}, http.StatusTooManyRequests},
		{"redis down fails open", true, &stubLimiter{err: errors.New("dial tcp: refused")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RateLimitIP(RateLimitConfig{
				Logger:  logger,
				Limiter: tt.limiter,
				Enabled: tt.enabled,
				Bucket:  "join",
				RPS:     5,
				Burst:   3,
			})(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/meeting/join/x", nil)
			req.RemoteAddr = "203.0.113.7:51234"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.enabled && tt.limiter.ip != "203.0.113.7" {
				t.Errorf("limiter saw ip %q", tt.limiter.ip)
			}
			if tt.enabled && tt.limiter.bucket != "join" {
				t.Errorf("limiter saw bucket %q", tt.limiter.bucket)
			}
			if tt.wantStatus == http.StatusTooManyRequests {
				if got := rec.Header().Get("Retry-After"); got != "2" {
					t.Errorf("Retry-After = %q, want 2", got)
				}
				var body errorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Code != "RATE_LIMITED" {
					t.Errorf("code = %q", body.Code)
				}
			}
			if tt.limiter.result != nil && rec.Header().Get("X-RateLimit-Limit") != "5" {
				t.Errorf("X-RateLimit-Limit = %q", rec.Header().Get("X-RateLimit-Limit"))
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded chain", "198.51.100.1, 10.0.0.1", "", "10.0.0.2:80", "198.51.100.1"},
		{"real ip", "", "198.51.100.2", "10.0.0.2:80", "198.51.100.2"},
		{"remote with port", "", "", "198.51.100.3:4444", "198.51.100.3"},
		{"remote ipv6", "", "", "[2001:db8::1]:4444", "2001:db8::1"},
		{"remote without port", "", "", "198.51.100.4", "198.51.100.4"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if tt.xri != "" {
			req.Header.Set("X-Real-IP", tt.xri)
		}
		if got := getClientIP(req); got != tt.want {
			t.Errorf("%s: getClientIP() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestThrottle_BurstThenRefill(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	th := NewThrottle(1, 2)
	th.now = func() time.Time { return now }

	if !th.Allow("a") || !th.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if th.Allow("a") {
		t.Fatal("third request inside the same instant should be throttled")
	}
	if !th.Allow("b") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !th.Allow("a") {
		t.Fatal("one token refills per second")
	}
}

func TestThrottle_EvictsStaleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	th := NewThrottle(1, 1)
	th.now = func() time.Time { return now }

	th.Allow("a")
	th.Allow("b")
	if th.Len() != 2 {
		t.Fatalf("Len = %d, want 2", th.Len())
	}

	now = now.Add(throttleStaleAfter + throttleSweepInterval)
	th.Allow("c")
	if th.Len() != 1 {
		t.Errorf("stale clients should be evicted, Len = %d", th.Len())
	}
}

func TestThrottleIP(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := ThrottleIP(NewThrottle(0.5, 1), logger)(okHandler())

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.9:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}

	nilHandler := ThrottleIP(nil, logger)(okHandler())
	nrec := httptest.NewRecorder()
	nilHandler.ServeHTTP(nrec, httptest.NewRequest(http.MethodPost, "/", nil))
	if nrec.Code != http.StatusOK {
		t.Errorf("nil throttle should pass, got %d", nrec.Code)
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	throttleStaleAfter    = 3 * time.Minute
	throttleSweepInterval = time.Minute
)

type throttleClient struct {
	lim  *rate.Limiter
	seen time.Time
}

// Throttle is an in-process per-IP limiter for credential endpoints. It
// keeps working when Redis is down, which the shared bucket does not.
type Throttle struct {
	mu        sync.Mutex
	clients   map[string]*throttleClient
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// NewThrottle allows rps requests per second per IP with the given burst.
func NewThrottle(rps float64, burst int) *Throttle {
	return &Throttle{
		clients: make(map[string]*throttleClient),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (t *Throttle) Allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evictStale(now)

	c, ok := t.clients[ip]
	if !ok {
		c = &throttleClient{lim: rate.NewLimiter(t.limit, t.burst)}
		t.clients[ip] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// evictStale drops idle clients at most once per sweep interval.
// Caller holds t.mu.
func (t *Throttle) evictStale(now time.Time) {
	if now.Sub(t.lastSweep) < throttleSweepInterval {
		return
	}
	t.lastSweep = now
	for ip, c := range t.clients {
		if now.Sub(c.seen) > throttleStaleAfter {
			delete(t.clients, ip)
		}
	}
}

func (t *Throttle) retryAfter() time.Duration {
	if t.limit <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(t.limit))
}

// ThrottleIP rejects requests from clients over the throttle's budget.
// A nil throttle disables the check.
func ThrottleIP(t *Throttle, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if t == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			if !t.Allow(ip) {
				logger.Warn("credential throttle exceeded",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, t.retryAfter())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

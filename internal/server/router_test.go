package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meetly/meetly/internal/handler"
	"github.com/meetly/meetly/internal/metrics"
	"github.com/meetly/meetly/internal/middleware"
	"github.com/meetly/meetly/internal/model"
)

type stubTokens map[string]*model.Identity

func (s stubTokens) Parse(raw string) (*model.Identity, error) {
	if id, ok := s[raw]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

// testRouter mounts handlers without services; every request below is
// answered by middleware before a service would be needed.
func testRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := discardLogger()
	return NewRouter(RouterConfig{
		Logger:   logger,
		Health:   handler.NewHealthHandler(),
		Metrics:  handler.NewMetricsHandler(metrics.NewInMemory()),
		Auth:     handler.NewAuthHandler(nil, logger),
		Meetings: handler.NewMeetingHandler(nil, logger),
		Files:    handler.NewFileHandler(nil, logger),
		Tokens: stubTokens{
			"user-token": {UserID: "u1", Role: model.RoleUser},
		},
		Throttle:           middleware.NewThrottle(1, 100),
		CORSAllowedOrigins: []string{"https://app.example.com"},
		MaxBodySize:        64,
	})
}

func TestRouter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		target   string
		token    string
		body     string
		wantCode int
	}{
		{"liveness", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", "", "", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/meeting/m1", "user-token", "", http.StatusMethodNotAllowed},
		{"list anonymous", http.MethodGet, "/api/meeting", "", "", http.StatusUnauthorized},
		{"mine anonymous", http.MethodGet, "/api/meeting/my-meetings", "", "", http.StatusUnauthorized},
		{"get anonymous", http.MethodGet, "/api/meeting/m1", "", "", http.StatusUnauthorized},
		{"create anonymous", http.MethodPost, "/api/meeting", "", `{}`, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/meeting", "forged", "", http.StatusUnauthorized},
		{"invitations anonymous", http.MethodGet, "/api/meeting/m1/invitations", "", "", http.StatusUnauthorized},
		{"invitations bad token", http.MethodGet, "/api/meeting/m1/invitations", "forged", "", http.StatusUnauthorized},
		{"login ignores stale token", http.MethodPost, "/api/auth/login", "forged", `{`, http.StatusBadRequest},
		{"register ignores stale token", http.MethodPost, "/api/auth/register", "forged", `{`, http.StatusBadRequest},
		{"hard delete as user", http.MethodDelete, "/api/meeting/hard/m1", "user-token", "", http.StatusForbidden},
		{"document upload anonymous", http.MethodPost, "/api/filestorage/document-upload", "", "", http.StatusUnauthorized},
		{"get file anonymous", http.MethodGet, "/api/filestorage/get-file?path=uploads/a", "", "", http.StatusUnauthorized},
		{"register body too large", http.MethodPost, "/api/auth/register", "", `{"firstName":"` + strings.Repeat("a", 128) + `"}`, http.StatusRequestEntityTooLarge},
		{"login malformed", http.MethodPost, "/api/auth/login", "", `{`, http.StatusBadRequest},
	}

	router := testRouter(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			req.RemoteAddr = "192.0.2.10:5000"
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.target, rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestRouter_CommonHeaders(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options":      "nosniff",
		"Access-Control-Allow-Origin": "https://app.example.com",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id header should be set")
	}
}

func TestRouter_CredentialThrottle(t *testing.T) {
	t.Parallel()

	logger := discardLogger()
	router := NewRouter(RouterConfig{
		Logger:      logger,
		Health:      handler.NewHealthHandler(),
		Metrics:     handler.NewMetricsHandler(nil),
		Auth:        handler.NewAuthHandler(nil, logger),
		Meetings:    handler.NewMeetingHandler(nil, logger),
		Files:       handler.NewFileHandler(nil, logger),
		Tokens:      stubTokens{},
		Throttle:    middleware.NewThrottle(0.001, 2),
		MaxBodySize: 1024,
	})

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{`))
		req.RemoteAddr = "198.51.100.7:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusBadRequest {
		t.Errorf("first two attempts should reach the handler, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third attempt = %d, want 429", codes[2])
	}
}

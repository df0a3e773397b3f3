package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meetly/meetly/internal/auth"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/policy"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(testSecret, "meetly", "meetly-api", time.Hour)
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFromContext(r.Context())
		if id == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(id.UserID))
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	token, err := issuer.Issue("user-1", "ada@example.com", "Ada Lovelace", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := auth.NewTokenIssuer("ffffffffffffffffffffffffffffffff", "meetly", "meetly-api", time.Hour)
	forged, err := other.Issue("user-1", "ada@example.com", "Ada Lovelace", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := Authenticate(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: issuer,
	})(identityEcho())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusOK, "anonymous"},
		{"valid token", "Bearer " + token, http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "user-1"},
		{"wrong secret", "Bearer " + forged, http.StatusOK, "anonymous"},
		{"garbage", "Bearer not.a.jwt", http.StatusOK, "anonymous"},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusOK, "anonymous"},
		{"empty bearer", "Bearer ", http.StatusOK, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/meeting", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				var body errorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body.Code != "UNAUTHORIZED" {
					t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
				}
			}
		})
	}
}

func TestAuthenticate_FailedTokenFallsThroughToPolicy(t *testing.T) {
	t.Parallel()

	expired := newTestIssuer().WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	stale, err := expired.Issue("user-1", "ada@example.com", "Ada Lovelace", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	authn := Authenticate(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: newTestIssuer(),
	})

	tests := []struct {
		name       string
		op         policy.Operation
		wantStatus int
	}{
		{"anonymous join", policy.MeetingJoin, http.StatusOK},
		{"anonymous login", policy.AuthLogin, http.StatusOK},
		{"anonymous photo upload", policy.FilePhotoUpload, http.StatusOK},
		{"authenticated create", policy.MeetingCreate, http.StatusUnauthorized},
		{"owner update", policy.MeetingUpdate, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+stale)
			rec := httptest.NewRecorder()
			authn(Authorize(tt.op)(identityEcho())).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != "anonymous" {
				t.Errorf("body = %q, want anonymous", rec.Body.String())
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	user := &model.Identity{UserID: "u1", Role: model.RoleUser}
	admin := &model.Identity{UserID: "a1", Role: model.RoleAdmin}

	tests := []struct {
		name       string
		op         policy.Operation
		identity   *model.Identity
		wantStatus int
		wantCode   string
	}{
		{"anonymous join", policy.MeetingJoin, nil, http.StatusOK, ""},
		{"anonymous list", policy.MeetingListAll, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"user list", policy.MeetingListAll, user, http.StatusOK, ""},
		{"owner rule passes route check", policy.MeetingUpdate, user, http.StatusOK, ""},
		{"user hard delete", policy.MeetingHardDelete, user, http.StatusForbidden, "FORBIDDEN"},
		{"admin hard delete", policy.MeetingHardDelete, admin, http.StatusOK, ""},
		{"unknown op", policy.Operation("meeting.teleport"), admin, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := Authorize(tt.op)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.identity != nil {
				req = req.WithContext(auth.ContextWithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode == "" {
				return
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header      string
		wantToken   string
		wantPresent bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Token abc", "", true},
		{"Bearer", "", true},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		token, present := extractBearer(req)
		if token != tt.wantToken || present != tt.wantPresent {
			t.Errorf("extractBearer(%q) = (%q, %v), want (%q, %v)",
				tt.header, token, present, tt.wantToken, tt.wantPresent)
		}
	}
}

package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meetly/meetly/internal/auth"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/policy"
)

// TokenParser decodes a bearer token into the caller's identity.
type TokenParser interface {
	Parse(raw string) (*model.Identity, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenParser
}

// Authenticate decodes the bearer token when one is sent and stores the
// identity in the request context. Requests without a usable token continue
// anonymously, so a stale token does not block anonymous routes; Authorize
// rejects them where an identity is required.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, present := extractBearer(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := cfg.Tokens.Parse(raw)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", authFailureReason(raw, err)),
					slog.String("ip", getClientIP(r)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			annotateUser(r.Context(), identity.UserID)
			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize enforces the identity and role part of op's policy rule. Owner
// rules are finished by the service once the resource is loaded.
// Must be applied after Authenticate.
func Authorize(op policy.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := policy.Check(op, auth.IdentityFromContext(r.Context()), "")
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, policy.ErrUnauthenticated):
				writeAuthError(w)
			case errors.Is(err, policy.ErrForbidden):
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			default:
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}
		})
	}
}

// extractBearer returns the token from "Authorization: Bearer <token>".
// present is true whenever the header is set, even if malformed.
func extractBearer(r *http.Request) (token string, present bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

func authFailureReason(raw string, err error) string {
	switch {
	case raw == "":
		return "malformed_header"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	default:
		return "error"
	}
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="meetly"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing bearer token")
}

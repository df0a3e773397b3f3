package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/meetly/meetly/internal/handler"
	"github.com/meetly/meetly/internal/middleware"
	"github.com/meetly/meetly/internal/policy"
)

// IPRateLimit configures the Redis-backed per-IP limit of the anonymous
// join and photo upload routes.
type IPRateLimit struct {
	Enabled bool
	RPS     int
	Burst   int
}

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Logger *slog.Logger

	Health   *handler.HealthHandler
	Metrics  *handler.MetricsHandler
	Auth     *handler.AuthHandler
	Meetings *handler.MeetingHandler
	Files    *handler.FileHandler

	Tokens middleware.TokenParser
	// Limiter backs IPRateLimit. Throttle guards the credential endpoints;
	// nil disables it.
	Limiter     middleware.IPLimiter
	IPRateLimit IPRateLimit
	Throttle    *middleware.Throttle

	CORSAllowedOrigins []string
	IsDevelopment      bool
	// MaxBodySize limits JSON request bodies. Upload routes enforce the
	// storage limit themselves.
	MaxBodySize int64
}

// NewRouter builds the chi router with the middleware chain and every API
// route. Each API route carries its policy operation.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", cfg.Metrics.Metrics)

	jsonBody := middleware.MaxBodySize(cfg.MaxBodySize)
	limitFor := func(bucket string) func(http.Handler) http.Handler {
		return middleware.RateLimitIP(middleware.RateLimitConfig{
			Logger:  cfg.Logger,
			Limiter: cfg.Limiter,
			Enabled: cfg.IPRateLimit.Enabled,
			Bucket:  bucket,
			RPS:     cfg.IPRateLimit.RPS,
			Burst:   cfg.IPRateLimit.Burst,
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(middleware.AuthConfig{
			Logger: cfg.Logger,
			Tokens: cfg.Tokens,
		}))

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.ThrottleIP(cfg.Throttle, cfg.Logger))
			r.Use(jsonBody)

			r.With(middleware.Authorize(policy.AuthRegister)).Post("/register", cfg.Auth.Register)
			r.With(middleware.Authorize(policy.AuthLogin)).Post("/login", cfg.Auth.Login)
		})

		r.Route("/meeting", func(r chi.Router) {
			r.With(middleware.Authorize(policy.MeetingListAll)).Get("/", cfg.Meetings.ListAll)
			r.With(middleware.Authorize(policy.MeetingListMine)).Get("/my-meetings", cfg.Meetings.ListMine)
			r.With(limitFor("join"), middleware.Authorize(policy.MeetingJoin)).Get("/join/{guid}", cfg.Meetings.Join)
			r.With(middleware.Authorize(policy.MeetingGet)).Get("/{id}", cfg.Meetings.Get)
			r.With(middleware.Authorize(policy.MeetingInvitations)).Get("/{id}/invitations", cfg.Meetings.Invitations)

			r.With(jsonBody, middleware.Authorize(policy.MeetingCreate)).Post("/", cfg.Meetings.Create)
			r.With(jsonBody, middleware.Authorize(policy.MeetingUpdate)).Put("/", cfg.Meetings.Update)
			r.With(jsonBody, middleware.Authorize(policy.MeetingInvite)).Post("/invite", cfg.Meetings.Invite)

			r.With(middleware.Authorize(policy.MeetingHardDelete)).Delete("/hard/{id}", cfg.Meetings.HardDelete)
			r.With(middleware.Authorize(policy.MeetingCancel)).Delete("/{id}", cfg.Meetings.Cancel)
		})

		r.Route("/filestorage", func(r chi.Router) {
			r.With(limitFor("upload"), middleware.Authorize(policy.FilePhotoUpload)).Post("/photo-upload", cfg.Files.UploadPhoto)
			r.With(middleware.Authorize(policy.FileDocumentUpload)).Post("/document-upload", cfg.Files.UploadDocument)
			r.With(middleware.Authorize(policy.FileGet)).Get("/get-file", cfg.Files.GetFile)
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

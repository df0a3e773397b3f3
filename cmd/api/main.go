// Package main is the entrypoint for the Meetly API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/meetly/meetly/internal/auth"
	"github.com/meetly/meetly/internal/cache"
	"github.com/meetly/meetly/internal/config"
	"github.com/meetly/meetly/internal/handler"
	"github.com/meetly/meetly/internal/mail"
	"github.com/meetly/meetly/internal/metrics"
	"github.com/meetly/meetly/internal/middleware"
	"github.com/meetly/meetly/internal/repository"
	"github.com/meetly/meetly/internal/server"
	"github.com/meetly/meetly/internal/service"
	"github.com/meetly/meetly/internal/storage"
	"github.com/meetly/meetly/internal/sweep"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if err := repo.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", sanitizeError(err, cfg.DatabaseURL))
		repo.Close()
		os.Exit(1)
	}

	cacheClient, err := cache.New(ctx, cache.Options{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		PoolTimeout:  cfg.RedisPoolTimeout,
		JoinTTL:      cfg.JoinCacheTTL,
		NegativeTTL:  cfg.JoinNegativeTTL,
	})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize file storage", "backend", cfg.StorageBackend, "error", err)
		_ = cacheClient.Close()
		repo.Close()
		os.Exit(1)
	}
	files := storage.NewFiles(store, cfg.MaxUploadSize)

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTLifetime)
	dispatcher := mail.NewDispatcher(newSender(cfg, logger), cfg.SMTPSenderName, cfg.SMTPSenderEmail, logger)

	accounts := service.NewAccountService(repo, tokens, dispatcher, recorder, logger)
	meetings := service.NewMeetingService(
		repo,
		cacheClient,
		dispatcher,
		repository.NewInvitationLog(repo.DB()),
		cfg.BaseDomain,
		recorder,
		logger,
	)

	router := server.NewRouter(server.RouterConfig{
		Logger: logger,
		Health: handler.NewHealthHandler(
			handler.Dependency{Name: "postgres", Checker: repo},
			handler.Dependency{Name: "redis", Checker: cacheClient},
		),
		Metrics:  handler.NewMetricsHandler(recorder),
		Auth:     handler.NewAuthHandler(accounts, logger),
		Meetings: handler.NewMeetingHandler(meetings, logger),
		Files:    handler.NewFileHandler(files, logger),
		Tokens:   tokens,
		Limiter:  cacheClient,
		IPRateLimit: server.IPRateLimit{
			Enabled: cfg.RateLimitIPEnabled,
			RPS:     cfg.RateLimitIPRPS,
			Burst:   cfg.RateLimitIPBurst,
		},
		Throttle:           newThrottle(cfg),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		IsDevelopment:      cfg.IsDevelopment(),
		MaxBodySize:        cfg.MaxRequestBodySize,
	})

	srv := server.New(
		router,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Registered first so they close last.
	srv.OnShutdown("database", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	if cfg.SweepEnabled {
		loc, _ := cfg.SweepLocation() // validated by config.Load
		sweeper := sweep.New(repo, cacheClient, logger, recorder, sweep.WithSchedule(cfg.SweepHour, loc))
		go func() {
			if err := sweeper.Run(ctx); err != nil {
				logger.Error("sweeper stopped", "error", err)
			}
		}()
		srv.OnShutdown("sweeper", sweeper.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_domain", cfg.BaseDomain,
		"env", cfg.AppEnv,
		"mail_transport", cfg.MailTransport,
		"storage_backend", cfg.StorageBackend,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case config.StorageBackendLocal:
		return storage.NewLocalStore(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newSender(cfg *config.Config, logger *slog.Logger) mail.Sender {
	switch cfg.MailTransport {
	case config.MailTransportSMTP:
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			ImplicitTLS: cfg.SMTPEnableSSL,
		})
	case config.MailTransportResend:
		return mail.NewResendSender(cfg.ResendAPIKey, "", nil)
	default:
		return mail.NewLogSender(logger)
	}
}

func newThrottle(cfg *config.Config) *middleware.Throttle {
	if !cfg.RateLimitAuthEnabled {
		return nil
	}
	return middleware.NewThrottle(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst)
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

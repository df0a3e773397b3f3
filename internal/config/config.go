// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Mail transports.
const (
	MailTransportLog    = "log"
	MailTransportSMTP   = "smtp"
	MailTransportResend = "resend"
)

// Storage backends.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

const minProductionSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL          string        `env:"REDIS_URL,required"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisPoolTimeout  time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`
	JoinCacheTTL      time.Duration `env:"JOIN_CACHE_TTL" envDefault:"1h"`
	JoinNegativeTTL   time.Duration `env:"JOIN_NEGATIVE_TTL" envDefault:"5m"`

	// Public domain used to build join links (e.g., https://meet.example.com)
	BaseDomain string `env:"BASE_DOMAIN" envDefault:"http://localhost:4200"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Bearer tokens
	JWTSecret   string        `env:"JWT_SECRET,required"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"meetly"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"meetly-clients"`
	JWTLifetime time.Duration `env:"JWT_LIFETIME" envDefault:"60m"`

	// Outbound mail
	MailTransport   string `env:"MAIL_TRANSPORT" envDefault:"log"`
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername    string `env:"SMTP_USERNAME"`
	SMTPPassword    string `env:"SMTP_PASSWORD"`
	SMTPEnableSSL   bool   `env:"SMTP_ENABLE_SSL" envDefault:"false"`
	SMTPSenderEmail string `env:"SMTP_SENDER_EMAIL" envDefault:"no-reply@meetly.local"`
	SMTPSenderName  string `env:"SMTP_SENDER_NAME" envDefault:"Meetly"`
	ResendAPIKey    string `env:"RESEND_API_KEY"`

	// File storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"local"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"."`
	MaxUploadSize  int64  `env:"MAX_UPLOAD_SIZE" envDefault:"5000000"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`

	// Canceled meeting sweep
	SweepEnabled  bool   `env:"SWEEP_ENABLED" envDefault:"true"`
	SweepHour     int    `env:"SWEEP_HOUR" envDefault:"3"`
	SweepTimezone string `env:"SWEEP_TIMEZONE" envDefault:"Local"`

	// Rate limiting
	RateLimitAuthEnabled bool    `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthRPS     float64 `env:"RATE_LIMIT_AUTH_RPS" envDefault:"1"`
	RateLimitAuthBurst   int     `env:"RATE_LIMIT_AUTH_BURST" envDefault:"5"`
	RateLimitIPEnabled   bool    `env:"RATE_LIMIT_IP_ENABLED" envDefault:"true"`
	RateLimitIPRPS       int     `env:"RATE_LIMIT_IP_RPS" envDefault:"20"`
	RateLimitIPBurst     int     `env:"RATE_LIMIT_IP_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes for JSON endpoints (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// SweepLocation resolves the time zone the sweep hour is interpreted in.
func (c *Config) SweepLocation() (*time.Location, error) {
	if c.SweepTimezone == "" || c.SweepTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.SweepTimezone)
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.MailTransport {
	case MailTransportLog:
	case MailTransportSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for smtp transport"))
		}
	case MailTransportResend:
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required for resend transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_TRANSPORT %q", c.MailTransport))
	}

	switch c.StorageBackend {
	case StorageBackendLocal:
	case StorageBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.RedisPoolSize <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_POOL_SIZE must be positive, got %d", c.RedisPoolSize))
	}
	if c.RedisMinIdleConns < 0 || c.RedisMinIdleConns > c.RedisPoolSize {
		errs = append(errs, fmt.Errorf("REDIS_MIN_IDLE_CONNS must be within 0-%d, got %d", c.RedisPoolSize, c.RedisMinIdleConns))
	}

	if c.SweepHour < 0 || c.SweepHour > 23 {
		errs = append(errs, fmt.Errorf("SWEEP_HOUR must be within 0-23, got %d", c.SweepHour))
	}
	if _, err := c.SweepLocation(); err != nil {
		errs = append(errs, fmt.Errorf("invalid SWEEP_TIMEZONE: %w", err))
	}

	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLength))
	}

	return errors.Join(errs...)
}

// Load reads an optional .env file, parses environment variables and
// validates the result. Returns an error if required variables are missing.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

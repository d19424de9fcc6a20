// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset outside production.
// It is public and must never protect real data.
const DevJWTSecret = "postboard-development-secret"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Persistence. In-memory mode needs no external store.
	UseInMemoryDB bool   `env:"USE_INMEMORY_DB" envDefault:"false"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"postboard"`
	DatabaseURL   string `env:"DATABASE_URL"`

	// Cache (Redis). Optional; enables the post cache and rate limiting.
	RedisURL     string        `env:"REDIS_URL"`
	PostCacheTTL time.Duration `env:"POST_CACHE_TTL" envDefault:"10m"`

	// Identity tokens and password hashing
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTTTL         time.Duration `env:"JWT_TTL" envDefault:"1h"`
	PasswordHasher string        `env:"PASSWORD_HASHER" envDefault:"bcrypt"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (requires REDIS_URL)
	RateLimitCallerEnabled bool `env:"RATE_LIMIT_CALLER_ENABLED" envDefault:"true"`
	RateLimitCallerRPM     int  `env:"RATE_LIMIT_CALLER_RPM" envDefault:"60"`
	RateLimitCallerBurst   int  `env:"RATE_LIMIT_CALLER_BURST" envDefault:"10"`
	RateLimitIPEnabled     bool `env:"RATE_LIMIT_IP_ENABLED" envDefault:"true"`
	RateLimitIPRPS         int  `env:"RATE_LIMIT_IP_RPS" envDefault:"20"`
	RateLimitIPBurst       int  `env:"RATE_LIMIT_IP_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	devSecret bool
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsingDevSecret reports whether Validate fell back to DevJWTSecret.
func (c *Config) UsingDevSecret() bool {
	return c.devSecret
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

// SlogLevel converts LOG_LEVEL to a slog.Level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// Validate checks cross-field constraints and applies the development
// signing secret when JWT_SECRET is unset outside production.
func (c *Config) Validate() error {
	var errs []error

	if c.AppPort < 1 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT %d out of range", c.AppPort))
	}

	if !c.UseInMemoryDB {
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required unless USE_INMEMORY_DB is set"))
		}
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required unless USE_INMEMORY_DB is set"))
		}
	}

	switch c.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASHER %q must be bcrypt or argon2id", c.PasswordHasher))
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.LogFormat))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive, got %d", c.MaxRequestBodySize))
	}
	if c.RateLimitCallerRPM < 0 || c.RateLimitCallerBurst < 0 || c.RateLimitIPRPS < 0 || c.RateLimitIPBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.JWTSecret = DevJWTSecret
			c.devSecret = true
		}
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

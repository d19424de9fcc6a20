// Package main is the entrypoint for the postboard API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/cache"
	"github.com/postboard/postboard/internal/config"
	"github.com/postboard/postboard/internal/handler"
	"github.com/postboard/postboard/internal/metrics"
	"github.com/postboard/postboard/internal/middleware"
	"github.com/postboard/postboard/internal/repository"
	"github.com/postboard/postboard/internal/server"
	"github.com/postboard/postboard/internal/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// stores groups the persistence backends selected at boot.
type stores struct {
	posts  repository.PostRepository
	users  repository.UserStore
	checks []handler.Check
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.UsingDevSecret() {
		logger.Warn("JWT_SECRET not set; signing tokens with the public development secret")
	}

	hasher, err := auth.NewHasher(cfg.PasswordHasher)
	if err != nil {
		return err
	}
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	recorder := metrics.NewInMemory()

	srv := server.New(nil, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	st, err := openStores(ctx, cfg, logger, srv)
	if err != nil {
		return errorsWithShutdown(err, srv)
	}

	// Redis is optional: without it there is no post cache and no rate limiting.
	var postCache service.PostCache
	var limiter middleware.RateLimiter
	var redisCheck handler.HealthChecker
	if cfg.RedisURL != "" {
		cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.WithPostTTL(cfg.PostCacheTTL))
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return errorsWithShutdown(err, srv)
		}
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
		logger.Info("connected to Redis", slog.String("redis_url", redactURL(cfg.RedisURL)))

		postCache = cacheClient
		limiter = cacheClient
		redisCheck = cacheClient
	} else {
		logger.Info("REDIS_URL not set; post cache and rate limiting disabled")
	}

	authService := service.NewAuthService(st.users, hasher, tokens, recorder)
	postService := service.NewPostService(st.posts, postCache, logger, recorder)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := server.NewRouter(server.Deps{
		Logger:       logger,
		Metrics:      recorder,
		Snapshotter:  recorder,
		Version:      version,
		Auth:         authService,
		Posts:        postService,
		Tokens:       tokens,
		HealthChecks: append(st.checks, handler.Check{Name: "redis", Checker: redisCheck}),
		Limiter:      limiter,
		RateLimit: middleware.RateLimitConfig{
			CallerEnabled: cfg.RateLimitCallerEnabled,
			CallerRPM:     cfg.RateLimitCallerRPM,
			CallerBurst:   cfg.RateLimitCallerBurst,
			IPEnabled:     cfg.RateLimitIPEnabled,
			IPRPS:         cfg.RateLimitIPRPS,
			IPBurst:       cfg.RateLimitIPBurst,
		},
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:        corsCfg,
		MaxBodySize: cfg.MaxRequestBodySize,
	})
	srv.SetHandler(router)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"in_memory", cfg.UseInMemoryDB,
		"password_hasher", cfg.PasswordHasher,
	)

	return srv.Run(ctx)
}

// openStores selects the persistence backends. Service code never learns
// which one it got.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, srv *server.Server) (*stores, error) {
	if cfg.UseInMemoryDB {
		posts := repository.NewMemoryPostRepository()
		users := repository.NewMemoryUserStore()
		logger.Warn("using in-memory stores; data is lost on restart")
		return &stores{
			posts: posts,
			users: users,
			checks: []handler.Check{
				{Name: "posts", Checker: posts},
				{Name: "users", Checker: users},
			},
		}, nil
	}

	mongoClient, err := repository.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error(
			"failed to connect to MongoDB",
			slog.String("error", sanitizeError(err, cfg.MongoURI)),
			slog.String("mongo_uri", redactURL(cfg.MongoURI)),
		)
		return nil, err
	}
	srv.OnShutdown("mongo", mongoClient.Disconnect)
	logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

	posts := repository.NewMongoPostRepository(mongoClient.Database(cfg.MongoDatabase))
	if err := posts.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure post indexes: %w", err)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, err
	}
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	logger.Info("connected to database")

	return &stores{
		posts: posts,
		users: repo,
		checks: []handler.Check{
			{Name: "mongo", Checker: posts},
			{Name: "postgres", Checker: repo},
		},
	}, nil
}

// errorsWithShutdown closes whatever was opened before a boot failure.
func errorsWithShutdown(err error, srv *server.Server) error {
	if shutdownErr := srv.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("%w (shutdown: %v)", err, shutdownErr)
	}
	return err
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "postboard")
	slog.SetDefault(logger)

	return logger
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips the password from a connection URL.
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

// sanitizeError removes connection secrets from driver error messages.
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

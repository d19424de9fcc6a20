package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/postboard/postboard/internal/handler"
	"github.com/postboard/postboard/internal/metrics"
	"github.com/postboard/postboard/internal/middleware"
	"github.com/postboard/postboard/internal/service"
)

// Deps carries everything the router needs. Limiter may be nil, which
// disables rate limiting.
type Deps struct {
	Logger      *slog.Logger
	Metrics     metrics.Recorder
	Snapshotter metrics.Snapshotter
	Version     string

	Auth   *service.AuthService
	Posts  *service.PostService
	Tokens middleware.TokenVerifier

	HealthChecks []handler.Check
	Limiter      middleware.RateLimiter
	RateLimit    middleware.RateLimitConfig

	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
// The resource routes are served both at the root and under /api.
func NewRouter(d Deps) *chi.Mux {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}

	h := handler.New(d.Version)
	healthHandler := handler.NewHealthHandler(d.HealthChecks...)
	metricsHandler := handler.NewMetricsHandler(d.Snapshotter)
	authHandler := handler.NewAuthHandler(d.Auth, d.Logger)
	postHandler := handler.NewPostHandler(d.Posts, d.Logger)

	authCfg := middleware.AuthConfig{
		Logger: d.Logger,
		Tokens: d.Tokens,
	}

	rateLimitCfg := d.RateLimit
	rateLimitCfg.Logger = d.Logger
	rateLimitCfg.Limiter = d.Limiter
	rateLimitCfg.Metrics = d.Metrics

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Security(d.Security))
	r.Use(middleware.CORS(d.CORS))
	if d.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(d.MaxBodySize))
	}
	r.Use(middleware.RateLimitIP(rateLimitCfg))

	// Operational endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Index)

	requireCaller := chi.Chain(middleware.Auth(authCfg), middleware.RateLimitCaller(rateLimitCfg))

	resources := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.List)
			r.Get("/{id}", postHandler.Get)
			r.With(requireCaller...).Post("/", postHandler.Create)
			r.With(requireCaller...).Put("/{id}", postHandler.Update)
			r.With(requireCaller...).Delete("/{id}", postHandler.Delete)
		})
	}

	resources(r)
	r.Route("/api", resources)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

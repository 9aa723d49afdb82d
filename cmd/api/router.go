package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/passvault/passvault/internal/config"
	"github.com/passvault/passvault/internal/handler"
	"github.com/passvault/passvault/internal/metrics"
	"github.com/passvault/passvault/internal/middleware"
	"github.com/passvault/passvault/internal/session"
	"github.com/passvault/passvault/internal/vault"
)

type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *session.Manager
	vault    *vault.Service
	// limiter is nil when Redis is not configured.
	limiter middleware.LoginLimiter
	health  *handler.HealthHandler
	metrics *metrics.InMemoryRecorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	cfg := d.cfg

	h := handler.New()
	authHandler := handler.NewAuthHandler(d.sessions, d.logger, handler.CookieConfig{
		Name:   cfg.SessionCookieName,
		Secure: !cfg.IsDevelopment(),
	})
	entryHandler := handler.NewEntryHandler(d.vault, d.logger)
	passwordHandler := handler.NewPasswordHandler(d.logger)
	metricsHandler := handler.NewMetricsHandler(d.metrics)

	r := chi.NewRouter()

	// Global middleware
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(origins)))
	}
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Probes and metrics (no session required)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Index)

	rateLimit := middleware.RateLimitLogin(middleware.RateLimitConfig{
		Logger:    d.logger,
		Limiter:   d.limiter,
		Enabled:   cfg.RateLimitLoginEnabled,
		PerMinute: cfg.RateLimitLoginPerMinute,
		Burst:     cfg.RateLimitLoginBurst,
		Metrics:   d.metrics,
	})
	requireSession := middleware.RequireSession(middleware.SessionConfig{
		Logger:     d.logger,
		Sessions:   d.sessions,
		CookieName: cfg.SessionCookieName,
	})

	r.Route("/api", func(r chi.Router) {
		// Account actions authenticate from the token themselves.
		r.Route("/auth", func(r chi.Router) {
			r.Get("/check", authHandler.Check)
			r.With(rateLimit).Post("/register", authHandler.Register)
			r.With(rateLimit).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Post("/profile", authHandler.UpdateProfile)
		})

		r.Get("/generate-password", passwordHandler.Generate)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Route("/entries", func(r chi.Router) {
				r.Get("/", entryHandler.List)
				r.Post("/", entryHandler.Create)
				r.Get("/{id}", entryHandler.Get)
				r.Put("/{id}", entryHandler.Update)
				r.Delete("/{id}", entryHandler.Delete)
			})
			r.Get("/categories", entryHandler.Categories)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// Package main is the entrypoint for the PassVault API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/passvault/passvault/internal/cache"
	"github.com/passvault/passvault/internal/config"
	"github.com/passvault/passvault/internal/encryption"
	"github.com/passvault/passvault/internal/handler"
	"github.com/passvault/passvault/internal/metrics"
	"github.com/passvault/passvault/internal/middleware"
	"github.com/passvault/passvault/internal/repository"
	"github.com/passvault/passvault/internal/server"
	"github.com/passvault/passvault/internal/session"
	"github.com/passvault/passvault/internal/vault"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.MigrateOnStart {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("database schema up to date")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	crypto, err := encryption.New(cfg.EncryptionMethod, cfg.EncryptionKey, cfg.BcryptCost)
	if err != nil {
		logger.Error("invalid encryption settings", slog.String("error", err.Error()))
		repo.Close()
		os.Exit(1)
	}
	cfg.EncryptionKey = ""

	// Sessions and login throttling live in Redis when it is configured.
	// Interface-typed so an absent cache stays a true nil.
	var (
		sessionStore session.Store
		limiter      middleware.LoginLimiter
		cacheHealth  handler.HealthChecker
		cacheClient  *cache.Cache
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.Options{
			PoolSize:  cfg.RedisPoolSize,
			KeyPrefix: cfg.RedisKeyPrefix,
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
		sessionStore = cache.NewSessionStore(cacheClient, cfg.SessionTimeout)
		limiter = cacheClient
		cacheHealth = cacheClient
	} else {
		logger.Warn("REDIS_URL not set; sessions are kept in memory and login rate limiting is off")
		sessionStore = session.NewMemoryStore()
	}

	recorder := metrics.NewInMemory()

	mgr := session.NewManager(repo, sessionStore, crypto, session.Options{
		Timeout: cfg.SessionTimeout,
		Logger:  logger,
		Metrics: recorder,
	})
	vaultSvc := vault.NewService(repo, crypto, nil, logger, recorder)

	r := setupRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		sessions: mgr,
		vault:    vaultSvc,
		limiter:  limiter,
		health:   handler.NewHealthHandler(repo, cacheHealth),
		metrics:  recorder,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"encryption_method", crypto.Method(),
		"session_timeout", cfg.SessionTimeout.String(),
		"session_store", sessionStoreName(cacheClient),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func sessionStoreName(c *cache.Cache) string {
	if c == nil {
		return "memory"
	}
	return "redis"
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

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

// sanitizeError removes connection secrets from driver errors.
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

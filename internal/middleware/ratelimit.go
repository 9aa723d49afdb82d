package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/passvault/passvault/internal/cache"
	"github.com/passvault/passvault/internal/metrics"
)

// LoginLimiter consumes one credential attempt for a client IP.
type LoginLimiter interface {
	CheckLoginRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) *cache.RateLimitResult
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter LoginLimiter
	Enabled bool
	// Attempts per minute per client IP, and the bucket size.
	PerMinute int
	Burst     int
	Metrics   metrics.Recorder
}

// RateLimitLogin limits credential endpoints (login, register) per
// client IP. Limiting is skipped when disabled or no limiter is set.
func RateLimitLogin(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			result := cfg.Limiter.CheckLoginRateLimit(r.Context(), ip, cfg.PerMinute, cfg.Burst)

			setRateLimitHeaders(w, cfg.PerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Metrics.IncLogin(metrics.LoginRateLimited)
				cfg.Logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("type", "login"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	writeError(w, http.StatusTooManyRequests,
		fmt.Sprintf("Too many attempts. Retry after %d seconds.", int(retryAfter.Seconds())))
}

// getClientIP returns the host part of RemoteAddr. Forwarding headers are
// honoured only through the RealIP middleware, which rewrites RemoteAddr
// when the server is configured to trust its proxy.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

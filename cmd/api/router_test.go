package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/passvault/passvault/internal/cache"
	"github.com/passvault/passvault/internal/config"
	"github.com/passvault/passvault/internal/encryption"
	"github.com/passvault/passvault/internal/handler"
	"github.com/passvault/passvault/internal/metrics"
	"github.com/passvault/passvault/internal/middleware"
	"github.com/passvault/passvault/internal/session"
	"github.com/passvault/passvault/internal/testutil"
	"github.com/passvault/passvault/internal/vault"
)

type recordingLimiter struct {
	ips []string
}

func (l *recordingLimiter) CheckLoginRateLimit(_ context.Context, ip string, perMinute, burst int) *cache.RateLimitResult {
	l.ips = append(l.ips, ip)
	return &cache.RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now().Add(time.Minute)}
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "production",
		SessionTimeout:          30 * time.Minute,
		SessionCookieName:       "passvault_session",
		RateLimitLoginEnabled:   true,
		RateLimitLoginPerMinute: 10,
		RateLimitLoginBurst:     5,
		MaxRequestBodySize:      1 << 20,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, limiter middleware.LoginLimiter) http.Handler {
	t.Helper()

	crypto, err := encryption.New(encryption.DefaultMethod, "router-test-key", 4)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	mgr := session.NewManager(testutil.NewMemoryUserStore(), session.NewMemoryStore(), crypto, session.Options{
		Timeout: cfg.SessionTimeout,
		Logger:  logger,
		Metrics: recorder,
	})

	return setupRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		sessions: mgr,
		vault:    vault.NewService(testutil.NewMemoryEntryStore(), crypto, nil, logger, recorder),
		limiter:  limiter,
		health:   handler.NewHealthHandler(nil, nil),
		metrics:  recorder,
	})
}

func send(t *testing.T, h http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "198.51.100.7:40000"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_SessionFlow(t *testing.T) {
	h := newTestRouter(t, testConfig(), nil)

	rec := send(t, h, http.MethodPost, "/api/auth/register", map[string]string{
		"username":        "olivia",
		"email":           "olivia@example.com",
		"password":        "password123",
		"confirmPassword": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "passvault_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.Secure, "production cookies are Secure")

	rec = send(t, h, http.MethodPost, "/api/entries", map[string]string{
		"title": "VPN", "password": "tunnel", "category": "work",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(t, h, http.MethodGet, "/api/entries?category=work", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"password":"tunnel"`)

	rec = send(t, h, http.MethodGet, "/api/categories", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":1`)

	rec = send(t, h, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, h, http.MethodGet, "/api/entries", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"requireAuth":true`)
}

func TestRouter_GlobalMiddleware(t *testing.T) {
	h := newTestRouter(t, testConfig(), nil)

	rec := send(t, h, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))

	rec = send(t, h, http.MethodGet, "/api/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)

	rec = send(t, h, http.MethodDelete, "/api/categories", nil, nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = send(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "passvault_registrations_total"))
}

func TestRouter_RateLimitOnlyOnCredentialEndpoints(t *testing.T) {
	limiter := &recordingLimiter{}
	h := newTestRouter(t, testConfig(), limiter)

	send(t, h, http.MethodPost, "/api/auth/login", map[string]string{"identifier": "x", "password": "y"}, nil)
	send(t, h, http.MethodPost, "/api/auth/register", map[string]string{}, nil)
	send(t, h, http.MethodGet, "/api/auth/check", nil, nil)
	send(t, h, http.MethodGet, "/api/generate-password", nil, nil)

	require.Equal(t, []string{"198.51.100.7", "198.51.100.7"}, limiter.ips)
}

func TestRouter_TrustProxy(t *testing.T) {
	for _, trust := range []bool{false, true} {
		cfg := testConfig()
		cfg.TrustProxy = trust
		limiter := &recordingLimiter{}
		h := newTestRouter(t, cfg, limiter)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "10.0.0.2:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113.50")
		h.ServeHTTP(httptest.NewRecorder(), req)

		want := "10.0.0.2"
		if trust {
			want = "203.0.113.50"
		}
		require.Equal(t, []string{want}, limiter.ips, "trust proxy = %v", trust)
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBodySize = 64
	h := newTestRouter(t, cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(strings.Repeat("x", 200)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

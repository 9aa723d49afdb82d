package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/passvault/passvault/internal/auth"
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/session"
)

// Authenticator resolves a session token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger     *slog.Logger
	Sessions   Authenticator
	CookieName string
}

// RequireSession rejects requests without a live session. The session
// and its token are stored in the request context for handlers.
func RequireSession(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r, cfg.CookieName)
			if token == "" {
				logAuthFailure(r, cfg.Logger, "missing_token")
				writeAuthRequired(w)
				return
			}

			sess, err := cfg.Sessions.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, session.ErrSessionExpired):
					logAuthFailure(r, cfg.Logger, "expired")
					writeAuthRequired(w)
				case errors.Is(err, session.ErrNotAuthenticated):
					logAuthFailure(r, cfg.Logger, "invalid_session")
					writeAuthRequired(w)
				default:
					cfg.Logger.ErrorContext(r.Context(), "session lookup failed",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.Any("error", err),
					)
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
				return
			}

			annotateRequestLog(r.Context(), sess.UserID, sess.ID)
			ctx := auth.ContextWithSession(r.Context(), sess, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logAuthFailure(r *http.Request, logger *slog.Logger, reason string) {
	logger.WarnContext(r.Context(), "authentication failed",
		slog.String("reason", reason),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

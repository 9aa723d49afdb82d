package auth

import (
	"context"

	"github.com/passvault/passvault/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionContextKey contextKey = "session"
	tokenContextKey   contextKey = "session_token"
)

// ContextWithSession stores the authenticated session and the token it
// was loaded with.
func ContextWithSession(ctx context.Context, sess *model.Session, token string) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, sess)
	return context.WithValue(ctx, tokenContextKey, token)
}

// SessionFromContext returns nil if no session middleware ran.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok {
		return nil
	}
	return sess
}

// MustSessionFromContext panics if the session middleware is missing
// from the route.
func MustSessionFromContext(ctx context.Context) *model.Session {
	sess := SessionFromContext(ctx)
	if sess == nil {
		panic("session not found in context - ensure session middleware is applied")
	}
	return sess
}

// UserIDFromContext returns 0 when unauthenticated.
func UserIDFromContext(ctx context.Context) int64 {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return 0
	}
	return sess.UserID
}

// TokenFromContext returns the raw session token, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

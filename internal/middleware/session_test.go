package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/passvault/passvault/internal/auth"
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/session"
)

const testCookie = "passvault_session"

type fakeAuthenticator struct {
	sessions map[string]*model.Session
	err      error
	calls    int
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*model.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	sess, ok := f.sessions[token]
	if !ok {
		return nil, session.ErrNotAuthenticated
	}
	return sess, nil
}

func newSessionHandler(authn Authenticator) (http.Handler, *[]*model.Session) {
	var seen []*model.Session
	h := RequireSession(SessionConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sessions:   authn,
		CookieName: testCookie,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, auth.SessionFromContext(r.Context()))
		if auth.TokenFromContext(r.Context()) == "" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	live := &model.Session{ID: "sess-1", UserID: 7, Username: "alice", Authenticated: true}

	tests := []struct {
		name       string
		authErr    error
		setup      func(r *http.Request)
		wantStatus int
		wantUser   int64
	}{
		{
			name:       "no credentials",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "cookie token",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: testCookie, Value: "good"})
			},
			wantStatus: http.StatusOK,
			wantUser:   7,
		},
		{
			name: "bearer token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer good")
			},
			wantStatus: http.StatusOK,
			wantUser:   7,
		},
		{
			name: "unknown token",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: testCookie, Value: "stale"})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "expired session",
			authErr: session.ErrSessionExpired,
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: testCookie, Value: "good"})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "store failure",
			authErr: errors.New("redis: connection refused"),
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: testCookie, Value: "good"})
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			authn := &fakeAuthenticator{
				sessions: map[string]*model.Session{"good": live},
				err:      tt.authErr,
			}
			h, seen := newSessionHandler(authn)

			req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if len(*seen) != 0 {
					t.Error("handler ran for a rejected request")
				}
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}
				return
			}
			if len(*seen) != 1 || (*seen)[0].UserID != tt.wantUser {
				t.Errorf("context session = %+v, want user %d", *seen, tt.wantUser)
			}
		})
	}
}

func TestRequireSession_UnauthorizedBody(t *testing.T) {
	t.Parallel()

	h, _ := newSessionHandler(&fakeAuthenticator{err: session.ErrSessionExpired})

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "whatever"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{`"success":false`, `"message":"Not authenticated"`, `"requireAuth":true`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
	// Expired and invalid sessions look identical to the client.
	if strings.Contains(strings.ToLower(body), "expired") {
		t.Errorf("body reveals rejection reason: %s", body)
	}
}

func TestRequireSession_SkipsLookupWithoutToken(t *testing.T) {
	t.Parallel()

	authn := &fakeAuthenticator{}
	h, _ := newSessionHandler(authn)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entries", nil))

	if authn.calls != 0 {
		t.Errorf("Authenticate called %d times for a request without a token", authn.calls)
	}
}

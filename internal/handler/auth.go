package handler

import (
	"log/slog"
	"net/http"

	"github.com/passvault/passvault/internal/auth"
	"github.com/passvault/passvault/internal/handler/dto"
	"github.com/passvault/passvault/internal/session"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "passvault_session"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name string
	// Secure marks the cookie HTTPS-only. Off in development.
	Secure bool
}

// AuthHandler handles account and session actions.
type AuthHandler struct {
	mgr    *session.Manager
	logger *slog.Logger
	cookie CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(mgr *session.Manager, logger *slog.Logger, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	return &AuthHandler{
		mgr:    mgr,
		logger: logger,
		cookie: cookie,
	}
}

// Check handles GET /api/auth/check.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r, h.cookie.Name)

	user, err := h.mgr.CurrentUser(r.Context(), token)
	if err != nil {
		h.internalError(w, r, "check auth", err, "Internal server error")
		return
	}
	if user == nil && token != "" {
		h.clearSessionCookie(w)
	}

	writeJSON(w, http.StatusOK, dto.CheckAuthResponse{
		Success:         true,
		IsAuthenticated: user != nil,
		User:            user,
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeMessage(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	res, err := h.mgr.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.internalError(w, r, "register", err, "Registration failed. Please try again.")
		return
	}
	if res.Success {
		h.setSessionCookie(w, res.Token)
	}
	h.writeResult(w, res, http.StatusCreated, http.StatusBadRequest)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.mgr.Login(r.Context(), req.LoginIdentifier(), req.Password)
	if err != nil {
		h.internalError(w, r, "login", err, "Login failed. Please try again.")
		return
	}
	if res.Success {
		h.setSessionCookie(w, res.Token)
	}
	h.writeResult(w, res, http.StatusOK, http.StatusUnauthorized)
}

// Logout handles POST /api/auth/logout. The cookie is expired even when
// the session could not be deleted.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)

	if err := h.mgr.Logout(r.Context(), auth.TokenFromRequest(r, h.cookie.Name)); err != nil {
		h.internalError(w, r, "logout", err, "Logout failed")
		return
	}
	writeMessage(w, http.StatusOK, session.MsgLoggedOut)
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token := auth.TokenFromRequest(r, h.cookie.Name)
	res, err := h.mgr.ChangePassword(r.Context(), token, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.internalError(w, r, "change password", err, "Failed to change password")
		return
	}
	h.writeResult(w, res, http.StatusOK, http.StatusBadRequest)
}

// UpdateProfile handles POST /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token := auth.TokenFromRequest(r, h.cookie.Name)
	res, err := h.mgr.UpdateProfile(r.Context(), token, req.Username, req.Email)
	if err != nil {
		h.internalError(w, r, "update profile", err, "Failed to update profile")
		return
	}
	h.writeResult(w, res, http.StatusOK, http.StatusBadRequest)
}

// writeResult maps a session result to a status code. Conflicts and
// missing sessions get their own codes; other failures use failStatus.
func (h *AuthHandler) writeResult(w http.ResponseWriter, res *session.Result, okStatus, failStatus int) {
	status := okStatus
	if !res.Success {
		switch {
		case res.RequireAuth:
			status = http.StatusUnauthorized
		case res.Message == session.MsgUsernameTaken,
			res.Message == session.MsgEmailRegistered,
			res.Message == session.MsgEmailInUse:
			status = http.StatusConflict
		default:
			status = failStatus
		}
	}
	writeJSON(w, status, dto.ToAuthResponse(res))
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error, msg string) {
	h.logger.ErrorContext(r.Context(), op+" failed",
		slog.Any("error", err),
	)
	writeMessage(w, http.StatusInternalServerError, msg)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

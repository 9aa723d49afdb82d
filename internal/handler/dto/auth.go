// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/session"
)

// RegisterRequest represents the request body for creating an account.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest accepts the account identifier as "identifier" or, for
// older clients, "email".
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// LoginIdentifier returns the username or email to log in with.
func (r LoginRequest) LoginIdentifier() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return r.Email
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileRequest represents the request body for a profile update.
type ProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// MessageResponse is the envelope every action shares.
type MessageResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequireAuth bool   `json:"requireAuth,omitempty"`
}

// AuthResponse is returned by the account actions.
type AuthResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	RequireAuth bool            `json:"requireAuth,omitempty"`
	User        *model.UserInfo `json:"user,omitempty"`
	Token       string          `json:"token,omitempty"`
}

// CheckAuthResponse reports whether the caller holds a live session.
// User is null for anonymous callers.
type CheckAuthResponse struct {
	Success         bool            `json:"success"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            *model.UserInfo `json:"user"`
}

// ToAuthResponse converts a session result to its wire form.
func ToAuthResponse(res *session.Result) *AuthResponse {
	return &AuthResponse{
		Success:     res.Success,
		Message:     res.Message,
		RequireAuth: res.RequireAuth,
		User:        res.User,
		Token:       res.Token,
	}
}

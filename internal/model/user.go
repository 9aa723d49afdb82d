// Package model defines domain entities for the application.
package model

import "time"

// User is an account holder. PasswordHash is never serialised.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// UserInfo is the public view of a user returned to clients.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Info returns the public view of u.
func (u *User) Info() *UserInfo {
	return &UserInfo{ID: u.ID, Username: u.Username, Email: u.Email}
}

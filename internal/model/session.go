package model

import "time"

// Session is the server-side state bound to an opaque session token.
// It is stored as JSON, so field tags are part of the storage format.
type Session struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Authenticated bool      `json:"authenticated"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
}

// Expired reports whether more than timeout has elapsed since the last
// authenticated activity.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Info returns the user identity carried by the session.
func (s *Session) Info() *UserInfo {
	return &UserInfo{ID: s.UserID, Username: s.Username, Email: s.Email}
}

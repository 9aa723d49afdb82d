package session

import (
	"net/mail"
	"strings"

	"github.com/passvault/passvault/internal/encryption"
)

// Client-facing messages. These strings are part of the API contract.
const (
	MsgAccountCreated      = "Account created successfully"
	MsgLoginSuccessful     = "Login successful"
	MsgLoggedOut           = "Logged out successfully"
	MsgPasswordChanged     = "Password changed successfully"
	MsgProfileUpdated      = "Profile updated successfully"
	MsgUsernameLength      = "Username must be 3-50 characters"
	MsgUsernameCharset     = "Username can only contain letters, numbers, and underscores"
	MsgInvalidEmail        = "Invalid email address"
	MsgPasswordTooShort    = "Password must be at least 8 characters"
	MsgPasswordTooLong     = "Password must be at most 72 characters"
	MsgNewPasswordTooShort = "New password must be at least 8 characters"
	MsgNewPasswordTooLong  = "New password must be at most 72 characters"
	MsgUsernameTaken       = "Username already taken"
	MsgEmailRegistered     = "Email already registered"
	MsgEmailInUse          = "Email already in use"
	MsgInvalidCredentials  = "Invalid credentials"
	MsgNotAuthenticated    = "Not authenticated"
	MsgCurrentPasswordBad  = "Current password is incorrect"
	MsgUserNotFound        = "User not found"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
	maxEmailLen    = 254
)

// validateUsername returns a client message, or "" if username is valid.
func validateUsername(username string) string {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return MsgUsernameLength
	}
	for i := 0; i < len(username); i++ {
		c := username[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum && c != '_' {
			return MsgUsernameCharset
		}
	}
	return ""
}

// validatePassword checks length in bytes against the bcrypt limits.
func validatePassword(password, tooShort, tooLong string) string {
	if len(password) < minPasswordLen {
		return tooShort
	}
	if len(password) > encryption.MaxPasswordBytes {
		return tooLong
	}
	return ""
}

// isValidEmail accepts a bare addr-spec with a dotted domain. Display
// names, comments and angle brackets are rejected.
func isValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".") &&
		!strings.Contains(domain, "..")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

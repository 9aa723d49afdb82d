// Package auth provides session token handling and request identity helpers.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Token format: pv_{ulid}_{secret}
// Example: pv_01J9Z3K6Q4X2D8M5N7P0R1S2T3_4f8d...e1b (64 hex chars of secret)
const (
	TokenPrefix    = "pv_"
	TokenSecretLen = 64 // hex encoded 32 bytes
)

var (
	// ErrInvalidTokenFormat indicates the token is not a session token.
	ErrInvalidTokenFormat = errors.New("invalid session token format")
	// tokenFormatRegex matches a Crockford base32 ULID and a hex secret.
	tokenFormatRegex = regexp.MustCompile(`^pv_([0-9A-HJKMNP-TV-Z]{26})_([a-f0-9]{64})$`)
)

// SessionToken is a freshly issued token. Plaintext is handed to the
// client once; only Key is used server-side.
type SessionToken struct {
	Plaintext string
	ID        string
	Key       string
}

// GenerateSessionToken issues a new unguessable session token.
func GenerateSessionToken() (*SessionToken, error) {
	secret := make([]byte, TokenSecretLen/2)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	id := ulid.Make().String()
	plaintext := TokenPrefix + id + "_" + hex.EncodeToString(secret)

	return &SessionToken{
		Plaintext: plaintext,
		ID:        id,
		Key:       StoreKey(plaintext),
	}, nil
}

// ParsedToken holds the components of a session token.
type ParsedToken struct {
	ID     string
	Secret string
}

// ParseSessionToken splits a token into its session ID and secret.
func ParseSessionToken(token string) (*ParsedToken, error) {
	matches := tokenFormatRegex.FindStringSubmatch(token)
	if matches == nil {
		return nil, ErrInvalidTokenFormat
	}
	return &ParsedToken{ID: matches[1], Secret: matches[2]}, nil
}

// ValidateTokenFormat checks if token looks like a session token.
func ValidateTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}

// StoreKey derives the session store key from a plaintext token so the
// store never holds usable tokens. It is NOT a password hash.
func StoreKey(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:16])
}

// TokenFromRequest returns the session token from the named cookie, or
// from an "Authorization: Bearer" header when no cookie is present.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

package encryption

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// PasswordCharset is the alphabet generated passwords are drawn from.
const PasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+-=[]{}|;:,.<>?"

// GeneratePassword returns length characters drawn uniformly from
// PasswordCharset using crypto/rand.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", length)
	}

	limit := big.NewInt(int64(len(PasswordCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = PasswordCharset[n.Int64()]
	}
	return string(out), nil
}

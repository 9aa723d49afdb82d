package encryption

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for account passwords.
const DefaultCost = 12

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrInvalidCost is returned for a work factor outside bcrypt's range.
	ErrInvalidCost = errors.New("invalid bcrypt cost")
	// ErrPasswordTooLong is returned for inputs longer than MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher produces and verifies bcrypt password hashes.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given work factor.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// HashPassword returns a salted, self-describing bcrypt hash ("$2a$12$...").
func (h *Hasher) HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Malformed hashes
// never verify.
func (h *Hasher) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service bundles field encryption and password hashing behind one value.
type Service struct {
	*Cipher
	*Hasher
}

// New builds a Service from the configured method, secret and cost.
func New(method, secret string, cost int) (*Service, error) {
	c, err := NewCipher(method, secret)
	if err != nil {
		return nil, err
	}
	h, err := NewHasher(cost)
	if err != nil {
		return nil, err
	}
	return &Service{Cipher: c, Hasher: h}, nil
}

// Package encryption provides field-level envelope encryption for vault
// secrets and password hashing for account credentials.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultMethod is the cipher used when none is configured.
const DefaultMethod = "aes-256-cbc"

const ivLength = aes.BlockSize

var (
	// ErrUnsupportedMethod is returned for an unknown cipher identifier.
	ErrUnsupportedMethod = errors.New("unsupported encryption method")
	// ErrInvalidKey is returned when the configured secret is empty.
	ErrInvalidKey = errors.New("encryption key must not be empty")
	// ErrEncryption is returned when a value cannot be encrypted.
	ErrEncryption = errors.New("encryption failed")
	// ErrDecryption is returned for malformed, truncated or foreign ciphertext.
	ErrDecryption = errors.New("decryption failed")
)

// keySizes maps supported cipher identifiers to AES key sizes in bytes.
var keySizes = map[string]int{
	"aes-128-cbc": 16,
	"aes-192-cbc": 24,
	"aes-256-cbc": 32,
}

// Cipher encrypts and decrypts individual field values.
//
// Every call to Encrypt draws a fresh random IV. The output is
// base64(IV || ciphertext) using the standard alphabet with padding.
type Cipher struct {
	method   string
	block    cipher.Block
	randRead func([]byte) (int, error)
}

// NewCipher derives the AES key from secret (SHA-256, truncated to the
// method's key size) and returns a ready Cipher.
func NewCipher(method, secret string) (*Cipher, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = DefaultMethod
	}

	size, ok := keySizes[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if secret == "" {
		return nil, ErrInvalidKey
	}

	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:size])
	if err != nil {
		return nil, fmt.Errorf("failed to initialise cipher: %w", err)
	}

	return &Cipher{
		method:   method,
		block:    block,
		randRead: rand.Read,
	}, nil
}

// Method returns the cipher identifier, e.g. "aes-256-cbc".
func (c *Cipher) Method() string {
	return c.method
}

// String never includes key material.
func (c *Cipher) String() string {
	return fmt.Sprintf("encryption.Cipher{method=%s, key=[redacted]}", c.method)
}

// Encrypt seals plaintext under a fresh IV.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	iv := make([]byte, ivLength)
	if _, err := c.randRead(iv); err != nil {
		return "", fmt.Errorf("%w: generate iv: %v", ErrEncryption, err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, ivLength+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[ivLength:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *Cipher) Decrypt(blob string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", ErrDecryption)
	}

	// At least one block must follow the IV.
	if len(data) < ivLength+aes.BlockSize || (len(data)-ivLength)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecryption)
	}

	iv, ct := data[:ivLength], data[ivLength:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ct)

	out, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return out, nil
}

// EncryptString is Encrypt for string values.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	return c.Encrypt([]byte(plaintext))
}

// DecryptString is Decrypt for string values.
func (c *Cipher) DecryptString(blob string) (string, error) {
	b, err := c.Decrypt(blob)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

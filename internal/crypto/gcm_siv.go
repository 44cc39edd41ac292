package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	siv "github.com/secure-io/siv-go"

	"github.com/TheMichaelB/credvault/internal/keys"
	"github.com/TheMichaelB/credvault/internal/models"
)

const (
	// Key sizes
	KeySize   = keys.KeySize // AES-256
	NonceSize = 12           // GCM-SIV standard
	TagSize   = 16           // GCM-SIV tag
)

// Errors
var (
	ErrAuthenticationFailed = models.ErrAuthenticationFailed
	ErrInvalidKey           = keys.ErrInvalidKey
	ErrInvalidNonce         = errors.New("invalid nonce size")
)

// newAEAD builds an AES-256-GCM-SIV instance for key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	if err := ValidateKeySize(key); err != nil {
		return nil, err
	}
	aead, err := siv.NewGCM(key)
	if err != nil {
		return nil, fmt.Errorf("create GCM-SIV: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext under key and nonce.
// Returns: ciphertext || tag
func Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonce, NonceSize, len(nonce))
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext || tag under key and nonce. Any tampering,
// truncation, or key/nonce mismatch yields ErrAuthenticationFailed.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	// The AEAD panics on a short nonce; a truncated nonce on disk is just
	// another failed authentication.
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

// NonceSource produces a fresh nonce for every encryption.
type NonceSource func() ([]byte, error)

// RandomNonce draws NonceSize bytes from crypto/rand.
func RandomNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// ValidateKeySize checks if the key is the correct size.
func ValidateKeySize(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return nil
}

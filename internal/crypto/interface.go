package crypto

import "context"

// Cipher encrypts and decrypts credential secrets.
type Cipher interface {
	// Seal encrypts plaintext under a fresh nonce and returns both.
	Seal(ctx context.Context, plaintext []byte) (nonce, ciphertext []byte, err error)

	// Open decrypts ciphertext sealed under nonce.
	Open(ctx context.Context, nonce, ciphertext []byte) ([]byte, error)
}

package crypto

import (
	"context"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/TheMichaelB/credvault/internal/keys"
)

var _ Cipher = (*Engine)(nil)

// Engine binds a key provider to the GCM-SIV primitive. The key is fetched
// per call and wiped before the call returns.
type Engine struct {
	keys   keys.Provider
	nonces NonceSource
}

// Option configures an Engine.
type Option func(*Engine)

// WithNonceSource replaces the random nonce source.
func WithNonceSource(src NonceSource) Option {
	return func(e *Engine) {
		e.nonces = src
	}
}

// NewEngine creates an engine for the given key provider.
func NewEngine(provider keys.Provider, opts ...Option) *Engine {
	e := &Engine{
		keys:   provider,
		nonces: RandomNonce,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Seal implements Cipher.
func (e *Engine) Seal(ctx context.Context, plaintext []byte) ([]byte, []byte, error) {
	key, err := e.keys.CurrentKey(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load key: %w", err)
	}
	defer memguard.WipeBytes(key)

	nonce, err := e.nonces()
	if err != nil {
		return nil, nil, err
	}

	ciphertext, err := Encrypt(key, nonce, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt: %w", err)
	}

	return nonce, ciphertext, nil
}

// Open implements Cipher. The caller owns the returned plaintext and should
// Wipe it once consumed.
func (e *Engine) Open(ctx context.Context, nonce, ciphertext []byte) ([]byte, error) {
	key, err := e.keys.CurrentKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	defer memguard.WipeBytes(key)

	return Decrypt(key, nonce, ciphertext)
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}

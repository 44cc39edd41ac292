// Package keys supplies the symmetric key that protects stored passwords.
//
// The key never touches the credential store. Each Provider returns a fresh
// copy on every call so callers can wipe it once the cipher operation is done.
package keys

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/TheMichaelB/credvault/internal/config"
)

// KeySize is the AES-256 key length.
const KeySize = 32

// DefaultEnvVar holds the key for the env source when none is configured.
const DefaultEnvVar = "CREDVAULT_KEY"

// Errors
var (
	ErrInvalidKey    = errors.New("invalid key size")
	ErrKeyNotSet     = errors.New("encryption key not configured")
	ErrUnknownSource = errors.New("unknown key source")
)

// Provider returns the current encryption key.
type Provider interface {
	// CurrentKey returns a copy of the 32-byte key.
	CurrentKey(ctx context.Context) ([]byte, error)
}

// Static serves a fixed key held in memory.
type Static struct {
	key []byte
}

// NewStatic copies key into a Static provider.
func NewStatic(key []byte) (*Static, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return &Static{key: append([]byte(nil), key...)}, nil
}

// CurrentKey implements Provider.
func (s *Static) CurrentKey(ctx context.Context) ([]byte, error) {
	return append([]byte(nil), s.key...), nil
}

// Env reads the key from an environment variable on every call.
type Env struct {
	name string
}

// NewEnv creates an environment-backed provider.
func NewEnv(name string) *Env {
	if name == "" {
		name = DefaultEnvVar
	}
	return &Env{name: name}
}

// CurrentKey implements Provider.
func (e *Env) CurrentKey(ctx context.Context) ([]byte, error) {
	v, ok := os.LookupEnv(e.name)
	if !ok || v == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrKeyNotSet, e.name)
	}
	key, err := DecodeKey(v)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.name, err)
	}
	return key, nil
}

// File reads the key from a file on every call. The file holds either the
// raw 32 bytes or a hex/base64 text encoding.
type File struct {
	path string
}

// NewFile creates a file-backed provider.
func NewFile(path string) *File {
	return &File{path: path}
}

// CurrentKey implements Provider.
func (f *File) CurrentKey(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(data) == KeySize {
		return data, nil
	}
	key, err := DecodeKey(string(data))
	for i := range data {
		data[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", f.path, err)
	}
	return key, nil
}

// DecodeKey accepts 64 hex characters, standard base64 of 32 bytes, or a
// literal 32-character string.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if len(s) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}

	if len(s) == base64.StdEncoding.EncodedLen(KeySize) {
		if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == KeySize {
			return key, nil
		}
	}

	if len(s) == KeySize {
		return []byte(s), nil
	}

	return nil, fmt.Errorf("%w: cannot decode %d characters into %d bytes", ErrInvalidKey, len(s), KeySize)
}

// FromConfig builds the provider selected by cfg.Source.
func FromConfig(cfg config.KeyConfig) (Provider, error) {
	switch cfg.Source {
	case "static":
		if cfg.Value == "" {
			return nil, fmt.Errorf("%w: key.value is empty", ErrKeyNotSet)
		}
		key, err := DecodeKey(cfg.Value)
		if err != nil {
			return nil, err
		}
		return NewStatic(key)
	case "env":
		return NewEnv(cfg.Env), nil
	case "file":
		if cfg.File == "" {
			return nil, fmt.Errorf("%w: key.file is empty", ErrKeyNotSet)
		}
		return NewFile(cfg.File), nil
	case "aws":
		if cfg.SecretID == "" {
			return nil, fmt.Errorf("%w: key.secret_id is empty", ErrKeyNotSet)
		}
		return NewSecretsManager(cfg.SecretID, cfg.Region), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

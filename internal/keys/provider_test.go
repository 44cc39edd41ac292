package keys_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/credvault/internal/config"
	"github.com/TheMichaelB/credvault/internal/keys"
)

var testKey = bytes.Repeat([]byte{0xA5}, keys.KeySize)

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"hex", hex.EncodeToString(testKey), testKey, false},
		{"hex with newline", hex.EncodeToString(testKey) + "\n", testKey, false},
		{"base64", base64.StdEncoding.EncodeToString(testKey), testKey, false},
		{"raw 32 chars", "keykeykeykeykeykeykeykeykeykeyke", []byte("keykeykeykeykeykeykeykeykeykeyke"), false},
		{"too short", "short", nil, true},
		{"base64 of 16 bytes", base64.StdEncoding.EncodeToString(make([]byte, 16)), nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keys.DecodeKey(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, keys.ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatic(t *testing.T) {
	_, err := keys.NewStatic(make([]byte, 16))
	assert.ErrorIs(t, err, keys.ErrInvalidKey)

	p, err := keys.NewStatic(testKey)
	require.NoError(t, err)

	k1, err := p.CurrentKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k1)

	// Wiping a returned copy must not affect later calls.
	for i := range k1 {
		k1[i] = 0
	}
	k2, err := p.CurrentKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, k2)
}

func TestEnv(t *testing.T) {
	t.Setenv("TEST_CREDVAULT_KEY", hex.EncodeToString(testKey))

	key, err := keys.NewEnv("TEST_CREDVAULT_KEY").CurrentKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	t.Setenv("TEST_CREDVAULT_KEY", "")
	_, err = keys.NewEnv("TEST_CREDVAULT_KEY").CurrentKey(context.Background())
	assert.ErrorIs(t, err, keys.ErrKeyNotSet)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("raw bytes", func(t *testing.T) {
		path := filepath.Join(dir, "raw.key")
		require.NoError(t, os.WriteFile(path, testKey, 0600))

		key, err := keys.NewFile(path).CurrentKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testKey, key)
	})

	t.Run("hex text", func(t *testing.T) {
		path := filepath.Join(dir, "hex.key")
		require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(testKey)+"\n"), 0600))

		key, err := keys.NewFile(path).CurrentKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testKey, key)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := keys.NewFile(filepath.Join(dir, "missing.key")).CurrentKey(context.Background())
		assert.Error(t, err)
	})
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.KeyConfig
		want    interface{}
		wantErr error
	}{
		{"static", config.KeyConfig{Source: "static", Value: hex.EncodeToString(testKey)}, &keys.Static{}, nil},
		{"static empty", config.KeyConfig{Source: "static"}, nil, keys.ErrKeyNotSet},
		{"env", config.KeyConfig{Source: "env"}, &keys.Env{}, nil},
		{"file", config.KeyConfig{Source: "file", File: "/etc/key"}, &keys.File{}, nil},
		{"file empty", config.KeyConfig{Source: "file"}, nil, keys.ErrKeyNotSet},
		{"aws", config.KeyConfig{Source: "aws", SecretID: "prod/key"}, &keys.SecretsManager{}, nil},
		{"aws empty", config.KeyConfig{Source: "aws"}, nil, keys.ErrKeyNotSet},
		{"unknown", config.KeyConfig{Source: "hsm"}, nil, keys.ErrUnknownSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := keys.FromConfig(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

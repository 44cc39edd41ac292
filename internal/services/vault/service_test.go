package vault_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/credvault/internal/config"
	"github.com/TheMichaelB/credvault/internal/crypto"
	"github.com/TheMichaelB/credvault/internal/events"
	"github.com/TheMichaelB/credvault/internal/keys"
	"github.com/TheMichaelB/credvault/internal/models"
	"github.com/TheMichaelB/credvault/internal/services/generator"
	"github.com/TheMichaelB/credvault/internal/services/vault"
	"github.com/TheMichaelB/credvault/internal/storage"
)

type fixture struct {
	svc        *vault.Service
	workDir    string
	policyPath string
	records    storage.RecordStore
}

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, keys.KeySize)
}

func newFixture(t *testing.T, backend string) *fixture {
	t.Helper()

	workDir := t.TempDir()
	logger := events.NewTestLogger(events.DebugLevel, "json", &bytes.Buffer{})

	cfg := config.DefaultConfig()
	cfg.Storage.WorkDir = workDir
	cfg.Storage.Backend = backend

	records, err := storage.Open(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })

	provider, err := keys.NewStatic(testKey())
	require.NoError(t, err)

	svc := vault.NewService(
		config.NewPolicyStore(cfg.PolicyPath()),
		records,
		crypto.NewEngine(provider),
		generator.New(),
		logger,
	)

	return &fixture{
		svc:        svc,
		workDir:    workDir,
		policyPath: cfg.PolicyPath(),
		records:    records,
	}
}

func TestVaultScenario(t *testing.T) {
	for _, backend := range []string{"dir", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend)
			ctx := context.Background()

			require.NoError(t, f.svc.Initialize(ctx))

			p, err := f.svc.Policy(ctx)
			require.NoError(t, err)
			assert.Equal(t, models.DefaultPolicy(), p)

			recordsDir := filepath.Join(f.workDir, "passwords")
			if backend == "dir" {
				entries, err := os.ReadDir(recordsDir)
				require.NoError(t, err, "records directory exists after init")
				assert.Empty(t, entries)
			}

			require.NoError(t, f.svc.Add(ctx, "github", "alice", "hunter2"))

			if backend == "dir" {
				entries, err := os.ReadDir(filepath.Join(recordsDir, "github"))
				require.NoError(t, err)

				names := make([]string, 0, len(entries))
				for _, e := range entries {
					names = append(names, e.Name())
				}
				assert.ElementsMatch(t, []string{".nonce", ".password", ".username"}, names)
			}

			cred, err := f.svc.Fetch(ctx, "github")
			require.NoError(t, err)
			assert.Equal(t, "alice", cred.Username)
			assert.Equal(t, "hunter2", cred.Password)
			assert.Equal(t, "username:alice\npassword:hunter2", cred.String())

			_, err = f.svc.ChangePolicy(ctx, 5, 8)
			require.NoError(t, err)

			for i := 0; i < 50; i++ {
				pw, err := f.svc.GeneratePassword(ctx)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, len(pw), 5)
				assert.LessOrEqual(t, len(pw), 8)
			}

			ids, err := f.svc.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"github"}, ids)
		})
	}
}

func TestInitializeTwice(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()

	require.NoError(t, f.svc.Initialize(ctx))
	_, err := f.svc.ChangePolicy(ctx, 1, 2)
	require.NoError(t, err)

	err = f.svc.Initialize(ctx)
	assert.ErrorIs(t, err, models.ErrAlreadyInitialized)

	p, err := f.svc.Policy(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationPolicy{MinLength: 1, MaxLength: 2}, p, "existing policy kept")
}

func TestOperationsBeforeInitialize(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()

	_, err := f.svc.GeneratePassword(ctx)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	_, err = f.svc.ChangePolicy(ctx, 1, 2)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	err = f.svc.Add(ctx, "x", "u", "p")
	assert.ErrorIs(t, err, models.ErrNotInitialized)
}

func TestAddUniqueness(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))

	require.NoError(t, f.svc.Add(ctx, "bank", "alice", "first"))

	recordDir := filepath.Join(f.workDir, "passwords", "bank")
	before := snapshot(t, recordDir)

	err := f.svc.Add(ctx, "bank", "mallory", "second")
	require.ErrorIs(t, err, models.ErrIdentifierExists)
	assert.Equal(t, models.ErrCodeExists, models.Code(err))

	assert.Equal(t, before, snapshot(t, recordDir), "record unchanged on disk")

	cred, err := f.svc.Fetch(ctx, "bank")
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, "first", cred.Password)
}

func TestFreshNoncePerAdd(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))

	require.NoError(t, f.svc.Add(ctx, "a", "u", "same"))
	require.NoError(t, f.svc.Add(ctx, "b", "u", "same"))

	ra, err := f.records.Load(ctx, "a")
	require.NoError(t, err)
	rb, err := f.records.Load(ctx, "b")
	require.NoError(t, err)

	assert.Len(t, ra.Nonce, crypto.NonceSize)
	assert.NotEqual(t, ra.Nonce, rb.Nonce)
	assert.NotEqual(t, ra.Ciphertext, rb.Ciphertext)
	assert.Len(t, ra.Ciphertext, len("same")+crypto.TagSize)
}

func TestEmptyValues(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))

	require.NoError(t, f.svc.Add(ctx, "blank", "", ""))

	cred, err := f.svc.Fetch(ctx, "blank")
	require.NoError(t, err)
	assert.Equal(t, "", cred.Username)
	assert.Equal(t, "", cred.Password)
}

func TestFetchNotFound(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))

	_, err := f.svc.Fetch(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestFetchTampered(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))
	require.NoError(t, f.svc.Add(ctx, "mail", "bob", "secret"))

	path := filepath.Join(f.workDir, "passwords", "mail", storage.PasswordArtifact)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = f.svc.Fetch(ctx, "mail")
	assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
}

func TestFetchWrongKey(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))
	require.NoError(t, f.svc.Add(ctx, "mail", "bob", "secret"))

	other, err := keys.NewStatic(bytes.Repeat([]byte{0x24}, keys.KeySize))
	require.NoError(t, err)

	svc := vault.NewService(
		config.NewPolicyStore(f.policyPath),
		f.records,
		crypto.NewEngine(other),
		generator.New(),
		events.NewNopLogger(),
	)

	_, err = svc.Fetch(ctx, "mail")
	assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
}

func TestFetchInvalidEncoding(t *testing.T) {
	ctx := context.Background()
	workDir := t.TempDir()

	provider, err := keys.NewStatic(testKey())
	require.NoError(t, err)
	engine := crypto.NewEngine(provider)

	records := storage.NewMemoryStore()
	require.NoError(t, records.Init(ctx))

	svc := vault.NewService(
		config.NewPolicyStore(filepath.Join(workDir, "config.toml")),
		records,
		engine,
		generator.New(),
		events.NewNopLogger(),
	)

	t.Run("password", func(t *testing.T) {
		nonce, ct, err := engine.Seal(ctx, []byte{0xff, 0xfe})
		require.NoError(t, err)
		require.NoError(t, records.Create(ctx, &models.CredentialRecord{
			Identifier: "badpw", Username: "u", Nonce: nonce, Ciphertext: ct,
		}))

		_, err = svc.Fetch(ctx, "badpw")
		assert.ErrorIs(t, err, models.ErrInvalidEncoding)
	})

	t.Run("username", func(t *testing.T) {
		require.NoError(t, svc.Add(ctx, "baduser", "ok", "pw"))
		records.Tamper("baduser", func(rec *models.CredentialRecord) {
			rec.Username = string([]byte{0xc3, 0x28})
		})

		_, err := svc.Fetch(ctx, "baduser")
		assert.ErrorIs(t, err, models.ErrInvalidEncoding)
	})
}

func TestChangePolicy(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))

	t.Run("rejects max below min", func(t *testing.T) {
		before, err := os.ReadFile(f.policyPath)
		require.NoError(t, err)

		_, err = f.svc.ChangePolicy(ctx, 10, 5)
		assert.ErrorIs(t, err, models.ErrInvalidPolicy)

		after, err := os.ReadFile(f.policyPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("equal bounds", func(t *testing.T) {
		p, err := f.svc.ChangePolicy(ctx, 16, 16)
		require.NoError(t, err)
		assert.Equal(t, uint32(16), p.MinLength)

		pw, err := f.svc.GeneratePassword(ctx)
		require.NoError(t, err)
		assert.Len(t, pw, 16)
	})

	t.Run("rejects oversized maximum", func(t *testing.T) {
		_, err := f.svc.ChangePolicy(ctx, 0, 4294967295)
		assert.ErrorIs(t, err, models.ErrInvalidPolicy)
	})

	t.Run("repairs inverted file", func(t *testing.T) {
		content := "[new_passwords_config]\nnew_password_min_length = 9\nnew_password_max_length = 3\n"
		require.NoError(t, os.WriteFile(f.policyPath, []byte(content), 0600))

		_, err := f.svc.GeneratePassword(ctx)
		require.ErrorIs(t, err, models.ErrInvalidPolicy)

		p, err := f.svc.ChangePolicy(ctx, 5, 10)
		require.NoError(t, err)
		assert.Equal(t, models.GenerationPolicy{MinLength: 5, MaxLength: 10}, p)

		pw, err := f.svc.GeneratePassword(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(pw), 5)
		assert.LessOrEqual(t, len(pw), 10)
	})

	t.Run("malformed file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.policyPath, []byte("[new_password_config]\n"), 0600))

		_, err := f.svc.GeneratePassword(ctx)
		assert.ErrorIs(t, err, models.ErrInvalidConfig)

		_, err = f.svc.ChangePolicy(ctx, 5, 10)
		assert.ErrorIs(t, err, models.ErrInvalidConfig)

		require.NoError(t, config.NewPolicyStore(f.policyPath).Save(models.DefaultPolicy()))
	})

	t.Run("persisted as toml", func(t *testing.T) {
		_, err := f.svc.ChangePolicy(ctx, 3, 30)
		require.NoError(t, err)

		data, err := os.ReadFile(f.policyPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[new_passwords_config]")
		assert.Contains(t, string(data), "new_password_min_length = 3")
		assert.Contains(t, string(data), "new_password_max_length = 30")
	})
}

func TestInvalidIdentifier(t *testing.T) {
	f := newFixture(t, "dir")
	ctx := context.Background()
	require.NoError(t, f.svc.Initialize(ctx))

	err := f.svc.Add(ctx, "../outside", "u", "p")
	assert.ErrorIs(t, err, models.ErrInvalidIdentifier)

	_, err = os.Stat(filepath.Join(f.workDir, "outside"))
	assert.True(t, os.IsNotExist(err))
}

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()

	provider, err := keys.NewStatic(testKey())
	require.NoError(t, err)

	records := storage.NewMemoryStore()
	require.NoError(t, records.Init(ctx))

	svc := vault.NewService(
		config.NewPolicyStore(filepath.Join(t.TempDir(), "config.toml")),
		records,
		crypto.NewEngine(provider),
		generator.New(),
		events.NewNopLogger(),
	)

	diskFull := errors.New("no space left on device")

	t.Run("add", func(t *testing.T) {
		records.CreateError = diskFull
		defer func() { records.CreateError = nil }()

		err := svc.Add(ctx, "mail", "bob", "pw")
		require.ErrorIs(t, err, diskFull)

		var recErr *models.RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, "add", recErr.Op)
		assert.Equal(t, "mail", recErr.Identifier)
		assert.Equal(t, models.ErrCodeStorage, models.Code(err))
	})

	t.Run("fetch", func(t *testing.T) {
		require.NoError(t, svc.Add(ctx, "mail", "bob", "pw"))

		records.LoadError = diskFull
		defer func() { records.LoadError = nil }()

		_, err := svc.Fetch(ctx, "mail")
		require.ErrorIs(t, err, diskFull)

		var recErr *models.RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, "fetch", recErr.Op)
	})
}

func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()

	out := make(map[string][]byte)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = data
	}
	return out
}

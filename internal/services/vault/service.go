package vault

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/TheMichaelB/credvault/internal/config"
	"github.com/TheMichaelB/credvault/internal/crypto"
	"github.com/TheMichaelB/credvault/internal/events"
	"github.com/TheMichaelB/credvault/internal/models"
	"github.com/TheMichaelB/credvault/internal/services/generator"
	"github.com/TheMichaelB/credvault/internal/storage"
)

// Service runs the vault operations. It holds no state between calls; the
// policy and records are read from disk each time.
type Service struct {
	policy    *config.PolicyStore
	records   storage.RecordStore
	cipher    crypto.Cipher
	generator *generator.Generator
	logger    *events.Logger
}

// NewService creates a vault service.
func NewService(
	policy *config.PolicyStore,
	records storage.RecordStore,
	cipher crypto.Cipher,
	gen *generator.Generator,
	logger *events.Logger,
) *Service {
	return &Service{
		policy:    policy,
		records:   records,
		cipher:    cipher,
		generator: gen,
		logger:    logger.WithField("service", "vault"),
	}
}

func (s *Service) begin(ctx context.Context, op string) (context.Context, *events.Logger) {
	ctx = events.WithOperation(events.WithLogger(ctx, s.logger), op)
	return ctx, events.FromContext(ctx)
}

// Initialize writes the default policy and prepares record storage. It fails
// with models.ErrAlreadyInitialized if the policy file exists.
func (s *Service) Initialize(ctx context.Context) error {
	ctx, logger := s.begin(ctx, "init")

	if err := s.policy.Create(models.DefaultPolicy()); err != nil {
		return &models.RecordError{Op: "init", Err: err}
	}

	if err := s.records.Init(ctx); err != nil {
		return &models.RecordError{Op: "init", Err: err}
	}

	logger.WithField("policy", s.policy.Path()).Info("Vault initialized")
	return nil
}

// Add encrypts password under a fresh nonce and stores it with username.
// Nothing is persisted unless the whole record is written.
func (s *Service) Add(ctx context.Context, identifier, username, password string) error {
	ctx, _ = s.begin(ctx, "add")
	ctx = events.WithIdentifier(ctx, identifier)
	logger := events.FromContext(ctx)

	if err := models.ValidateIdentifier(identifier); err != nil {
		return &models.RecordError{Op: "add", Identifier: identifier, Err: err}
	}

	plaintext := []byte(password)
	defer crypto.Wipe(plaintext)

	nonce, ciphertext, err := s.cipher.Seal(ctx, plaintext)
	if err != nil {
		return &models.RecordError{Op: "add", Identifier: identifier, Err: err}
	}

	rec := &models.CredentialRecord{
		Identifier: identifier,
		Username:   username,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}

	if err := s.records.Create(ctx, rec); err != nil {
		var recErr *models.RecordError
		if errors.As(err, &recErr) {
			recErr.Op = "add"
			return recErr
		}
		return &models.RecordError{Op: "add", Identifier: identifier, Err: err}
	}

	logger.Debug("Credential stored")
	return nil
}

// Fetch loads and decrypts a credential. A record that fails
// authentication yields models.ErrAuthenticationFailed; stored values that
// are not valid UTF-8 yield models.ErrInvalidEncoding.
func (s *Service) Fetch(ctx context.Context, identifier string) (*models.Credential, error) {
	ctx, _ = s.begin(ctx, "fetch")
	ctx = events.WithIdentifier(ctx, identifier)
	logger := events.FromContext(ctx)

	rec, err := s.records.Load(ctx, identifier)
	if err != nil {
		var recErr *models.RecordError
		if errors.As(err, &recErr) {
			recErr.Op = "fetch"
			return nil, recErr
		}
		return nil, &models.RecordError{Op: "fetch", Identifier: identifier, Err: err}
	}

	plaintext, err := s.cipher.Open(ctx, rec.Nonce, rec.Ciphertext)
	if err != nil {
		logger.Warn("Record failed authentication")
		return nil, &models.RecordError{Op: "fetch", Identifier: identifier, Err: err}
	}
	defer crypto.Wipe(plaintext)

	if !utf8.ValidString(rec.Username) || !utf8.Valid(plaintext) {
		return nil, &models.RecordError{Op: "fetch", Identifier: identifier, Err: models.ErrInvalidEncoding}
	}

	logger.Debug("Credential fetched")

	return &models.Credential{
		Identifier: identifier,
		Username:   rec.Username,
		Password:   string(plaintext),
	}, nil
}

// ChangePolicy sets both generation bounds. The policy file is untouched
// when maximum < minimum.
func (s *Service) ChangePolicy(ctx context.Context, minimum, maximum uint32) (models.GenerationPolicy, error) {
	_, logger := s.begin(ctx, "change-config")

	next := models.GenerationPolicy{MinLength: minimum, MaxLength: maximum}
	if err := next.Validate(); err != nil {
		return models.GenerationPolicy{}, &models.RecordError{Op: "change-config", Err: err}
	}

	// Read, not Load: the stored bounds are about to be replaced, so an
	// inverted file on disk must not block the fix.
	current, err := s.policy.Read()
	if err != nil {
		return models.GenerationPolicy{}, &models.RecordError{Op: "change-config", Err: err}
	}

	current.MinLength = next.MinLength
	current.MaxLength = next.MaxLength

	if err := s.policy.Save(current); err != nil {
		return models.GenerationPolicy{}, &models.RecordError{Op: "change-config", Err: err}
	}

	logger.WithFields(map[string]interface{}{
		"min_length": current.MinLength,
		"max_length": current.MaxLength,
	}).Info("Generation policy updated")

	return current, nil
}

// Policy returns the stored generation policy.
func (s *Service) Policy(ctx context.Context) (models.GenerationPolicy, error) {
	p, err := s.policy.Load()
	if err != nil {
		return models.GenerationPolicy{}, &models.RecordError{Op: "policy", Err: err}
	}
	return p, nil
}

// GeneratePassword returns a random password under the stored policy.
// Nothing is persisted.
func (s *Service) GeneratePassword(ctx context.Context) (string, error) {
	_, logger := s.begin(ctx, "generate")

	p, err := s.policy.Load()
	if err != nil {
		return "", &models.RecordError{Op: "generate", Err: err}
	}

	pw, err := s.generator.Generate(p)
	if err != nil {
		return "", &models.RecordError{Op: "generate", Err: fmt.Errorf("generate password: %w", err)}
	}

	logger.Debug("Password generated")
	return pw, nil
}

// List returns the stored identifiers.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ctx, _ = s.begin(ctx, "list")

	ids, err := s.records.List(ctx)
	if err != nil {
		return nil, &models.RecordError{Op: "list", Err: err}
	}
	return ids, nil
}

// Close releases the record store.
func (s *Service) Close() error {
	return s.records.Close()
}

package totp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Service provides TOTP (Time-based One-Time Password) functionality.
type Service interface {
	// GenerateCode generates a TOTP code from a secret.
	GenerateCode(secret string) (string, error)

	// ValidateCode validates a TOTP code against a secret.
	ValidateCode(secret, code string) bool
}

// DefaultService implements TOTP operations.
type DefaultService struct {
	period uint // seconds
	digits otp.Digits
	skew   uint // periods accepted either side of now
	now    func() time.Time
}

// NewService creates a TOTP service with the usual authenticator-app settings.
func NewService() *DefaultService {
	return &DefaultService{
		period: 30,
		digits: otp.DigitsSix,
		skew:   1,
		now:    time.Now,
	}
}

// NewServiceWithClock is NewService with a fixed clock, for tests.
func NewServiceWithClock(now func() time.Time) *DefaultService {
	s := NewService()
	s.now = now
	return s
}

func (s *DefaultService) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    s.period,
		Skew:      s.skew,
		Digits:    s.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateCode generates a TOTP code for the current time.
func (s *DefaultService) GenerateCode(secret string) (string, error) {
	return s.GenerateCodeAtTime(secret, s.now())
}

// GenerateCodeAtTime generates a TOTP code for a specific time.
func (s *DefaultService) GenerateCodeAtTime(secret string, t time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("totp: secret cannot be empty")
	}

	code, err := totp.GenerateCodeCustom(secret, t, s.opts())
	if err != nil {
		return "", fmt.Errorf("totp: failed to generate code: %w", err)
	}

	return code, nil
}

// ValidateCode validates a TOTP code against a secret.
func (s *DefaultService) ValidateCode(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, s.now(), s.opts())
	return err == nil && ok
}

// IsValidSecret checks if a secret string is usable for TOTP.
func (s *DefaultService) IsValidSecret(secret string) error {
	if _, err := s.GenerateCode(secret); err != nil {
		return fmt.Errorf("totp: invalid secret format: %w", err)
	}
	return nil
}

// NewSecret creates a fresh base32 secret and its otpauth:// URL for
// enrolling an authenticator app.
func NewSecret(account string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "credvault",
		AccountName: account,
	})
	if err != nil {
		return "", "", fmt.Errorf("totp: generate secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

package gate

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/TheMichaelB/credvault/internal/config"
	"github.com/TheMichaelB/credvault/internal/events"
	"github.com/TheMichaelB/credvault/internal/models"
	"github.com/TheMichaelB/credvault/internal/services/totp"
)

// ErrNoPassphrase is returned when the gate has nothing to compare against.
var ErrNoPassphrase = errors.New("gate: no passphrase configured")

// Gate checks the caller's passphrase, and a TOTP code when a secret is
// configured, before any vault operation runs.
type Gate struct {
	passphrase []byte // NFKC-normalised
	hash       []byte // bcrypt
	totpSecret string
	totp       totp.Service
	logger     *events.Logger
}

// New builds a gate from config. A bcrypt hash takes precedence over a
// plain passphrase.
func New(cfg config.GateConfig, logger *events.Logger) (*Gate, error) {
	otp := totp.NewService()
	if cfg.TOTPSecret != "" {
		if err := otp.IsValidSecret(cfg.TOTPSecret); err != nil {
			return nil, fmt.Errorf("gate: gate.totp_secret: %w", err)
		}
	}

	g := &Gate{
		totpSecret: cfg.TOTPSecret,
		totp:       otp,
		logger:     logger.WithField("service", "gate"),
	}

	switch {
	case cfg.PassphraseHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PassphraseHash)); err != nil {
			return nil, fmt.Errorf("gate: invalid passphrase hash: %w", err)
		}
		g.hash = []byte(cfg.PassphraseHash)
	case cfg.Passphrase != "":
		g.passphrase = normalize(cfg.Passphrase)
	default:
		return nil, ErrNoPassphrase
	}

	return g, nil
}

// WithTOTP replaces the TOTP validator.
func (g *Gate) WithTOTP(s totp.Service) *Gate {
	g.totp = s
	return g
}

// RequiresTOTP reports whether Check needs a code.
func (g *Gate) RequiresTOTP() bool {
	return g.totpSecret != ""
}

// Check returns models.ErrAccessDenied unless passphrase matches and, when
// enabled, code is a current TOTP code.
func (g *Gate) Check(passphrase, code string) error {
	if !g.matches(passphrase) {
		g.logger.Warn("Passphrase rejected")
		return models.ErrAccessDenied
	}

	if g.RequiresTOTP() && !g.totp.ValidateCode(g.totpSecret, code) {
		g.logger.Warn("TOTP code rejected")
		return models.ErrAccessDenied
	}

	g.logger.Debug("Gate passed")
	return nil
}

func (g *Gate) matches(passphrase string) bool {
	if g.hash != nil {
		return bcrypt.CompareHashAndPassword(g.hash, normalize(passphrase)) == nil
	}
	return subtle.ConstantTimeCompare(g.passphrase, normalize(passphrase)) == 1
}

// HashPassphrase returns a bcrypt hash suitable for gate.passphrase_hash.
func HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrNoPassphrase
	}
	hash, err := bcrypt.GenerateFromPassword(normalize(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hash), nil
}

func normalize(s string) []byte {
	return norm.NFKC.Bytes([]byte(s))
}

package storage

import (
	"context"

	"github.com/TheMichaelB/credvault/internal/models"
)

// RecordStore persists encrypted credential records. Records are written
// once and never updated in place.
type RecordStore interface {
	// Init prepares the backing storage. Safe to call more than once.
	Init(ctx context.Context) error

	// Create stores a new record. It fails with models.ErrIdentifierExists
	// if the identifier is taken, leaving the existing record untouched.
	Create(ctx context.Context, rec *models.CredentialRecord) error

	// Load returns the record for identifier, or models.ErrRecordNotFound.
	Load(ctx context.Context, identifier string) (*models.CredentialRecord, error)

	// List returns all identifiers in sorted order.
	List(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// Artifact names inside a record directory.
const (
	NonceArtifact    = ".nonce"
	PasswordArtifact = ".password"
	UsernameArtifact = ".username"
)

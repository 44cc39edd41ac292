package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/TheMichaelB/credvault/internal/models"
)

var _ RecordStore = (*MemoryStore)(nil)

// MemoryStore provides an in-memory RecordStore for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.CredentialRecord
	ready   bool

	// Error injection
	CreateError error
	LoadError   error
}

// NewMemoryStore creates an uninitialized memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.CredentialRecord),
	}
}

// Init implements RecordStore.
func (m *MemoryStore) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ready = true
	return nil
}

// Create implements RecordStore.
func (m *MemoryStore) Create(ctx context.Context, rec *models.CredentialRecord) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if err := models.ValidateIdentifier(rec.Identifier); err != nil {
		return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: models.ErrNotInitialized}
	}
	if _, ok := m.records[rec.Identifier]; ok {
		return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: models.ErrIdentifierExists}
	}

	m.records[rec.Identifier] = models.CredentialRecord{
		Identifier: rec.Identifier,
		Username:   rec.Username,
		Nonce:      append([]byte(nil), rec.Nonce...),
		Ciphertext: append([]byte(nil), rec.Ciphertext...),
	}
	return nil
}

// Load implements RecordStore.
func (m *MemoryStore) Load(ctx context.Context, identifier string) (*models.CredentialRecord, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[identifier]
	if !ok {
		return nil, &models.RecordError{Op: "load", Identifier: identifier, Err: models.ErrRecordNotFound}
	}

	return &models.CredentialRecord{
		Identifier: rec.Identifier,
		Username:   rec.Username,
		Nonce:      append([]byte(nil), rec.Nonce...),
		Ciphertext: append([]byte(nil), rec.Ciphertext...),
	}, nil
}

// List implements RecordStore.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready {
		return nil, models.ErrNotInitialized
	}

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements RecordStore.
func (m *MemoryStore) Close() error {
	return nil
}

// Tamper applies fn to the stored record, for corruption tests.
func (m *MemoryStore) Tamper(identifier string, fn func(rec *models.CredentialRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[identifier]; ok {
		fn(&rec)
		m.records[identifier] = rec
	}
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/credvault/internal/events"
	"github.com/TheMichaelB/credvault/internal/models"
)

var _ RecordStore = (*SQLiteStore)(nil)

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1

// SQLiteStore keeps records as rows keyed by identifier. Uniqueness is the
// table's primary key.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens (lazily creating) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_store"),
	}, nil
}

// Init creates tables. Safe to call more than once.
func (s *SQLiteStore) Init(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS credentials (
        identifier TEXT PRIMARY KEY,
        username BLOB NOT NULL,
        nonce BLOB NOT NULL,
        ciphertext BLOB NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.ExecContext(ctx, schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Create implements RecordStore.
func (s *SQLiteStore) Create(ctx context.Context, rec *models.CredentialRecord) error {
	if err := models.ValidateIdentifier(rec.Identifier); err != nil {
		return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: err}
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO credentials (identifier, username, nonce, ciphertext)
        VALUES (?, ?, ?, ?)
    `, rec.Identifier, []byte(rec.Username), rec.Nonce, rec.Ciphertext)
	if err != nil {
		if isConstraintViolation(err) {
			return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: models.ErrIdentifierExists}
		}
		if isMissingTable(err) {
			return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: models.ErrNotInitialized}
		}
		return fmt.Errorf("insert record: %w", err)
	}

	s.logger.WithField("identifier", rec.Identifier).Debug("Record written")
	return nil
}

// Load implements RecordStore.
func (s *SQLiteStore) Load(ctx context.Context, identifier string) (*models.CredentialRecord, error) {
	if err := models.ValidateIdentifier(identifier); err != nil {
		return nil, &models.RecordError{Op: "load", Identifier: identifier, Err: err}
	}

	var username []byte
	rec := &models.CredentialRecord{Identifier: identifier}

	err := s.db.QueryRowContext(ctx, `
        SELECT username, nonce, ciphertext
        FROM credentials
        WHERE identifier = ?
    `, identifier).Scan(&username, &rec.Nonce, &rec.Ciphertext)

	switch {
	case errors.Is(err, sql.ErrNoRows), isMissingTable(err):
		return nil, &models.RecordError{Op: "load", Identifier: identifier, Err: models.ErrRecordNotFound}
	case err != nil:
		return nil, fmt.Errorf("query record: %w", err)
	}

	rec.Username = string(username)
	return rec, nil
}

// List implements RecordStore.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identifier FROM credentials ORDER BY identifier`)
	if err != nil {
		if isMissingTable(err) {
			return nil, models.ErrNotInitialized
		}
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return ids, nil
}

// Close implements RecordStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

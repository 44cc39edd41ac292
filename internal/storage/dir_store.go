package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/credvault/internal/events"
	"github.com/TheMichaelB/credvault/internal/models"
)

var _ RecordStore = (*DirStore)(nil)

// DirStore keeps one directory per identifier under baseDir, holding the
// nonce, ciphertext and username as three files.
type DirStore struct {
	baseDir string
	logger  *events.Logger

	// Security settings
	allowSymlinks bool
	dirMode       os.FileMode
	fileMode      os.FileMode
}

// NewDirStore creates a directory-backed record store. The base directory
// is created by Init, not here.
func NewDirStore(baseDir string, logger *events.Logger) (*DirStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	return &DirStore{
		baseDir:       absPath,
		logger:        logger.WithField("component", "dir_store"),
		allowSymlinks: false,
		dirMode:       0700,
		fileMode:      0600,
	}, nil
}

// Init creates the base directory if needed.
func (s *DirStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.baseDir, s.dirMode); err != nil {
		return fmt.Errorf("create records directory: %w", err)
	}
	return nil
}

// Create implements RecordStore. The record directory is claimed with a
// single mkdir, so two racing adds on one identifier cannot both succeed.
func (s *DirStore) Create(ctx context.Context, rec *models.CredentialRecord) error {
	if err := models.ValidateIdentifier(rec.Identifier); err != nil {
		return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: err}
	}

	dir := s.recordDir(rec.Identifier)
	logger := s.logger.WithField("identifier", rec.Identifier)

	if err := os.Mkdir(dir, s.dirMode); err != nil {
		switch {
		case errors.Is(err, os.ErrExist):
			return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: models.ErrIdentifierExists}
		case errors.Is(err, os.ErrNotExist):
			return &models.RecordError{Op: "create", Identifier: rec.Identifier, Err: models.ErrNotInitialized}
		default:
			return fmt.Errorf("create record directory: %w", err)
		}
	}

	// Roll back the claim if any artifact fails to land.
	success := false
	defer func() {
		if !success {
			if err := os.RemoveAll(dir); err != nil {
				logger.WithError(err).Error("Failed to remove partial record")
			}
		}
	}()

	artifacts := []struct {
		name string
		data []byte
	}{
		{NonceArtifact, rec.Nonce},
		{PasswordArtifact, rec.Ciphertext},
		{UsernameArtifact, []byte(rec.Username)},
	}

	for _, a := range artifacts {
		if err := s.writeAtomic(filepath.Join(dir, a.name), a.data); err != nil {
			return fmt.Errorf("write %s: %w", a.name, err)
		}
	}

	syncDir(dir)
	syncDir(s.baseDir)

	success = true
	logger.Debug("Record written")

	return nil
}

// Load implements RecordStore. A missing or unreadable artifact reports
// the whole record as not found.
func (s *DirStore) Load(ctx context.Context, identifier string) (*models.CredentialRecord, error) {
	if err := models.ValidateIdentifier(identifier); err != nil {
		return nil, &models.RecordError{Op: "load", Identifier: identifier, Err: err}
	}

	dir := s.recordDir(identifier)

	if !s.allowSymlinks {
		stat, err := os.Lstat(dir)
		if err == nil && stat.Mode()&os.ModeSymlink != 0 {
			return nil, &models.RecordError{
				Op:         "load",
				Identifier: identifier,
				Err:        fmt.Errorf("%w: record directory is a symlink", models.ErrRecordNotFound),
			}
		}
	}

	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &models.RecordError{
				Op:         "load",
				Identifier: identifier,
				Err:        fmt.Errorf("%w: %s: %v", models.ErrRecordNotFound, name, err),
			}
		}
		return data, nil
	}

	username, err := read(UsernameArtifact)
	if err != nil {
		return nil, err
	}
	nonce, err := read(NonceArtifact)
	if err != nil {
		return nil, err
	}
	ciphertext, err := read(PasswordArtifact)
	if err != nil {
		return nil, err
	}

	return &models.CredentialRecord{
		Identifier: identifier,
		Username:   string(username),
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// List implements RecordStore.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrNotInitialized
		}
		return nil, fmt.Errorf("read records directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ids = append(ids, entry.Name())
	}

	return ids, nil
}

// Close implements RecordStore.
func (s *DirStore) Close() error {
	return nil
}

func (s *DirStore) recordDir(identifier string) string {
	return filepath.Join(s.baseDir, identifier)
}

// writeAtomic writes data to a temp file beside path, syncs it, and renames
// it into place.
func (s *DirStore) writeAtomic(path string, data []byte) error {
	tempPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, s.fileMode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		f.Close()
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync file: %w", err)
	}
	f.Close()

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}

func syncDir(path string) {
	if dir, err := os.Open(path); err == nil {
		_ = dir.Sync()
		dir.Close()
	}
}

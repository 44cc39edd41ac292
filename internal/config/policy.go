package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/TheMichaelB/credvault/internal/models"
)

// policyFile is the on-disk shape of config.toml.
type policyFile struct {
	NewPasswordsConfig models.GenerationPolicy `toml:"new_passwords_config"`
}

// rawPolicyFile mirrors policyFile with pointers so absent keys are
// distinguishable from zero.
type rawPolicyFile struct {
	NewPasswordsConfig *struct {
		MinLength *uint32 `toml:"new_password_min_length"`
		MaxLength *uint32 `toml:"new_password_max_length"`
	} `toml:"new_passwords_config"`
}

// PolicyStore persists the generation policy as a TOML file. It holds no
// state besides the path; every call goes to disk.
type PolicyStore struct {
	path string
}

// NewPolicyStore creates a store for the policy file at path.
func NewPolicyStore(path string) *PolicyStore {
	return &PolicyStore{path: path}
}

// Path returns the policy file location.
func (s *PolicyStore) Path() string {
	return s.path
}

// Create writes p to a new policy file. It fails with
// models.ErrAlreadyInitialized if the file exists.
func (s *PolicyStore) Create(p models.GenerationPolicy) error {
	data, err := encodePolicy(p)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return models.ErrAlreadyInitialized
		}
		return fmt.Errorf("create policy file: %w", err)
	}

	success := false
	defer func() {
		f.Close()
		if !success {
			os.Remove(s.path)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync policy file: %w", err)
	}

	success = true
	return nil
}

// Load reads the current policy and checks its bounds.
func (s *PolicyStore) Load() (models.GenerationPolicy, error) {
	p, err := s.Read()
	if err != nil {
		return models.GenerationPolicy{}, err
	}

	if err := p.Validate(); err != nil {
		return models.GenerationPolicy{}, fmt.Errorf("policy file %s: %w", s.path, err)
	}

	return p, nil
}

// Read parses the policy file without checking the bounds against each
// other, so a read-modify-write can repair an inverted file. Unknown keys,
// a missing section or a missing bound are models.ErrInvalidConfig.
func (s *PolicyStore) Read() (models.GenerationPolicy, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.GenerationPolicy{}, models.ErrNotInitialized
		}
		return models.GenerationPolicy{}, fmt.Errorf("read policy file: %w", err)
	}

	var raw rawPolicyFile
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return models.GenerationPolicy{}, fmt.Errorf("%w: %s: unknown keys:\n%s", models.ErrInvalidConfig, s.path, strict.String())
		}
		return models.GenerationPolicy{}, fmt.Errorf("%w: parse policy file %s: %v", models.ErrInvalidConfig, s.path, err)
	}

	section := raw.NewPasswordsConfig
	switch {
	case section == nil:
		return models.GenerationPolicy{}, fmt.Errorf("%w: %s: missing [new_passwords_config]", models.ErrInvalidConfig, s.path)
	case section.MinLength == nil:
		return models.GenerationPolicy{}, fmt.Errorf("%w: %s: missing new_password_min_length", models.ErrInvalidConfig, s.path)
	case section.MaxLength == nil:
		return models.GenerationPolicy{}, fmt.Errorf("%w: %s: missing new_password_max_length", models.ErrInvalidConfig, s.path)
	}

	return models.GenerationPolicy{
		MinLength: *section.MinLength,
		MaxLength: *section.MaxLength,
	}, nil
}

// Save replaces the policy file in full. The file must already exist.
func (s *PolicyStore) Save(p models.GenerationPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.ErrNotInitialized
		}
		return fmt.Errorf("stat policy file: %w", err)
	}

	data, err := encodePolicy(p)
	if err != nil {
		return err
	}

	// Write atomically using temp file
	tempPath := fmt.Sprintf("%s.tmp.%d", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tempPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	if dir, err := os.Open(filepath.Dir(s.path)); err == nil {
		_ = dir.Sync()
		dir.Close()
	}

	return nil
}

func encodePolicy(p models.GenerationPolicy) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(policyFile{NewPasswordsConfig: p}); err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return buf.Bytes(), nil
}

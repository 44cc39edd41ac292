package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	// Storage paths and backend
	Storage StorageConfig `mapstructure:"storage" json:"storage"`

	// Encryption key source
	Key KeyConfig `mapstructure:"key" json:"key"`

	// Passphrase gate
	Gate GateConfig `mapstructure:"gate" json:"gate"`

	// Logging
	Log LogConfig `mapstructure:"log" json:"log"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	WorkDir    string `mapstructure:"work_dir" json:"work_dir"`       // Base directory for all vault data
	ConfigFile string `mapstructure:"config_file" json:"config_file"` // Policy file, relative to WorkDir
	RecordsDir string `mapstructure:"records_dir" json:"records_dir"` // Record directories, relative to WorkDir
	Backend    string `mapstructure:"backend" json:"backend"`         // dir, sqlite
	DBFile     string `mapstructure:"db_file" json:"db_file"`         // SQLite file, relative to WorkDir
}

// KeyConfig selects where the encryption key comes from.
type KeyConfig struct {
	Source   string `mapstructure:"source" json:"source"`                   // static, env, file, aws
	Value    string `mapstructure:"value" json:"-"`                         // static: hex, base64 or 32 raw chars
	Env      string `mapstructure:"env" json:"env,omitempty"`               // env: variable name
	File     string `mapstructure:"file" json:"file,omitempty"`             // file: key file path
	SecretID string `mapstructure:"secret_id" json:"secret_id,omitempty"`   // aws: secret name or ARN
	Region   string `mapstructure:"region" json:"region,omitempty"`         // aws: region override
}

// GateConfig for the passphrase check run before every command.
type GateConfig struct {
	Passphrase     string `mapstructure:"passphrase" json:"-"`
	PassphraseHash string `mapstructure:"passphrase_hash" json:"-"` // bcrypt
	TOTPSecret     string `mapstructure:"totp_secret" json:"-"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // text, json
	File   string `mapstructure:"file" json:"file"`     // Log file path (empty = stderr)
	Color  bool   `mapstructure:"color" json:"color"`   // Enable colored output
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			WorkDir:    ".",
			ConfigFile: "config.toml",
			RecordsDir: "passwords",
			Backend:    "dir",
			DBFile:     "credentials.db",
		},
		Key: KeyConfig{
			Source: "env",
			Env:    "CREDVAULT_KEY",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Color:  true,
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Storage.WorkDir == "" {
		return errors.New("storage.work_dir is required")
	}

	if c.Storage.ConfigFile == "" {
		return errors.New("storage.config_file is required")
	}

	validBackends := map[string]bool{"dir": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Storage.Backend == "dir" && c.Storage.RecordsDir == "" {
		return errors.New("storage.records_dir is required for the dir backend")
	}

	if c.Storage.Backend == "sqlite" && c.Storage.DBFile == "" {
		return errors.New("storage.db_file is required for the sqlite backend")
	}

	validSources := map[string]bool{"static": true, "env": true, "file": true, "aws": true}
	if !validSources[c.Key.Source] {
		return fmt.Errorf("invalid key source: %s", c.Key.Source)
	}

	if c.Gate.Passphrase == "" && c.Gate.PassphraseHash == "" {
		return errors.New("gate.passphrase or gate.passphrase_hash is required")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// PolicyPath is the location of the generation policy file.
func (c *Config) PolicyPath() string {
	return filepath.Join(c.Storage.WorkDir, c.Storage.ConfigFile)
}

// RecordsPath is the root directory of the dir backend.
func (c *Config) RecordsPath() string {
	return filepath.Join(c.Storage.WorkDir, c.Storage.RecordsDir)
}

// DBPath is the SQLite database of the sqlite backend.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.WorkDir, c.Storage.DBFile)
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.WorkDir}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

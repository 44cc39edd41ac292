package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CREDVAULT"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// Load reads configuration from defaults, file and environment, in that
// order of increasing precedence.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults(DefaultConfig())

	if err := l.bindEnv(); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if l.configPath != "" {
		if err := l.loadFile(l.configPath); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		// Try default locations
		for _, path := range l.defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				l.configPath = path
				if err := l.loadFile(path); err != nil {
					return nil, fmt.Errorf("load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.configPath
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{
		"credvault.yaml",
		".credvault.yaml",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "credvault", "config.yaml"),
			filepath.Join(homeDir, ".credvault", "config.yaml"),
		)
	}

	return paths
}

// loadFile reads config from a YAML, TOML or JSON file; viper picks the
// codec from the extension.
func (l *Loader) loadFile(path string) error {
	l.v.SetConfigFile(path)
	return l.v.ReadInConfig()
}

func (l *Loader) setDefaults(d *Config) {
	l.v.SetDefault("storage.work_dir", d.Storage.WorkDir)
	l.v.SetDefault("storage.config_file", d.Storage.ConfigFile)
	l.v.SetDefault("storage.records_dir", d.Storage.RecordsDir)
	l.v.SetDefault("storage.backend", d.Storage.Backend)
	l.v.SetDefault("storage.db_file", d.Storage.DBFile)

	l.v.SetDefault("key.source", d.Key.Source)
	l.v.SetDefault("key.value", d.Key.Value)
	l.v.SetDefault("key.env", d.Key.Env)
	l.v.SetDefault("key.file", d.Key.File)
	l.v.SetDefault("key.secret_id", d.Key.SecretID)
	l.v.SetDefault("key.region", d.Key.Region)

	l.v.SetDefault("gate.passphrase", d.Gate.Passphrase)
	l.v.SetDefault("gate.passphrase_hash", d.Gate.PassphraseHash)
	l.v.SetDefault("gate.totp_secret", d.Gate.TOTPSecret)

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.format", d.Log.Format)
	l.v.SetDefault("log.file", d.Log.File)
	l.v.SetDefault("log.color", d.Log.Color)
}

// bindEnv maps CREDVAULT_<SECTION>_<KEY> onto every key, plus short
// aliases for the settings people reach for most.
func (l *Loader) bindEnv() error {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	aliases := map[string]string{
		"storage.work_dir": EnvPrefix + "_WORK_DIR",
		"storage.backend":  EnvPrefix + "_BACKEND",
		"gate.passphrase":  EnvPrefix + "_PASSPHRASE",
	}
	for key, alias := range aliases {
		full := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := l.v.BindEnv(key, full, alias); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return nil
}

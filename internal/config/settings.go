package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// Settings holds the user-editable runtime configuration.
// Values are resolved in order: YAML file, environment, keyring (endpoint only).
type Settings struct {
	EndpointURL string   `yaml:"endpoint_url"`
	Language    string   `yaml:"language"`
	SourceMode  string   `yaml:"source_mode"`
	LocalPath   string   `yaml:"local_path"`
	DBPath      string   `yaml:"db_path"`
	ServerPort  string   `yaml:"server_port"`
	RefreshMin  int      `yaml:"refresh_interval_min"`
	Phones      []string `yaml:"phones"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		Language:   DefaultLanguage,
		SourceMode: SourceModeWeb,
		ServerPort: DefaultPort,
		RefreshMin: DefaultRefreshMin,
	}
}

// LoadSettings reads the settings file at path. An empty path falls back to
// $SVCREC_CONFIG and then to the per-user config directory; a missing default
// file is not an error.
func LoadSettings(path string) (Settings, error) {
	cfg := DefaultSettings()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path, explicit = env, true
		} else if p, err := DefaultSettingsPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Settings{}, fmt.Errorf("%s: %w", ErrConfigParse, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Settings{}, fmt.Errorf("%s: %w", ErrConfigRead, err)
		}
	}

	cfg.applyEnv()
	cfg.applyKeyring()

	if err := cfg.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", ErrConfigInvalid, err)
	}
	return cfg, nil
}

// DefaultSettingsPath returns <UserConfigDir>/<AppID>/config.yaml.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}
	return filepath.Join(dir, AppID, ConfigFileName), nil
}

// DefaultDBPath returns <UserCacheDir>/<AppID>/snapshots.db, creating the directory.
func DefaultDBPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrCacheDir, err)
	}
	appDir := filepath.Join(dir, AppID)
	if err := os.MkdirAll(appDir, DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", ErrCreateDir, err)
	}
	return filepath.Join(appDir, CacheFileName), nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvEndpoint); v != "" {
		s.EndpointURL = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		s.Language = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		s.ServerPort = v
	}
}

// applyKeyring fills the endpoint from the OS keyring when nothing else set it.
// The endpoint URL embeds the deployment key, so it is kept out of plain files when possible.
func (s *Settings) applyKeyring() {
	if s.EndpointURL != "" {
		return
	}
	v, err := keyring.Get(KeyringService, KeyringEndpoint)
	if err != nil {
		slog.Debug(MsgKeyringMiss,
			LogKeyComponent, CompConfig,
			LogKeyError, err)
		return
	}
	s.EndpointURL = v
}

// StoreEndpoint saves the endpoint URL in the OS keyring.
func StoreEndpoint(url string) error {
	if err := keyring.Set(KeyringService, KeyringEndpoint, url); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyringSet, err)
	}
	return nil
}

// Validate checks the fields that would otherwise fail late at runtime.
func (s Settings) Validate() error {
	if err := ValidatePort(s.ServerPort); err != nil {
		return err
	}
	switch s.SourceMode {
	case SourceModeWeb:
	case SourceModeLocal:
		if s.LocalPath == "" {
			return errors.New(ErrLocalPathEmpty)
		}
	default:
		return fmt.Errorf("%s: %q", ErrModeUnsupport, s.SourceMode)
	}
	return nil
}

// ValidatePort checks that port is a number in [MinPort, MaxPort].
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

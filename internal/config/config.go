// Package config loads sheet settings from defaults, an optional YAML file and
// SHEET_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/sheet/internal/migration"
	"github.com/pbaille/sheet/internal/skilltree"
	"github.com/pbaille/sheet/internal/storage"
)

// Config is the complete runtime configuration.
type Config struct {
	DBPath           string        `yaml:"db_path" env:"SHEET_DB_PATH"`
	Addr             string        `yaml:"addr" env:"SHEET_ADDR"`
	SchemaVersion    string        `yaml:"schema_version" env:"SHEET_SCHEMA_VERSION"`
	AppVersion       string        `yaml:"app_version" env:"SHEET_APP_VERSION"`
	MaxValueBytes    int           `yaml:"max_value_bytes" env:"SHEET_MAX_VALUE_BYTES"`
	TreeBonusFormula string        `yaml:"tree_bonus_formula" env:"SHEET_TREE_BONUS_FORMULA"`
	LogLevel         string        `yaml:"log_level" env:"SHEET_LOG_LEVEL"`
	LogFormat        string        `yaml:"log_format" env:"SHEET_LOG_FORMAT"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" env:"SHEET_FETCH_TIMEOUT"`
	// RemoteImport lets the HTTP server fetch snapshots from a caller-given URL.
	RemoteImport     bool          `yaml:"remote_import" env:"SHEET_REMOTE_IMPORT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:           defaultDBPath(),
		Addr:             ":8080",
		SchemaVersion:    migration.CurrentVersion,
		AppVersion:       migration.CurrentVersion,
		MaxValueBytes:    storage.DefaultMaxValueBytes,
		TreeBonusFormula: skilltree.DefaultFormula,
		LogLevel:         "info",
		LogFormat:        "text",
		FetchTimeout:     30 * time.Second,
	}
}

// Load builds a Config from defaults, then path (if not empty), then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays SHEET_* environment variables onto target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if strings.TrimSpace(c.SchemaVersion) == "" {
		errs = append(errs, errors.New("schema_version is required"))
	}
	if c.MaxValueBytes < 0 {
		errs = append(errs, fmt.Errorf("max_value_bytes must be >= 0, got %d", c.MaxValueBytes))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be >= 0, got %s", c.FetchTimeout))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not one of text, json", c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sheet.db"
	}
	return filepath.Join(home, ".sheet", "sheet.db")
}

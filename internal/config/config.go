package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/andy/casetrail/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultMaxHistoryLength bounds the change ops read per activity panel
const DefaultMaxHistoryLength = 50

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Activity panel settings
	History HistoryConfig `yaml:"history"`

	// Author of changes made from this installation
	User UserConfig `yaml:"user"`

	Log LogConfig `yaml:"log"`

	// Extra classes, merged over the built-in ones
	Classes []domain.ClassDef `yaml:"classes,omitempty"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database
}

type HistoryConfig struct {
	MaxLength int `yaml:"max_length"` // Change ops fetched per activity panel
}

type UserConfig struct {
	Login string `yaml:"login"`
	Name  string `yaml:"name"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfigPath returns ~/.config/casetrail/config.yaml
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		return filepath.Join(".", ".config", "casetrail", "config.yaml")
	}
	return filepath.Join(homeDir, ".config", "casetrail", "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	login := os.Getenv("USER")
	if login == "" {
		login = "admin"
	}

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, ".config", "casetrail", "casetrail.db"),
		},
		History: HistoryConfig{
			MaxLength: DefaultMaxHistoryLength,
		},
		User: UserConfig{
			Login: login,
			Name:  login,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist
func Load(path string) (*Config, error) {
	// If file doesn't exist, return defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate returns an error if the config cannot be used
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.History.MaxLength <= 0 {
		return errors.New("history.max_length must be positive")
	}
	if c.User.Login == "" {
		return errors.New("user.login is required")
	}
	return nil
}

// ClassRegistry builds the class registry: built-in classes, then configured ones
func (c *Config) ClassRegistry() (*domain.ClassRegistry, error) {
	defs := domain.DefaultClasses()
	defs = append(defs, c.Classes...)
	return domain.NewClassRegistry(defs...)
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDirectories creates the database directory
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0755)
}

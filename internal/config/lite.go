// Package config provides configuration management for the quoting server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for the standalone MCP server.
// It requires no Postgres or Redis and uses sensible defaults; the rate-table
// database is optional and only needed for the quote lookup tool.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Underwriting rules
	RulesPath           string        // Path to the underwriting rule document
	RulesReloadInterval time.Duration // How often to re-read the rule document

	// Rate tables (optional)
	DatabaseURL string // Postgres URL for rate tables; quote lookup is disabled when empty

	// Session settings
	SessionTTL time.Duration // Idle lifetime of interactive screening sessions

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".life-quote-server")

	return &LiteConfig{
		DataDir:             dataDir,
		RulesPath:           filepath.Join(dataDir, "underwriting_rules.json"),
		RulesReloadInterval: 5 * time.Minute,
		SessionTTL:          30 * time.Minute,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("LIFEQUOTE_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.RulesPath = filepath.Join(v, "underwriting_rules.json")
	}

	// Underwriting rules
	if v := os.Getenv("LIFEQUOTE_RULES_PATH"); v != "" {
		cfg.RulesPath = v
	}
	if v := os.Getenv("LIFEQUOTE_RULES_RELOAD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RulesReloadInterval = d
		}
	}

	// Rate tables
	cfg.DatabaseURL = os.Getenv("LIFEQUOTE_DATABASE_URL")

	// Sessions
	if v := os.Getenv("LIFEQUOTE_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("LIFEQUOTE_SESSION_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Minute
		}
	}

	// Logging
	if v := os.Getenv("LIFEQUOTE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LIFEQUOTE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// PreferencesDBPath returns the path to the carrier preference SQLite database.
func (c *LiteConfig) PreferencesDBPath() string {
	return filepath.Join(c.DataDir, "preferences.db")
}

// HasRateTables reports whether a rate-table database is configured.
func (c *LiteConfig) HasRateTables() bool {
	return c.DatabaseURL != ""
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

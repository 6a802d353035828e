// Package config defines the tool configuration and its loader.
package config

import (
	"errors"
	"fmt"
)

// Defaults applied when neither the config file nor the environment sets a
// value.
const (
	DefaultDatabaseDSN   = "file::memory:?cache=shared"
	DefaultHistoryDSN    = "veridata-history.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultMetricsListen = ":9464"
)

// ErrInvalidConfig is returned for semantically invalid configurations.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete tool configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	History  HistoryConfig  `mapstructure:"history"`
	States   StatesConfig   `mapstructure:"states"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig targets the analytical backend.
type DatabaseConfig struct {
	// DSN is the SQLite data source; the default is a private in-memory
	// database populated from the loaded dataset.
	DSN string `mapstructure:"dsn"`
}

// HistoryConfig controls persistence of verification outcomes.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// StatesConfig controls analyzer state snapshots.
type StatesConfig struct {
	// Dir is where state snapshots are written; empty disables snapshots.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is text or json.
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if c.History.Enabled && c.History.DSN == "" {
		return fmt.Errorf("%w: history.enabled requires history.dsn", ErrInvalidConfig)
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.enabled requires metrics.listen", ErrInvalidConfig)
	}

	return nil
}

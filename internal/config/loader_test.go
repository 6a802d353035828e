package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/config"
)

func TestLoad_NoFile_UsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nonexistent-but-unset"))
	require.Error(t, err)

	// An explicit path must exist; with no path, defaults apply.
	cfg, err = config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultDatabaseDSN, cfg.Database.DSN)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.False(t, cfg.History.Enabled)
}

func TestLoad_ExplicitFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veridata.yaml")
	content := `
database:
  dsn: quality.db
history:
  enabled: true
  dsn: history.db
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quality.db", cfg.Database.DSN)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "history.db", cfg.History.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_InvalidLogLevel_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veridata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644))

	_, err := config.Load(path)

	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VERIDATA_LOGGING_LEVEL", "warn")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate_HistoryWithoutDSN_Rejected(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		History: config.HistoryConfig{Enabled: true},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
}

func TestLogger_BuildsWithoutPanic(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Logging: config.LoggingConfig{Level: "debug", Format: "json"}}

	logger := cfg.Logger()

	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Debug("probe") })
}

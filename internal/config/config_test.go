package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "greedi-fi", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, "wss://test.deribit.com/ws/api/v2", cfg.Feed.URL)
	assert.Equal(t, []string{"BTC-PERPETUAL", "ETH-PERPETUAL"}, cfg.Feed.Symbols)
	assert.Equal(t, 60, cfg.Market.SnapshotTTLSeconds)
	assert.Equal(t, 5.0, cfg.Backtest.RequestsPerSecond)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Database.Enabled)

	require.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: greedi-fi
  environment: production
  log_level: warn
server:
  address: ":9000"
feed:
  url: wss://www.deribit.com/ws/api/v2
  symbols:
    - BTC-PERPETUAL
market:
  snapshot_ttl_seconds: 30
backtest:
  requests_per_second: 2
  request_burst: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "wss://www.deribit.com/ws/api/v2", cfg.Feed.URL)
	assert.Equal(t, 30, cfg.Market.SnapshotTTLSeconds)
	assert.Equal(t, 2.0, cfg.Backtest.RequestsPerSecond)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_FEED_KEY", "secret-key-123")
	path := writeConfigFile(t, `
feed:
  api_key: ${TEST_FEED_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key-123", cfg.Feed.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "qa" }},
		{"unknown log level", func(c *Config) { c.App.LogLevel = "trace" }},
		{"missing feed url", func(c *Config) { c.Feed.URL = "" }},
		{"no symbols", func(c *Config) { c.Feed.Symbols = nil }},
		{"zero snapshot ttl", func(c *Config) { c.Market.SnapshotTTLSeconds = 0 }},
		{"zero request rate", func(c *Config) { c.Backtest.RequestsPerSecond = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateDatabaseCrossField(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Database.Enabled = true
	assert.Error(t, Validate(cfg))

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Name = "greedi_fi"
	cfg.Database.User = "platform"
	cfg.Database.SSLMode = "disable"
	require.NoError(t, Validate(cfg))

	assert.Equal(t,
		"postgres://platform:@localhost:5432/greedi_fi?sslmode=disable",
		cfg.GetDatabaseDSN())
}

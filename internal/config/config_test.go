package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
app:
  name: keiba-analytics
  environment: development
  log_level: info
database:
  path: /tmp/keiba.db
  max_open_conns: 4
  max_idle_conns: 2
model:
  dir: models
  min_training_samples: 100
  cv_folds: 5
backtest:
  start_date: "2025-10-01"
  end_date: "2025-12-31"
  retrain_interval: weekly
  min_training_samples: 100
  max_past_results_per_horse: 20
  lightweight_training: true
simulator:
  top_n: 3
fetcher:
  base_url: https://db.netkeiba.com
  request_delay: 1.0
  timeout_seconds: 30
  max_retries: 3
  cache_ttl_hours: 24
metrics:
  enabled: false
  port: 9090
  path: /metrics
`

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "keiba-analytics", cfg.App.Name)
	assert.Equal(t, "/tmp/keiba.db", cfg.Database.Path)
	assert.Equal(t, "weekly", cfg.Backtest.RetrainInterval)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "file:/tmp/keiba.db?_fk=1", cfg.GetDatabaseDSN())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("KEIBA_TEST_DB", "/data/races.db")
	path := writeConfig(t, `
database:
  path: ${KEIBA_TEST_DB}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/races.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "weekly", cfg.Backtest.RetrainInterval)
	assert.Equal(t, 100, cfg.Backtest.MinTrainingSamples)
	assert.Equal(t, 20, cfg.Backtest.MaxPastResultsPerHorse)
	assert.Equal(t, 3, cfg.Simulator.TopN)
	assert.InDelta(t, 1.0, cfg.Fetcher.RequestDelay, 0.001)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "qa" }},
		{"bad log level", func(c *Config) { c.App.LogLevel = "verbose" }},
		{"bad retrain interval", func(c *Config) { c.Backtest.RetrainInterval = "hourly" }},
		{"bad date", func(c *Config) { c.Backtest.StartDate = "10/01/2025" }},
		{"window reversed", func(c *Config) {
			c.Backtest.StartDate = "2025-12-31"
			c.Backtest.EndDate = "2025-10-01"
		}},
		{"idle exceeds open", func(c *Config) { c.Database.MaxIdleConns = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validYAML))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

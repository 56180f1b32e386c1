package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromDir(t *testing.T, dir string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFromDir(t, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ict_backtest", cfg.Database.DBName)
	assert.Equal(t, 30, cfg.Analysis.RecentDays)
	assert.Equal(t, 90, cfg.Analysis.HistoricalDays)
	assert.Equal(t, 4, cfg.Analysis.MaxAlternates)
	assert.True(t, cfg.Analysis.CacheEnabled)
	assert.Equal(t, "configs/function_catalog.json", cfg.Registry.CatalogPath)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	payload := `
environment: production
server:
  port: 9000
analysis:
  recent_days: 14
  historical_days: 180
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(payload), 0o644))

	cfg, err := loadFromDir(t, dir)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Analysis.RecentDays)
	assert.Equal(t, 180, cfg.Analysis.HistoricalDays)
	// Untouched keys keep defaults.
	assert.Equal(t, 4, cfg.Analysis.MaxAlternates)
}

func TestLoadBindsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/backtest")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := loadFromDir(t, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres://user:pass@db:5432/backtest", cfg.Database.DatabaseURL)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

func TestAnalysisConfigDurations(t *testing.T) {
	cfg := AnalysisConfig{ExecutorTimeout: "10s", CacheTTL: "1m"}
	assert.Equal(t, 10*time.Second, cfg.ExecutorTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.CacheTTLDuration())

	// Empty and malformed values fall back to defaults.
	cfg = AnalysisConfig{ExecutorTimeout: "", CacheTTL: "soon"}
	assert.Equal(t, 30*time.Second, cfg.ExecutorTimeoutDuration())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTLDuration())

	cfg = AnalysisConfig{ExecutorTimeout: "-5s"}
	assert.Equal(t, 30*time.Second, cfg.ExecutorTimeoutDuration())
}

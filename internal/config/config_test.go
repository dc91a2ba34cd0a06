package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Tracking.ScanInterval)
	assert.Equal(t, time.Minute, cfg.Tracking.SchedulerRate)
	assert.Equal(t, 50, cfg.Tracking.BatchSize)
	assert.Equal(t, 45*time.Second, cfg.Scraper.NavTimeout)
	assert.Equal(t, 5, cfg.Scraper.MaxAttempts)
	assert.True(t, cfg.Scraper.Headless)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TRACKING_SCAN_INTERVAL", "15m")
	t.Setenv("SCRAPER_HEADLESS", "false")
	t.Setenv("SCRAPER_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Tracking.ScanInterval)
	assert.False(t, cfg.Scraper.Headless)
	assert.Equal(t, 3, cfg.Scraper.MaxAttempts)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("invalid port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing database host", func(t *testing.T) {
		cfg := base()
		cfg.Database.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero batch size", func(t *testing.T) {
		cfg := base()
		cfg.Tracking.BatchSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero attempts", func(t *testing.T) {
		cfg := base()
		cfg.Scraper.MaxAttempts = 0
		assert.Error(t, cfg.Validate())
	})
}

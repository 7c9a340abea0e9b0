package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGABANC/tls-gmail-watcher/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "from:(tlscontact.com)", cfg.PollQuery)
	assert.Equal(t, int64(10), cfg.PollLimit)
	assert.Equal(t, 3, cfg.PollMaxSendsPerRun)
	assert.Equal(t, 5, cfg.PollIntervalMinutes)
	assert.True(t, cfg.SearchInAnywhere)
	assert.Equal(t, 3, cfg.RateCapacity)
	assert.InDelta(t, 0.1, cfg.RateRefillPerSec, 1e-9)
	assert.Equal(t, "./data/processed.db", cfg.StorePath)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.EnableContinuous)
	assert.Equal(t, "me", cfg.GoogleUserEmail)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POLL_QUERY", "from:(visa.example.com)")
	t.Setenv("POLL_LIMIT", "25")
	t.Setenv("SEARCH_IN_ANYWHERE", "false")
	t.Setenv("ENABLE_CONTINUOUS_POLL", "true")
	t.Setenv("RATE_REFILL_PER_SEC", "0.5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "from:(visa.example.com)", cfg.PollQuery)
	assert.Equal(t, int64(25), cfg.PollLimit)
	assert.False(t, cfg.SearchInAnywhere)
	assert.True(t, cfg.EnableContinuous)
	assert.InDelta(t, 0.5, cfg.RateRefillPerSec, 1e-9)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("POLL_LIMIT", "0")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidateGoogle(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.ValidateGoogle()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID")

	cfg = &config.Config{
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		GoogleRefreshToken: "refresh",
	}
	assert.NoError(t, cfg.ValidateGoogle())
}

func TestValidateTelegram(t *testing.T) {
	cfg := &config.Config{TelegramBotToken: "token"}
	assert.Error(t, cfg.ValidateTelegram())

	cfg.TelegramChatID = "12345"
	assert.NoError(t, cfg.ValidateTelegram())
}

// Package config loads watcher settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every knob the watcher reads from the environment.
type Config struct {
	// Gmail.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleUserEmail    string

	// Telegram.
	TelegramBotToken string
	TelegramChatID   string

	// Poll cycle.
	PollQuery           string
	PollLimit           int64
	PollMaxSendsPerRun  int
	PollIntervalMinutes int
	SearchInAnywhere    bool
	SearchQueryExtra    string

	// Notification rate limiter (token bucket).
	RateCapacity     int
	RateRefillPerSec float64

	// Dedup store.
	StorePath     string
	RetentionDays int

	// Process shell.
	LogLevel         string
	Port             int
	EnableContinuous bool
}

// Load reads configuration from environment variables, applying the same
// defaults the service has always shipped with.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GOOGLE_USER_EMAIL", "me")
	v.SetDefault("POLL_QUERY", "from:(tlscontact.com)")
	v.SetDefault("POLL_LIMIT", 10)
	v.SetDefault("POLL_MAX_SENDS_PER_RUN", 3)
	v.SetDefault("POLL_INTERVAL_MINUTES", 5)
	v.SetDefault("SEARCH_IN_ANYWHERE", true)
	v.SetDefault("SEARCH_QUERY_EXTRA", "")
	v.SetDefault("RATE_CAPACITY", 3)
	v.SetDefault("RATE_REFILL_PER_SEC", 0.1)
	v.SetDefault("PROCESSED_STORE_SQLITE", "./data/processed.db")
	v.SetDefault("PROCESSED_RETENTION_DAYS", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 3000)
	v.SetDefault("ENABLE_CONTINUOUS_POLL", false)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REFRESH_TOKEN", "")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_CHAT_ID", "")

	cfg := &Config{
		GoogleClientID:      v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRefreshToken:  v.GetString("GOOGLE_REFRESH_TOKEN"),
		GoogleUserEmail:     v.GetString("GOOGLE_USER_EMAIL"),
		TelegramBotToken:    v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      v.GetString("TELEGRAM_CHAT_ID"),
		PollQuery:           v.GetString("POLL_QUERY"),
		PollLimit:           v.GetInt64("POLL_LIMIT"),
		PollMaxSendsPerRun:  v.GetInt("POLL_MAX_SENDS_PER_RUN"),
		PollIntervalMinutes: v.GetInt("POLL_INTERVAL_MINUTES"),
		SearchInAnywhere:    v.GetBool("SEARCH_IN_ANYWHERE"),
		SearchQueryExtra:    v.GetString("SEARCH_QUERY_EXTRA"),
		RateCapacity:        v.GetInt("RATE_CAPACITY"),
		RateRefillPerSec:    v.GetFloat64("RATE_REFILL_PER_SEC"),
		StorePath:           v.GetString("PROCESSED_STORE_SQLITE"),
		RetentionDays:       v.GetInt("PROCESSED_RETENTION_DAYS"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		Port:                v.GetInt("PORT"),
		EnableContinuous:    v.GetBool("ENABLE_CONTINUOUS_POLL"),
	}

	if cfg.PollLimit <= 0 {
		return nil, fmt.Errorf("POLL_LIMIT must be positive, got %d", cfg.PollLimit)
	}
	if cfg.PollMaxSendsPerRun < 0 {
		return nil, fmt.Errorf("POLL_MAX_SENDS_PER_RUN must not be negative, got %d", cfg.PollMaxSendsPerRun)
	}

	return cfg, nil
}

// ValidateGoogle checks that the headless Gmail credentials are present.
func (c *Config) ValidateGoogle() error {
	var missing []string
	if c.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if c.GoogleRefreshToken == "" {
		missing = append(missing, "GOOGLE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required Google OAuth credentials: set %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateTelegram checks that the Telegram credentials are present.
func (c *Config) ValidateTelegram() error {
	if c.TelegramBotToken == "" || c.TelegramChatID == "" {
		return fmt.Errorf("missing Telegram credentials: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}
	return nil
}

// Package config collects all environment-sourced settings into one
// immutable value so components never read process-wide state themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for render/wait tuning. Overridable via environment.
const (
	DefaultSourceURL    = "https://www.nseindia.com/reports/fii-dii"
	DefaultTableHeading = "FII/FPI & DII trading activity on NSE in Capital Market Segment"

	DefaultTableVisibleTimeout = 15 * time.Second
	DefaultHeaderReadyTimeout  = 20 * time.Second
	DefaultNavigationTimeout   = 30 * time.Second
	DefaultNudgeCount          = 4
	DefaultNudgeInterval       = 1500 * time.Millisecond
)

// Config holds every setting the pipeline needs. It is built once at
// startup and passed down by value.
type Config struct {
	SourceURL    string
	TableHeading string

	DatabaseURL string

	// Telegram delivery. Validated by the dispatcher, not here: the
	// credentials are only required on runs that actually insert new data.
	BotToken string
	ChatID   string

	TableVisibleTimeout time.Duration
	HeaderReadyTimeout  time.Duration
	NavigationTimeout   time.Duration
	NudgeCount          int
	NudgeInterval       time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first without overriding real env vars.
// DATABASE_URL is the only hard requirement at startup.
func Load() (Config, error) {
	// Missing .env is the normal case in deployment.
	_ = godotenv.Load()

	cfg := Config{
		SourceURL:    envOr("SOURCE_URL", DefaultSourceURL),
		TableHeading: envOr("TABLE_HEADING", DefaultTableHeading),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		BotToken:     os.Getenv("BOT_TOKEN"),
		ChatID:       os.Getenv("CHAT_ID"),

		TableVisibleTimeout: DefaultTableVisibleTimeout,
		HeaderReadyTimeout:  DefaultHeaderReadyTimeout,
		NavigationTimeout:   DefaultNavigationTimeout,
		NudgeCount:          DefaultNudgeCount,
		NudgeInterval:       DefaultNudgeInterval,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL not set")
	}

	var err error
	if cfg.TableVisibleTimeout, err = envDuration("TABLE_VISIBLE_TIMEOUT", cfg.TableVisibleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HeaderReadyTimeout, err = envDuration("HEADER_READY_TIMEOUT", cfg.HeaderReadyTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NavigationTimeout, err = envDuration("NAVIGATION_TIMEOUT", cfg.NavigationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NudgeInterval, err = envDuration("NUDGE_INTERVAL", cfg.NudgeInterval); err != nil {
		return Config{}, err
	}
	if cfg.NudgeCount, err = envInt("NUDGE_COUNT", cfg.NudgeCount); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

// Package config loads settings for both binaries from the environment and
// an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/sakif/feedclient/internal/auth"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	// Client
	APIURL    string
	AuthMode  auth.Mode
	Store     string
	StorePath string
	LogLevel  slog.Level
	PageSize  int

	// Stub API
	MockAddr      string
	MockJWTSecret string
}

// Load reads the config. Environment variables win over config.yaml, and
// config.yaml wins over the defaults. A missing config file is not an error.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("FEED_API_URL", "http://127.0.0.1:8000")
	v.SetDefault("FEED_AUTH_MODE", string(auth.ModeUsername))
	v.SetDefault("FEED_STORE", StoreSQLite)
	v.SetDefault("FEED_STORE_PATH", "data/feedcli.db")
	v.SetDefault("FEED_LOG_LEVEL", "warn")
	v.SetDefault("FEED_PAGE_SIZE", 10)

	v.SetDefault("MOCKAPI_ADDR", ":8000")
	// MOCKAPI_JWT_SECRET has no default; bearer mode refuses to start without it.

	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := &Config{
		APIURL:        strings.TrimRight(v.GetString("FEED_API_URL"), "/"),
		Store:         strings.ToLower(v.GetString("FEED_STORE")),
		StorePath:     v.GetString("FEED_STORE_PATH"),
		PageSize:      v.GetInt("FEED_PAGE_SIZE"),
		MockAddr:      v.GetString("MOCKAPI_ADDR"),
		MockJWTSecret: v.GetString("MOCKAPI_JWT_SECRET"),
	}

	mode, err := auth.ParseMode(v.GetString("FEED_AUTH_MODE"))
	if err != nil {
		return nil, fmt.Errorf("config: FEED_AUTH_MODE: %w", err)
	}
	cfg.AuthMode = mode

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("FEED_LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("config: FEED_LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have no sensible fallback.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: FEED_API_URL %q is not an http(s) URL", c.APIURL)
	}
	switch c.Store {
	case StoreSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("config: FEED_STORE_PATH is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown FEED_STORE %q", c.Store)
	}
	if c.PageSize < 1 || c.PageSize > 50 {
		return fmt.Errorf("config: FEED_PAGE_SIZE must be between 1 and 50, got %d", c.PageSize)
	}
	return nil
}

// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultAPIURL          = "http://127.0.0.1:8000"
	DefaultServerAddr      = ":8000"
	DefaultTokenTTL        = 30 * time.Minute
	DefaultSessionTTL      = 24 * time.Hour
	DefaultShutdownTimeout = 10 * time.Second
	devJWTSecret           = "drillsergeant-dev-secret"
)

type Config struct {
	// Client side.
	APIURL string
	DBPath string // empty means the platform data directory

	// Server side.
	ServerAddr      string
	JWTSecret       string
	TokenTTL        time.Duration
	SessionTTL      time.Duration // generated drills older than this are pruned
	ShutdownTimeout time.Duration

	LogLevel slog.Level
}

// Load reads an optional .env file, then DRILL_* variables. Malformed
// values are reported rather than silently replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:     strings.TrimRight(getenvDefault("DRILL_API_URL", DefaultAPIURL), "/"),
		DBPath:     os.Getenv("DRILL_DB"),
		ServerAddr: getenvDefault("DRILL_SERVER_ADDR", DefaultServerAddr),
		JWTSecret:  getenvDefault("DRILL_JWT_SECRET", devJWTSecret),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("DRILL_TOKEN_TTL", DefaultTokenTTL); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("DRILL_SESSION_TTL", DefaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("DRILL_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("DRILL_LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InsecureSecret reports whether the built-in development JWT secret is in use.
func (c *Config) InsecureSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getDuration(k string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s=%q is not a valid positive duration", k, v)
	}
	return d, nil
}

func getLevel(k string, fallback slog.Level) (slog.Level, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", k, v, err)
	}
	return l, nil
}

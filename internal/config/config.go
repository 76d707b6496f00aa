// Package config loads the build-time client configuration from the
// environment, with an optional .env file for development setups.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the client configuration.
type Config struct {
	// APIURL is the build-time prediction backend URL. May be empty;
	// the endpoint resolver then falls through to auto-detection.
	APIURL string
	// UploadURL is the history/storage backend base URL.
	UploadURL string
	// Timeout is the hard per-request deadline.
	Timeout time.Duration
	// ByteBudget is the preprocessing target size in bytes.
	ByteBudget int
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Timeout:    90 * time.Second,
		ByteBudget: 900 * 1024,
	}
}

// LoadFromEnv reads configuration from the environment. A .env file in
// the working directory is honored when present.
func LoadFromEnv() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:     strings.TrimSpace(os.Getenv("TALISAY_API_URL")),
		UploadURL:  strings.TrimSpace(os.Getenv("TALISAY_UPLOAD_URL")),
		Timeout:    parseDurationOrDefault("TALISAY_TIMEOUT", 90*time.Second),
		ByteBudget: parseIntOrDefault("TALISAY_BYTE_BUDGET", 900*1024),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", c.Timeout)
	}
	if c.ByteBudget <= 0 {
		return fmt.Errorf("byte budget must be > 0 (got %d)", c.ByteBudget)
	}
	if c.APIURL != "" && !strings.HasPrefix(c.APIURL, "http") {
		return fmt.Errorf("invalid TALISAY_API_URL: %q", c.APIURL)
	}
	return nil
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

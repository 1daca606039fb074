// Package config loads runtime configuration from the environment, with
// optional .env file support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime settings.
type Config struct {
	// Token authenticates against the GitHub API (required).
	Token string

	// Org is the organization to analyze.
	Org string

	// OutputDir is where reports and charts are written.
	OutputDir string

	// RequestTimeout is the per-request HTTP timeout.
	RequestTimeout time.Duration

	// MaxRetries is the attempt cap per API call.
	MaxRetries int

	// Backoff is the base exponential backoff wait.
	Backoff time.Duration

	// Workers bounds the per-member fan-out.
	Workers int

	// ContributionLimit caps org-owned pull requests fetched per member.
	ContributionLimit int

	// RedisAddr enables the response cache when non-empty.
	RedisAddr string

	// LogLevel sets the zerolog level (trace, debug, info, warn, error).
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment only")
	}

	return Config{
		Token:             os.Getenv("GITHUB_TOKEN"),
		Org:               os.Getenv("GITHUB_ORG"),
		OutputDir:         envString("OUTPUT_DIR", "output"),
		RequestTimeout:    envSeconds("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries:        envInt("MAX_RETRIES", 3),
		Backoff:           envSeconds("RETRY_BACKOFF_SECONDS", 2*time.Second),
		Workers:           envInt("MAX_WORKERS", 5),
		ContributionLimit: envInt("CONTRIBUTION_LIMIT", 10),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		LogLevel:          envString("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if c.Org == "" {
		return fmt.Errorf("organization is required (GITHUB_ORG or --org)")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration in environment, using default")
		return fallback
	}
	return time.Duration(n) * time.Second
}

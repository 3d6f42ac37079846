package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures the runtime configuration for the relay service.
type Config struct {
	Host            string
	Port            int
	LogLevel        string
	UpstreamTimeout time.Duration
	CacheLimit      int
	PreheatOnStart  bool
}

// Load reads configuration from environment variables, applying sensible
// defaults for local use while allowing overrides through the environment.
func Load() (Config, error) {
	cfg := Config{
		Host:            getString("ANIME1_HOST", "127.0.0.1"),
		Port:            getInt("ANIME1_PORT", 8520),
		LogLevel:        getString("ANIME1_LOG_LEVEL", "info"),
		UpstreamTimeout: getDuration("ANIME1_UPSTREAM_TIMEOUT", 30*time.Second),
		CacheLimit:      getInt("ANIME1_CACHE_LIMIT", 128),
		PreheatOnStart:  getBool("ANIME1_PREHEAT", false),
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

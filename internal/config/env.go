package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Runtime holds process settings read from SPECGATE_* environment
// variables.
type Runtime struct {
	DataDir        string
	HTTPAddr       string
	APIKey         string
	LogLevel       string
	LogFormat      string
	MaxConcurrency int
	WatchDebounce  time.Duration
}

// LoadRuntime reads the environment, falling back to defaults for unset
// or unparsable values.
func LoadRuntime() Runtime {
	rt := Runtime{
		DataDir:        envOr("SPECGATE_DATA_DIR", defaultDataDir()),
		HTTPAddr:       envOr("SPECGATE_HTTP_ADDR", ":8088"),
		APIKey:         os.Getenv("SPECGATE_API_KEY"),
		LogLevel:       envOr("SPECGATE_LOG_LEVEL", "info"),
		LogFormat:      envOr("SPECGATE_LOG_FORMAT", "text"),
		MaxConcurrency: envInt("SPECGATE_MAX_CONCURRENCY", 4),
		WatchDebounce:  envDuration("SPECGATE_WATCH_DEBOUNCE", 300*time.Millisecond),
	}

	if rt.MaxConcurrency <= 0 {
		rt.MaxConcurrency = 4
	}
	if rt.WatchDebounce <= 0 {
		rt.WatchDebounce = 300 * time.Millisecond
	}
	return rt
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".specgate-data"
	}
	return filepath.Join(home, ".specgate")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

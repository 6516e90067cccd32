// Package config loads client configuration from environment variables
// using go-envconfig.
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// APIBaseURL is the root of the tracker REST API.
	APIBaseURL string `env:"TRACKER_API_URL, default=http://localhost:8000"`
	// RequestTimeout bounds every individual gateway call.
	RequestTimeout time.Duration `env:"TRACKER_REQUEST_TIMEOUT, default=10s"`
	// CredentialsFile is the single persisted session slot. Empty means the
	// per-user default under the OS config directory.
	CredentialsFile string `env:"TRACKER_CREDENTIALS_FILE"`
	// OfflineFallback enables placeholder seeding when a refresh fails with
	// a network error and the store is empty.
	OfflineFallback bool   `env:"TRACKER_OFFLINE_FALLBACK, default=true"`
	LogLevel        string `env:"TRACKER_LOG_LEVEL, default=info"`
	LogPretty       bool   `env:"TRACKER_LOG_PRETTY, default=false"`
}

// Load reads configuration from the environment. Missing optional values
// fall back to their defaults; an unparsable environment is fatal.
func Load(log zerolog.Logger) *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		panic(err)
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = defaultCredentialsFile()
	}
	return &cfg
}

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tracker", "session.json")
}

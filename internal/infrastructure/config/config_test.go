package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskboard/tracker-core/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(logger.New(logger.Options{Level: "error"}))

	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.OfflineFallback)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, strings.HasSuffix(cfg.CredentialsFile, "session.json"))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TRACKER_API_URL", "https://tracker.internal:9443")
	t.Setenv("TRACKER_REQUEST_TIMEOUT", "3s")
	t.Setenv("TRACKER_OFFLINE_FALLBACK", "false")
	t.Setenv("TRACKER_CREDENTIALS_FILE", "/tmp/slot.json")
	t.Setenv("TRACKER_LOG_LEVEL", "debug")

	cfg := Load(logger.New(logger.Options{Level: "error"}))

	assert.Equal(t, "https://tracker.internal:9443", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.OfflineFallback)
	assert.Equal(t, "/tmp/slot.json", cfg.CredentialsFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadPanicsOnUnparsableEnvironment(t *testing.T) {
	t.Setenv("TRACKER_REQUEST_TIMEOUT", "not-a-duration")

	assert.Panics(t, func() {
		Load(logger.New(logger.Options{Level: "error"}))
	})
}

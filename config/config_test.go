package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, ".devsync", cfg.DataDir)
	assert.Equal(t, "http://localhost:3001", cfg.APIBaseURL)
	assert.Equal(t, "127.0.0.1:8080", cfg.RelayAddr)
	assert.Equal(t, 600*time.Millisecond, cfg.StoreLatency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Dev)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DEVSYNC_MODE", "remote")
	t.Setenv("DEVSYNC_DATA_DIR", "/tmp/devsync-test")
	t.Setenv("DEVSYNC_API_URL", "http://api.internal:9000")
	t.Setenv("DEVSYNC_STORE_LATENCY_MS", "0")
	t.Setenv("DEVSYNC_DEV", "true")

	cfg := Load()

	assert.Equal(t, ModeRemote, cfg.Mode)
	assert.Equal(t, "/tmp/devsync-test", cfg.DataDir)
	assert.Equal(t, "http://api.internal:9000", cfg.APIBaseURL)
	assert.Equal(t, time.Duration(0), cfg.StoreLatency)
	assert.True(t, cfg.Dev)
}

func TestLoadIgnoresInvalidLatency(t *testing.T) {
	t.Setenv("DEVSYNC_STORE_LATENCY_MS", "not-a-number")

	cfg := Load()
	assert.Equal(t, 600*time.Millisecond, cfg.StoreLatency)
}

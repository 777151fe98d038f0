package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"devsync/pkg/logger"
)

// Mode selects the backing store for documents and auth.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

type Config struct {
	Mode       Mode
	DataDir    string // directory holding the persisted collections and session
	APIBaseURL string // remote document/auth API, used when Mode is remote
	RelayAddr  string // loopback address of the sync relay
	JWTSecret  string

	// StoreLatency is the simulated round-trip cost applied to every local
	// store operation, for parity with remote mode.
	StoreLatency time.Duration

	LogLevel string
	Dev      bool
}

// Load reads configuration from a .env file and the OS environment.
// Missing values fall back to local-mode defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg := Config{
		Mode:         ModeLocal,
		DataDir:      envOr("DEVSYNC_DATA_DIR", ".devsync"),
		APIBaseURL:   envOr("DEVSYNC_API_URL", "http://localhost:3001"),
		RelayAddr:    envOr("DEVSYNC_RELAY_ADDR", "127.0.0.1:8080"),
		JWTSecret:    envOr("DEVSYNC_JWT_SECRET", "dev_secret"),
		StoreLatency: 600 * time.Millisecond,
		LogLevel:     envOr("DEVSYNC_LOG_LEVEL", "info"),
	}

	if mode := strings.TrimSpace(os.Getenv("DEVSYNC_MODE")); mode == string(ModeRemote) {
		cfg.Mode = ModeRemote
	}
	if raw := strings.TrimSpace(os.Getenv("DEVSYNC_STORE_LATENCY_MS")); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			cfg.StoreLatency = time.Duration(ms) * time.Millisecond
		}
	}
	if raw := strings.TrimSpace(os.Getenv("DEVSYNC_DEV")); raw != "" {
		cfg.Dev, _ = strconv.ParseBool(raw)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server ServerConfig
	Poll   PollConfig
	Socket SocketConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:5173)
}

// PollConfig holds poll session defaults.
type PollConfig struct {
	DefaultTimeLimitSeconds int // used when a teacher opens a question without a time limit
}

// SocketConfig holds WebSocket tunables.
type SocketConfig struct {
	// ReplayDelayMs delays the active-question replay to a fresh connection so the
	// client has a chance to register its handlers first. A tunable, not a
	// correctness mechanism.
	ReplayDelayMs int
}

// Load reads configuration from environment variables (.env is loaded if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3001"),
			ReadTimeout:        getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:       getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Poll: PollConfig{
			DefaultTimeLimitSeconds: getEnvInt("POLL_DEFAULT_TIME_LIMIT", 60),
		},
		Socket: SocketConfig{
			ReplayDelayMs: getEnvInt("REPLAY_DELAY_MS", 100),
		},
	}

	if cfg.Poll.DefaultTimeLimitSeconds <= 0 {
		return nil, fmt.Errorf("POLL_DEFAULT_TIME_LIMIT must be positive, got %d", cfg.Poll.DefaultTimeLimitSeconds)
	}
	if cfg.Socket.ReplayDelayMs < 0 {
		return nil, fmt.Errorf("REPLAY_DELAY_MS must not be negative, got %d", cfg.Socket.ReplayDelayMs)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the server runtime configuration, loaded from the
// environment with an optional .env file.
type Config struct {
	Addr     string
	LogLevel string

	DisconnectGrace time.Duration
	RoomEmptyGrace  time.Duration
	RoomInactiveTTL time.Duration
	SweepInterval   time.Duration
}

// Load reads the environment. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getEnv("ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DisconnectGrace: getDuration("DISCONNECT_GRACE", 60*time.Second),
		RoomEmptyGrace:  getDuration("ROOM_EMPTY_GRACE", 2*time.Minute),
		RoomInactiveTTL: getDuration("ROOM_INACTIVE_TTL", 2*time.Hour),
		SweepInterval:   getDuration("SWEEP_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// Bare numbers mean seconds.
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

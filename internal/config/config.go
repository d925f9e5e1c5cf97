package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Notification pipeline
	ReconcileInterval time.Duration // how often the pending queue is swept
	MaxRetries        int           // not-ready passes before an item is dropped

	// Webhook destinations
	WebhookURLs    []string
	WebhookTimeout time.Duration
	RateLimit      int // max deliveries per second per destination

	// Identity stamped into every payload
	ServerID   string
	ServerName string
	ServerURL  string
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 5*time.Second),
		MaxRetries:        getInt("MAX_RETRIES", 10),

		WebhookURLs:    getList("WEBHOOK_URLS"),
		WebhookTimeout: getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		RateLimit:      getInt("RATE_LIMIT_PER_DESTINATION", 10),

		ServerID:   getEnv("SERVER_ID", "default"),
		ServerName: getEnv("SERVER_NAME", "media-library"),
		ServerURL:  getEnv("SERVER_URL", "http://localhost:8080"),
	}

	// Pipeline knobs must be positive; zero or negative values would spin
	// the sweep loop or drop every item on sight.
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", cfg.ReconcileInterval)
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("MAX_RETRIES must be positive, got %d", cfg.MaxRetries)
	}
	if cfg.RateLimit <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_DESTINATION must be positive, got %d", cfg.RateLimit)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getList splits a comma-separated variable, trimming whitespace and
// dropping empty entries.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

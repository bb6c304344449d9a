package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL and the Pusher
// credentials are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database (delivery audit log)
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Pusher provider
	PusherHost      string
	PusherAppID     string
	PusherKey       string
	PusherSecret    string
	PusherTimeout   time.Duration
	OutboundPerSec  int

	// Rate limiting: per-key token bucket plus fixed minute/hour windows
	RateCapacity     int
	RateMaxPerMinute int
	RateMaxPerHour   int
	SweepInterval    time.Duration
	BucketMaxIdle    time.Duration

	// Batching
	BatchEnabled bool
	BatchMaxSize int
	BatchMaxWait time.Duration

	// Retry (urgent delivery path)
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMultiplier   float64
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	appID := os.Getenv("PUSHER_APP_ID")
	key := os.Getenv("PUSHER_KEY")
	secret := os.Getenv("PUSHER_SECRET")
	if appID == "" || key == "" || secret == "" {
		return nil, fmt.Errorf("PUSHER_APP_ID, PUSHER_KEY and PUSHER_SECRET are required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		PusherHost:     getEnv("PUSHER_HOST", "https://api.pusherapp.com"),
		PusherAppID:    appID,
		PusherKey:      key,
		PusherSecret:   secret,
		PusherTimeout:  getDuration("PUSHER_TIMEOUT", 10*time.Second),
		OutboundPerSec: getInt("OUTBOUND_RATE_PER_SEC", 500),

		RateCapacity:     getInt("RATE_CAPACITY", 10),
		RateMaxPerMinute: getInt("RATE_MAX_PER_MINUTE", 60),
		RateMaxPerHour:   getInt("RATE_MAX_PER_HOUR", 1000),
		SweepInterval:    getDuration("RATE_SWEEP_INTERVAL", 10*time.Minute),
		BucketMaxIdle:    getDuration("RATE_BUCKET_MAX_IDLE", time.Hour),

		BatchEnabled: getBool("BATCH_ENABLED", true),
		BatchMaxSize: getInt("BATCH_MAX_SIZE", 10),
		BatchMaxWait: getDuration("BATCH_MAX_WAIT", time.Second),

		RetryMaxAttempts:  getInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: getDuration("RETRY_INITIAL_DELAY", time.Second),
		RetryMultiplier:   getFloat("RETRY_MULTIPLIER", 2.0),
	}, nil
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

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

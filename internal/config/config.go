// Package config loads the client configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Decision store backends
const (
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all client settings.
type Config struct {
	// Backend base URL
	APIBaseURL string

	// Per-request timeout for backend calls
	APITimeout time.Duration

	// Bearer token of the signed-in user
	AuthToken string

	// How often an open conversation is refreshed
	PollInterval time.Duration

	// Lifetime of an idle session
	SessionTTL time.Duration

	// How long another user's profile is reused before refetching
	ProfileTTL time.Duration

	// Where liked/disliked ids survive restarts: sqlite, redis or postgres.
	// memory keeps them for one process only.
	DecisionStore string

	// Local database file for the sqlite store
	SQLitePath string

	Redis    RedisSettings
	Postgres PostgresSettings

	Environment string
}

// RedisSettings configures the Redis decision store.
type RedisSettings struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	// Prepended to every decision set key
	KeyPrefix string
}

// PostgresSettings configures the Postgres decision store.
type PostgresSettings struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load reads an optional .env file, then environment variables.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:5001"),
		APITimeout:    getEnvDuration("API_TIMEOUT", 30*time.Second),
		AuthToken:     os.Getenv("AUTH_TOKEN"),
		PollInterval:  getEnvDuration("POLL_INTERVAL", 10*time.Second),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		ProfileTTL:    getEnvDuration("PROFILE_TTL", 5*time.Minute),
		DecisionStore: getEnv("DECISION_STORE", StoreSQLite),
		SQLitePath:    getEnv("SQLITE_PATH", defaultSQLitePath()),
		Redis: RedisSettings{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 4),

			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "swipe:"),
		},
		Postgres: PostgresSettings{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "swipe"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	switch c.DecisionStore {
	case StoreMemory, StoreRedis:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DECISION_STORE=sqlite")
		}
	case StorePostgres:
		if c.Postgres.User == "" {
			return fmt.Errorf("DB_USER is required when DECISION_STORE=postgres")
		}
	default:
		return fmt.Errorf("DECISION_STORE must be one of sqlite, memory, redis, postgres; got %q", c.DecisionStore)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// defaultSQLitePath is decisions.db under the user's config directory,
// or under ./.swipe when there is none.
func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".swipe", "decisions.db")
	}
	return filepath.Join(dir, "swipe", "decisions.db")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

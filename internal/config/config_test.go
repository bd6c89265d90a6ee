package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"API_BASE_URL", "API_TIMEOUT", "AUTH_TOKEN", "POLL_INTERVAL", "SESSION_TTL", "PROFILE_TTL",
		"DECISION_STORE", "SQLITE_PATH", "REDIS_HOST", "REDIS_PORT", "REDIS_KEY_PREFIX", "DB_USER", "ENVIRONMENT",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5001", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.ProfileTTL)
	assert.Equal(t, StoreSQLite, cfg.DecisionStore)
	assert.Equal(t, "decisions.db", filepath.Base(cfg.SQLitePath))
	assert.Equal(t, "swipe:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://api.example.test")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("DECISION_STORE", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("AUTH_TOKEN", "tok")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, StoreRedis, cfg.DecisionStore)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, "tok", cfg.AuthToken)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"relative base url", map[string]string{"API_BASE_URL": "/api"}},
		{"unknown store", map[string]string{"DECISION_STORE": "leveldb"}},
		{"postgres without user", map[string]string{"DECISION_STORE": "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_BadDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_TIMEOUT", "soon")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
}

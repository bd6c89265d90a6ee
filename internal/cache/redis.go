// Package cache keeps decision sets in Redis so they survive client restarts
// and can be shared by every client the same user runs on one host.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	// Prepended to every key, e.g. "swipe:" gives "swipe:liked_profiles_<uid>"
	KeyPrefix string
}

// RedisClientInterface is the subset of the go-redis client the store uses
type RedisClientInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisDecisionStore stores each id set as a JSON array under its key, with no
// expiry: sets only go away through Delete.
type RedisDecisionStore struct {
	client RedisClientInterface
	prefix string
}

// NewRedisDecisionStore connects to Redis and verifies the connection
func NewRedisDecisionStore(ctx context.Context, config *RedisConfig) (*RedisDecisionStore, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "redis_connection",
		"service":   "cache",
		"host":      config.Host,
		"port":      config.Port,
		"db":        config.DB,
		"pool_size": config.PoolSize,
	})

	logger.Info("Establishing Redis connection")

	client := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: 3,
	})
	telemetry.InstrumentRedisClient(client)

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connected successfully")
	return NewRedisDecisionStoreWithClient(client, config.KeyPrefix), nil
}

// NewRedisDecisionStoreWithClient wraps an existing client
func NewRedisDecisionStoreWithClient(client RedisClientInterface, prefix string) *RedisDecisionStore {
	return &RedisDecisionStore{client: client, prefix: prefix}
}

// LoadIDs returns the set stored at key; a missing key is an empty set
func (r *RedisDecisionStore) LoadIDs(ctx context.Context, key string) ([]string, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "redis_load_ids",
		"key":       key,
		"service":   "cache",
	})

	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			logger.Debug("Cache miss - key not found")
			return nil, nil
		}
		logger.WithError(err).Error("Failed to load decision set")
		return nil, apperrors.NewCacheError("load_ids", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(val), &ids); err != nil {
		logger.WithError(err).Warn("Stored decision set is not a JSON array")
		return nil, apperrors.NewCacheError("decode_ids", err)
	}

	logger.WithField("count", len(ids)).Debug("Decision set loaded")
	return ids, nil
}

// SaveIDs overwrites the set stored at key
func (r *RedisDecisionStore) SaveIDs(ctx context.Context, key string, ids []string) error {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "redis_save_ids",
		"key":       key,
		"count":     len(ids),
		"service":   "cache",
	})

	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return apperrors.NewCacheError("encode_ids", err)
	}

	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		logger.WithError(err).Error("Failed to save decision set")
		return apperrors.NewCacheError("save_ids", err)
	}

	logger.Debug("Decision set saved")
	return nil
}

// Delete removes the given keys
func (r *RedisDecisionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}

	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"operation": "redis_delete",
			"keys":      prefixed,
			"service":   "cache",
		}).WithError(err).Error("Failed to delete decision sets")
		return apperrors.NewCacheError("delete", err)
	}
	return nil
}

// HealthCheck pings Redis
func (r *RedisDecisionStore) HealthCheck(ctx context.Context) bool {
	return r.Health(ctx) == nil
}

// Health pings Redis and returns the failure, if any
func (r *RedisDecisionStore) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return apperrors.NewCacheError("ping", err)
	}
	return nil
}

// Close releases the connection pool
func (r *RedisDecisionStore) Close() error {
	return r.client.Close()
}

package cache

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisContainer manages a Redis test container
type RedisContainer struct {
	container testcontainers.Container
	host      string
	port      int
}

// StartRedisContainer starts a Redis container for testing
func StartRedisContainer(ctx context.Context) (*RedisContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}

	mappedPort, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(mappedPort.Port())
	if err != nil {
		return nil, err
	}

	return &RedisContainer{container: container, host: host, port: port}, nil
}

// Stop terminates the Redis container
func (rc *RedisContainer) Stop(ctx context.Context) error {
	return rc.container.Terminate(ctx)
}

func TestRedisDecisionStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	redisContainer, err := StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisContainer.Stop(ctx)

	store, err := NewRedisDecisionStore(ctx, &RedisConfig{
		Host:      redisContainer.host,
		Port:      redisContainer.port,
		PoolSize:  2,
		KeyPrefix: "it:",
	})
	require.NoError(t, err)
	defer store.Close()

	t.Run("missing key loads empty", func(t *testing.T) {
		ids, err := store.LoadIDs(ctx, "liked_profiles_nobody")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, store.SaveIDs(ctx, "liked_profiles_u1", []string{"a", "b"}))
		ids, err := store.LoadIDs(ctx, "liked_profiles_u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, store.SaveIDs(ctx, "liked_profiles_u1", []string{"c"}))
		ids, err := store.LoadIDs(ctx, "liked_profiles_u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.SaveIDs(ctx, "disliked_profiles_u1", []string{"z"}))
		require.NoError(t, store.Delete(ctx, "liked_profiles_u1", "disliked_profiles_u1"))

		ids, err := store.LoadIDs(ctx, "disliked_profiles_u1")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	assert.True(t, store.HealthCheck(ctx))
}

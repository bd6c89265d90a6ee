package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
)

// MockRedisClient is a mock implementation of RedisClientInterface
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis.NewStatusCmd(ctx)
	if args.Error(1) != nil {
		cmd.SetErr(args.Error(1))
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis.NewStringCmd(ctx)
	if args.Error(1) != nil {
		cmd.SetErr(args.Error(1))
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	cmd := redis.NewIntCmd(ctx)
	if args.Error(1) != nil {
		cmd.SetErr(args.Error(1))
	} else {
		cmd.SetVal(args.Get(0).(int64))
	}
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	args := m.Called(ctx)
	cmd := redis.NewStatusCmd(ctx)
	if args.Error(1) != nil {
		cmd.SetErr(args.Error(1))
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestRedisDecisionStore_LoadIDs(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "swipe:")

	mockClient.On("Get", mock.Anything, "swipe:liked_profiles_u1").Return(`["a","b"]`, nil)

	ids, err := store.LoadIDs(context.Background(), "liked_profiles_u1")

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	mockClient.AssertExpectations(t)
}

func TestRedisDecisionStore_LoadIDs_Missing(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "")

	mockClient.On("Get", mock.Anything, "disliked_profiles_u1").Return("", redis.Nil)

	ids, err := store.LoadIDs(context.Background(), "disliked_profiles_u1")

	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisDecisionStore_LoadIDs_Corrupt(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "")

	mockClient.On("Get", mock.Anything, "k").Return("not json", nil)

	_, err := store.LoadIDs(context.Background(), "k")

	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeCache))
}

func TestRedisDecisionStore_SaveIDs(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "swipe:")

	mockClient.On("Set", mock.Anything, "swipe:k", []byte(`["x","y"]`), time.Duration(0)).Return("OK", nil)

	err := store.SaveIDs(context.Background(), "k", []string{"x", "y"})

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestRedisDecisionStore_SaveIDs_NilIsEmptyArray(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "")

	mockClient.On("Set", mock.Anything, "k", []byte(`[]`), time.Duration(0)).Return("OK", nil)

	assert.NoError(t, store.SaveIDs(context.Background(), "k", nil))
	mockClient.AssertExpectations(t)
}

func TestRedisDecisionStore_SaveIDs_Error(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "")

	mockClient.On("Set", mock.Anything, "k", mock.Anything, mock.Anything).Return("", errors.New("READONLY"))

	err := store.SaveIDs(context.Background(), "k", []string{"x"})

	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeCache))
}

func TestRedisDecisionStore_Delete(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "swipe:")

	mockClient.On("Del", mock.Anything, []string{"swipe:a", "swipe:b"}).Return(int64(2), nil)

	assert.NoError(t, store.Delete(context.Background(), "a", "b"))
	assert.NoError(t, store.Delete(context.Background()))
	mockClient.AssertExpectations(t)
}

func TestRedisDecisionStore_HealthCheckAndClose(t *testing.T) {
	mockClient := &MockRedisClient{}
	store := NewRedisDecisionStoreWithClient(mockClient, "")

	mockClient.On("Ping", mock.Anything).Return("PONG", nil).Once()
	mockClient.On("Ping", mock.Anything).Return("", errors.New("down")).Once()
	mockClient.On("Close").Return(nil)

	assert.True(t, store.HealthCheck(context.Background()))
	assert.False(t, store.HealthCheck(context.Background()))
	assert.NoError(t, store.Close())
}

package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type mapStore struct {
	data    map[string][]string
	failing bool
}

func (m *mapStore) LoadIDs(_ context.Context, key string) ([]string, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	return m.data[key], nil
}

func (m *mapStore) SaveIDs(_ context.Context, key string, ids []string) error {
	if m.failing {
		return errors.New("store down")
	}
	m.data[key] = ids
	return nil
}

func (m *mapStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestInstrumentedStore_PassesThroughAndCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	backing := &mapStore{data: map[string][]string{}}
	store, err := InstrumentStoreWithProvider(backing, "memory", provider)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.SaveIDs(ctx, "liked_profiles_u1", []string{"a", "b"}))
	ids, err := store.LoadIDs(ctx, "liked_profiles_u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	require.NoError(t, store.Delete(ctx, "liked_profiles_u1"))
	assert.Empty(t, backing.data)

	backing.failing = true
	_, err = store.LoadIDs(ctx, "liked_profiles_u1")
	assert.EqualError(t, err, "store down")

	assert.Equal(t, int64(4), collect(t, reader)["decision_store_operations_total"])
}

package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_GetSet(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	err := adapter.Set(ctx, "key1", json.RawMessage(`"value1"`))
	require.NoError(t, err)

	raw, ok, err := adapter.Get(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, json.RawMessage(`"value1"`), raw)

	_, ok, err = adapter.Get(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAdapter_CopiesValues(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	value := json.RawMessage(`{"a":1}`)
	require.NoError(t, adapter.Set(ctx, "k", value))
	value[2] = 'b'

	raw, _, _ := adapter.Get(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(raw))

	raw[2] = 'c'
	again, _, _ := adapter.Get(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestMemoryAdapter_DeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	_ = adapter.Set(ctx, "key1", json.RawMessage(`"v1"`))
	_ = adapter.Set(ctx, "key2", json.RawMessage(`"v2"`))

	keys, err := adapter.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key1", "key2"}, keys)

	require.NoError(t, adapter.Delete(ctx, "key1"))
	require.NoError(t, adapter.Delete(ctx, "nonexistent"))

	keys, _ = adapter.Keys(ctx)
	assert.Equal(t, []string{"key2"}, keys)
}

func TestMemoryAdapter_Concurrent(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = adapter.Set(ctx, "key", json.RawMessage(`"value"`))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = adapter.Get(ctx, "key")
		}()
	}

	wg.Wait()
	_, ok, _ := adapter.Get(ctx, "key")
	assert.True(t, ok)
}

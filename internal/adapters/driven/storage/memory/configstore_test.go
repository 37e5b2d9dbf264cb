package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.Empty(t, store.Keys())
	assert.Equal(t, ":memory:", store.Path())
}

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(
		map[string]any{"retrieval.top_k": 8, "llm.provider": "openai"},
		map[string]any{"retrieval.top_k": 12},
	)

	assert.Equal(t, 12, store.GetInt("retrieval.top_k"))
	assert.Equal(t, "openai", store.GetString("llm.provider"))
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("key1", "original"))
	require.NoError(t, store.Set("key1", "updated"))

	val, ok := store.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"str":       "value",
		"int":       42,
		"int64":     int64(7),
		"float":     0.35,
		"float32":   float32(0.5),
		"bool":      true,
		"strs":      []string{"a", "b"},
		"anys":      []any{"x", 1, "y"},
		"wrongtype": struct{}{},
	})

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("str"), "value"},
		{"string wrong type", store.GetString("int"), ""},
		{"string missing", store.GetString("missing"), ""},
		{"int", store.GetInt("int"), 42},
		{"int from int64", store.GetInt("int64"), 7},
		{"int from float", store.GetInt("float"), 0},
		{"int wrong type", store.GetInt("str"), 0},
		{"float", store.GetFloat("float"), 0.35},
		{"float from float32", store.GetFloat("float32"), 0.5},
		{"float from int", store.GetFloat("int"), 42.0},
		{"float wrong type", store.GetFloat("wrongtype"), 0.0},
		{"bool", store.GetBool("bool"), true},
		{"bool wrong type", store.GetBool("str"), false},
		{"string slice", store.GetStringSlice("strs"), []string{"a", "b"}},
		{"any slice skips non-strings", store.GetStringSlice("anys"), []string{"x", "y"}},
		{"slice missing", store.GetStringSlice("missing"), []string(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_KeysSorted(t *testing.T) {
	store := NewConfigStore()
	for _, k := range []string{"llm.model", "embedding.provider", "retrieval.top_k"} {
		require.NoError(t, store.Set(k, "x"))
	}

	assert.Equal(t, []string{"embedding.provider", "llm.model", "retrieval.top_k"}, store.Keys())
}

func TestConfigStore_SaveAndLoadNoOp(t *testing.T) {
	store := NewConfigStore(map[string]any{"key": "value"})

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "value", store.GetString("key"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%02d", n), n)
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%02d", n))
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 50)
}

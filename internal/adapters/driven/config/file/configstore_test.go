package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Path(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("retrieval.top_k", 8))
	require.NoError(t, store.Set("retrieval.min_score", 0.25))
	require.NoError(t, store.Set("reports.overwrite", true))
	require.NoError(t, store.Set("sources.enabled", []string{"news", "website"}))

	assert.Equal(t, "openai", store.GetString("llm.provider"))
	assert.Equal(t, 8, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.25, store.GetFloat("retrieval.min_score"), 1e-9)
	assert.InDelta(t, 8.0, store.GetFloat("retrieval.top_k"), 1e-9)
	assert.True(t, store.GetBool("reports.overwrite"))
	assert.Equal(t, []string{"news", "website"}, store.GetStringSlice("sources.enabled"))

	// Wrong types and missing keys return zero values.
	assert.Empty(t, store.GetString("retrieval.top_k"))
	assert.Zero(t, store.GetInt("llm.provider"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Set("chunking.size", 800))
	require.NoError(t, store.Set("chunking.overlap", 80))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[chunking]")
	assert.NotContains(t, string(data), "'chunking.size'")
}

func TestConfigStore_ReloadPreservesTypes(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("retrieval.context_budget", 9000))
	require.NoError(t, store.Set("retrieval.near_duplicate_threshold", 0.85))
	require.NoError(t, store.Set("embedding.model", "ProsusAI/finbert"))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, reloaded.GetInt("retrieval.context_budget"))
	assert.InDelta(t, 0.85, reloaded.GetFloat("retrieval.near_duplicate_threshold"), 1e-9)
	assert.Equal(t, "ProsusAI/finbert", reloaded.GetString("embedding.model"))
	assert.Equal(t, []string{
		"embedding.model",
		"retrieval.context_budget",
		"retrieval.near_duplicate_threshold",
	}, reloaded.Keys())
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[index]
backend = "pgvector"
dsn = "postgres://localhost/signalkb"

[generation]
max_retries = 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "pgvector", store.GetString("index.backend"))
	assert.Equal(t, 3, store.GetInt("generation.max_retries"))
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_ConflictingKeys(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("index.backend", "flat"))

	err := store.Set("index", "flat")

	assert.ErrorContains(t, err, "conflicts")
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".config-"), "temp file left behind: %s", e.Name())
	}
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", n)
			_ = store.GetInt("retrieval.top_k")
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, store.GetInt("retrieval.top_k"), 0)
}

package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptReportSystem)
	require.NoError(t, err)

	for _, f := range []string{"report_system.txt", "report_user.txt", "report_repair.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_DefaultTemplatesFormat(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	user, err := store.Load(driven.PromptReportUser)
	require.NoError(t, err)
	rendered := fmt.Sprintf(user, "Acme", "{schema}", "[evidence]")
	assert.Contains(t, rendered, "Company: Acme")
	assert.NotContains(t, rendered, "%!")

	repair, err := store.Load(driven.PromptReportRepair)
	require.NoError(t, err)
	assert.Contains(t, fmt.Sprintf(repair, "- missing section"), "- missing section")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Be brief. Cite chunk ids."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_system.txt"), []byte(custom+"\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptReportSystem)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_RejectsBrokenPlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_user.txt"), []byte("Company: %s only"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptReportUser)

	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptReportUser], prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptReportRepair)
	require.NoError(t, os.Remove(filepath.Join(dir, "report_repair.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptReportRepair)

	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptReportRepair], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.ErrorContains(t, err, "nonexistent_prompt")
}

func TestPromptStore_Reload_PicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptReportSystem)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_system.txt"), []byte("edited"), 0600))
	cached, _ := store.Load(driven.PromptReportSystem)
	assert.Equal(t, first, cached)

	store.Reload()
	edited, _ := store.Load(driven.PromptReportSystem)
	assert.Equal(t, "edited", edited)
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report_repair.txt")
	require.NoError(t, os.WriteFile(path, []byte("fix: %s"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, _ = store.Load(driven.PromptReportSystem)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fix: %s", string(data))
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptReportSystem)
			assert.NoError(t, err)
			assert.NotEmpty(t, prompt)
		}()
	}
	wg.Wait()
}

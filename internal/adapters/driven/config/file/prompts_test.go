package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
	_, err = os.Stat(filepath.Join(dir, "summarise.txt"))
	assert.True(t, os.IsNotExist(err), "constructor does no I/O")
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Contains(t, prompt, "abstract")

	for _, f := range []string{"summarise.txt", "tags.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Tags for %s:\n%s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tags.txt"), []byte(custom+"\n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptTags)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt, "surrounding whitespace is trimmed")

	data, err := os.ReadFile(filepath.Join(dir, "tags.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tags for", "existing files are not overwritten")
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptSummarise)
	require.NoError(t, os.Remove(filepath.Join(dir, "tags.txt")))

	prompt, err := store.Load(driven.PromptTags)
	require.NoError(t, err)
	assert.Contains(t, prompt, "topic tags")

	_, err = store.Load("nonexistent_prompt")
	assert.Error(t, err)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptSummarise)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "summarise.txt"), []byte("v2 %s %s"), 0600))
	cached, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.NotEqual(t, "v2 %s %s", cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Equal(t, "v2 %s %s", fresh)
}

func TestPromptStore_Load_InitFailureUsesDefaults(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Contains(t, prompt, "abstract")

	_, err = store.Load("unknown")
	assert.Error(t, err)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Load(driven.PromptTags)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

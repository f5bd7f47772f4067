package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
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

	_, err = store.Load(driven.PromptExtraction)
	require.NoError(t, err)

	for _, f := range []string{"extraction.txt", "extraction_strict.txt", "normalize.txt", "work_details.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_DefaultsKeepPlaceholders(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	want := map[string]int{
		driven.PromptExtraction:       3,
		driven.PromptExtractionStrict: 3,
		driven.PromptNormalize:        3,
		driven.PromptWorkDetails:      2,
	}
	for name, placeholders := range want {
		prompt, err := store.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, placeholders, strings.Count(prompt, "%s"), name)
	}
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Pick a %s term for %s from:\n%s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "normalize.txt"), []byte("\n"+custom+"\n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptNormalize)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt, "surrounding whitespace is trimmed")

	data, err := os.ReadFile(filepath.Join(dir, "normalize.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\n"+custom+"\n\n", string(data), "existing files are never overwritten")
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptWorkDetails)
	require.NoError(t, os.Remove(filepath.Join(dir, "work_details.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptWorkDetails)

	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts[driven.PromptWorkDetails], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("summarise")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "summarise")
}

func TestPromptStore_Load_InitFailureUsesDefaults(t *testing.T) {
	store, err := NewPromptStore("/dev/null/prompts")
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptExtraction)

	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts[driven.PromptExtraction], prompt)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptExtractionStrict)
	require.NoError(t, err)

	modified := "strict: %s %s %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extraction_strict.txt"), []byte(modified), 0600))

	cached, err := store.Load(driven.PromptExtractionStrict)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()

	reloaded, err := store.Load(driven.PromptExtractionStrict)
	require.NoError(t, err)
	assert.Equal(t, modified, reloaded)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	const goroutines = 50
	results := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptExtraction)
			assert.NoError(t, err)
			results[i] = prompt
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Equal(t, results[0], p)
	}
}

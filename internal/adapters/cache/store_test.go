package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnbuild/kiln/internal/adapters/cache"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestStore_SaveAndRestore(t *testing.T) {
	cacheRoot := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	workspace := t.TempDir()
	writeFile(t, workspace, "build/output.bin", "binary")
	writeFile(t, workspace, ".gradle/state", "state")

	paths := []string{".gradle", "build"}
	require.NoError(t, store.Save("gradle-0011223344556677", "build", paths, workspace))

	// Wipe the workspace and restore into it.
	require.NoError(t, os.RemoveAll(filepath.Join(workspace, "build")))
	require.NoError(t, os.RemoveAll(filepath.Join(workspace, ".gradle")))

	hit, err := store.Restore("gradle-0011223344556677", paths, workspace)
	require.NoError(t, err)
	require.True(t, hit)

	assert.Equal(t, "binary", readFile(t, workspace, "build/output.bin"))
	assert.Equal(t, "state", readFile(t, workspace, ".gradle/state"))
}

func TestStore_Restore_Miss(t *testing.T) {
	store, err := cache.NewStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	hit, err := store.Restore("go-aaaaaaaaaaaaaaaa", []string{"build"}, t.TempDir())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStore_Restore_ReplacesExisting(t *testing.T) {
	cacheRoot := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	workspace := t.TempDir()
	writeFile(t, workspace, "build/cached.txt", "cached")
	require.NoError(t, store.Save("k-0000000000000000", "build", []string{"build"}, workspace))

	// The restore target holds stale state from a previous run.
	require.NoError(t, os.RemoveAll(filepath.Join(workspace, "build")))
	writeFile(t, workspace, "build/stale.txt", "stale")

	hit, err := store.Restore("k-0000000000000000", []string{"build"}, workspace)
	require.NoError(t, err)
	require.True(t, hit)

	assert.Equal(t, "cached", readFile(t, workspace, "build/cached.txt"))
	_, statErr := os.Stat(filepath.Join(workspace, "build", "stale.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_Restore_ChangedPathsIsCleanMiss(t *testing.T) {
	cacheRoot := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	workspace := t.TempDir()
	writeFile(t, workspace, "build/output.bin", "BUILD OUTPUT")
	require.NoError(t, store.Save("k-4444444444444444", "build", []string{"build"}, workspace))

	// The job's path list grew since the entry was saved; the key is
	// unchanged because it only covers key files. Pre-existing workspace
	// content must survive the miss untouched.
	writeFile(t, workspace, "assets/logo.svg", "logo")

	hit, err := store.Restore("k-4444444444444444", []string{"assets", "build"}, workspace)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.Equal(t, "logo", readFile(t, workspace, "assets/logo.svg"))
	assert.Equal(t, "BUILD OUTPUT", readFile(t, workspace, "build/output.bin"))
}

func TestStore_Save_Overwrites(t *testing.T) {
	cacheRoot := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	workspace := t.TempDir()
	writeFile(t, workspace, "build/v.txt", "v1")
	require.NoError(t, store.Save("k-1111111111111111", "build", []string{"build"}, workspace))

	writeFile(t, workspace, "build/v.txt", "v2")
	require.NoError(t, store.Save("k-1111111111111111", "build", []string{"build"}, workspace))

	out := t.TempDir()
	hit, err := store.Restore("k-1111111111111111", []string{"build"}, out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "v2", readFile(t, out, "build/v.txt"))
}

func TestStore_ManifestPersists(t *testing.T) {
	cacheRoot := filepath.Join(t.TempDir(), "cache")

	store, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	workspace := t.TempDir()
	writeFile(t, workspace, "build/out.txt", "out")
	require.NoError(t, store.Save("k-2222222222222222", "build", []string{"build"}, workspace))

	// A fresh store over the same root sees the saved entry.
	reopened, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	hit, err := reopened.Restore("k-2222222222222222", []string{"build"}, t.TempDir())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStore_Prune(t *testing.T) {
	cacheRoot := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewStore(cacheRoot)
	require.NoError(t, err)

	workspace := t.TempDir()
	writeFile(t, workspace, "build/out.txt", "out")
	require.NoError(t, store.Save("k-3333333333333333", "build", []string{"build"}, workspace))

	require.NoError(t, store.Prune())

	_, statErr := os.Stat(cacheRoot)
	assert.True(t, os.IsNotExist(statErr))

	hit, err := store.Restore("k-3333333333333333", []string{"build"}, workspace)
	require.NoError(t, err)
	assert.False(t, hit)
}

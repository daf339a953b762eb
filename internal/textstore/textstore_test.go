package textstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
)

func TestWriteReadRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	id := contentid.ForURL("https://example.org/fridge")

	path, err := store.Write("Dublin", id, "shared food every week")
	require.NoError(t, err)
	assert.FileExists(t, path)

	text, err := store.Read("Dublin", id)
	require.NoError(t, err)
	assert.Equal(t, "shared food every week", text)
}

func TestWriteReplacesExisting(t *testing.T) {
	store := New(t.TempDir())
	id := contentid.ForURL("https://example.org")

	_, err := store.Write("b", id, "old")
	require.NoError(t, err)
	_, err = store.Write("b", id, "new")
	require.NoError(t, err)

	text, err := store.Read("b", id)
	require.NoError(t, err)
	assert.Equal(t, "new", text)
}

func TestExists(t *testing.T) {
	store := New(t.TempDir())
	id := contentid.ForURL("https://example.org")

	assert.False(t, store.Exists("b", id))

	_, err := store.Write("b", id, "text")
	require.NoError(t, err)

	assert.True(t, store.Exists("b", id))
	assert.False(t, store.Exists("other", id))
}

func TestWalkOrdersAndSkipsManifests(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	idB := contentid.ForURL("https://bbb.example")
	idA := contentid.ForURL("https://aaa.example")
	_, err := store.Write("Lyon", idB, "b")
	require.NoError(t, err)
	_, err = store.Write("Berlin", idA, "a")
	require.NoError(t, err)

	// Manifests and stray files must not surface as artifacts.
	require.NoError(t, os.WriteFile(filepath.Join(root, "Berlin", "manifest.csv"), []byte("row,url\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))

	artifacts, err := store.Walk()
	require.NoError(t, err)

	require.Len(t, artifacts, 2)
	assert.Equal(t, "Berlin", artifacts[0].Batch)
	assert.Equal(t, idA, artifacts[0].ID)
	assert.Equal(t, "Lyon", artifacts[1].Batch)
	assert.Equal(t, idB, artifacts[1].ID)
}

func TestWalkMissingRoot(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "never-created"))

	artifacts, err := store.Walk()
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

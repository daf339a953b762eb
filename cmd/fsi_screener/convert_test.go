package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cultivate-research/fsi-screener/internal/ingestion"
)

func TestConvertFile_PromotesURLColumn(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "berlin.json")
	require.NoError(t, os.WriteFile(src, []byte(
		`[{"Name":"Alpha","Website":"https://a.org"},{"Name":"Beta","Website":"https://b.org"}]`), 0644))

	out, err := convertFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "berlin_results.xlsx"), out)

	// Round-trip through the loader: the workbook must carry the canonical
	// URL header with the original values, and the batch name must strip
	// the _results marker.
	batch, err := ingestion.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "berlin", batch.Name)
	assert.Equal(t, []string{"Name", "URL"}, batch.Columns)
	assert.Equal(t, "URL", batch.URLColumn)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "https://a.org", batch.Rows[0].Values["URL"])
}

func TestConvertFile_NDJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rome.ndjson")
	require.NoError(t, os.WriteFile(src, []byte(
		"{\"url\":\"https://x.org\",\"Name\":\"X\"}\n{\"url\":\"https://y.org\",\"Name\":\"Y\"}\n"), 0644))

	out, err := convertFile(src)
	require.NoError(t, err)

	batch, err := ingestion.Load(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"URL", "Name"}, batch.Columns)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "https://y.org", batch.Rows[1].Values["URL"])
}

func TestConvertFile_BadJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(src, []byte("{"), 0644))

	_, err := convertFile(src)
	assert.Error(t, err)
}

// Package ingestion loads heterogeneous source batches (spreadsheets,
// delimited text, JSON) into a uniform ordered row form and locates the
// column holding candidate URLs.
package ingestion

import (
	"path/filepath"
	"strings"
)

// RowOrdinal is the 0-based position of a row within its batch, assigned
// once at load time. It is the sole join key back into the source file and
// is never reassigned or compacted when rows are filtered downstream.
type RowOrdinal int

// Row is a single record of a source batch.
type Row struct {
	Ordinal RowOrdinal
	Values  map[string]string
}

// URLRow pairs a row ordinal with the URL value found on that row.
type URLRow struct {
	Ordinal RowOrdinal
	URL     string
}

// SourceBatch is one ingested input file. Immutable after Load.
type SourceBatch struct {
	Name    string
	Path    string
	Columns []string
	Rows    []Row

	// URLColumn is the detected URL column name, or empty when no
	// URL-like column exists in the batch.
	URLColumn string
}

// HasURLColumn reports whether a URL column was detected at load time.
func (b *SourceBatch) HasURLColumn() bool {
	return b.URLColumn != ""
}

// URLRows returns, in ordinal order, the rows whose URL-column value is an
// http or https URL. Values are trimmed; anything else (empty cells, bare
// domains, mailto links) is skipped.
func (b *SourceBatch) URLRows() []URLRow {
	if b.URLColumn == "" {
		return nil
	}
	var out []URLRow
	for _, row := range b.Rows {
		val := strings.TrimSpace(row.Values[b.URLColumn])
		if strings.HasPrefix(val, "http://") || strings.HasPrefix(val, "https://") {
			out = append(out, URLRow{Ordinal: row.Ordinal, URL: val})
		}
	}
	return out
}

// Get returns the value of the named column for the given ordinal, or ""
// when the ordinal or column is absent.
func (b *SourceBatch) Get(ordinal RowOrdinal, column string) string {
	if int(ordinal) < 0 || int(ordinal) >= len(b.Rows) {
		return ""
	}
	return b.Rows[ordinal].Values[column]
}

// BatchName derives the batch identifier from an input file path: the file
// stem with any "_results" marker removed.
func BatchName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ReplaceAll(stem, "_results", "")
}

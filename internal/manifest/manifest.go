// Package manifest reads and writes the per-batch fetch ledger. The ledger
// is the only authoritative mapping from a content identifier back to its
// (batch, row ordinal) origin; every downstream join goes through it.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
	"github.com/cultivate-research/fsi-screener/internal/ingestion"
)

// Filename is the ledger filename within each batch directory.
const Filename = "manifest.csv"

var header = []string{"row", "url", "final_url", "status", "error", "title", "text_file"}

// Entry is one ledger row: the outcome of one attempted URL. Entries are
// append-only and never mutated after the batch completes.
type Entry struct {
	Row      ingestion.RowOrdinal
	URL      string
	FinalURL string
	Status   int    // 0 when no response was received
	Error    string // empty on success
	Title    string
	TextFile string // artifact filename, empty when nothing was stored
}

// ContentID derives the entry's content identifier, preferring the stored
// artifact name and falling back to deriving it from the URL.
func (e Entry) ContentID() contentid.ID {
	if e.TextFile != "" {
		return contentid.FromArtifactPath(e.TextFile)
	}
	return contentid.ForURL(e.URL)
}

// PathFor returns the ledger path inside a batch directory.
func PathFor(batchDir string) string {
	return filepath.Join(batchDir, Filename)
}

// BatchOf returns the batch name a ledger path belongs to.
func BatchOf(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// Write persists the full ledger for one batch. Entries must already be in
// row-ordinal order; Write records them as given.
func Write(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	for _, e := range entries {
		status := ""
		if e.Status != 0 {
			status = strconv.Itoa(e.Status)
		}
		record := []string{
			strconv.Itoa(int(e.Row)),
			e.URL,
			e.FinalURL,
			status,
			e.Error,
			e.Title,
			e.TextFile,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write manifest row %d: %w", e.Row, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	return nil
}

// Read loads a ledger written by Write. Columns are resolved by header name
// so column order changes stay readable.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("manifest %s has no header", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, required := range header {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("manifest %s is missing column %q", path, required)
		}
	}

	field := func(record []string, name string) string {
		idx := col[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := strconv.Atoi(field(record, "row"))
		if err != nil {
			return nil, fmt.Errorf("manifest %s line %d: bad row ordinal: %w", path, i+2, err)
		}
		status := 0
		if raw := field(record, "status"); raw != "" {
			status, err = strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("manifest %s line %d: bad status: %w", path, i+2, err)
			}
		}
		entries = append(entries, Entry{
			Row:      ingestion.RowOrdinal(row),
			URL:      field(record, "url"),
			FinalURL: field(record, "final_url"),
			Status:   status,
			Error:    field(record, "error"),
			Title:    field(record, "title"),
			TextFile: field(record, "text_file"),
		})
	}
	return entries, nil
}

// Discover returns every batch ledger under the store root, ordered by
// batch name. A missing root yields an empty list.
func Discover(root string) ([]string, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store root %s: %w", root, err)
	}
	var paths []string
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		candidate := filepath.Join(root, d.Name(), Filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			paths = append(paths, candidate)
		}
	}
	return paths, nil
}

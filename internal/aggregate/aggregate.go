// Package aggregate joins accepted screening decisions back to their
// original source rows and builds the combined dataset. It is the only stage
// that re-reads the original input files: the ledgers know row ordinals, and
// the originals still hold every column the canonical output must preserve.
package aggregate

import (
	"path/filepath"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
	"github.com/cultivate-research/fsi-screener/internal/ingestion"
	"github.com/cultivate-research/fsi-screener/internal/manifest"
)

// TargetColumns is the canonical column order of the combined dataset.
// Source columns outside this list are appended after it; the provenance
// column always comes last.
var TargetColumns = []string{
	"City",
	"Country",
	"Name",
	"URL",
	"Facebook URL",
	"Twitter URL",
	"Instagram URL",
	"Food Sharing Activities",
	"How it is Shared",
	"Date Checked",
	"Comments",
	"Lat",
	"Lon",
}

// MissingMarker fills canonical columns absent from a source schema. It is
// distinct from the empty string so a structurally missing column can be told
// apart from a genuinely empty value.
const MissingMarker = "n/a"

// SourceFileColumn names the provenance column appended after all others.
const SourceFileColumn = "Source File"

// Options locates the inputs of the join.
type Options struct {
	// SourcesDir holds the original input files the batches were ingested from.
	SourcesDir string
	// StoreRoot is the scraped-text root containing the per-batch ledgers.
	StoreRoot string
}

// Result is the combined dataset plus everything worth reporting about how
// it was assembled. Problems collects per-batch and per-entry conditions that
// did not stop the run.
type Result struct {
	Columns  []string
	Rows     [][]string
	Included int
	Batches  int
	Problems []error
}

type selectedRow struct {
	row    ingestion.Row
	source string
}

// Aggregate scans every batch ledger, keeps entries whose content identifier
// is in the include set, re-reads the original source files and projects the
// matching rows into the canonical schema. Emptiness at any stage yields an
// empty result, not an error.
func Aggregate(include map[contentid.ID]struct{}, opts Options) (*Result, error) {
	result := &Result{}

	order, hits, err := collectHits(include, opts.StoreRoot, result)
	if err != nil {
		return nil, err
	}

	sources, err := sourcesByBatch(opts.SourcesDir)
	if err != nil {
		return nil, err
	}

	var (
		selected  []selectedRow
		extras    []string
		extraSeen = make(map[string]struct{})
	)
	targetSet := make(map[string]struct{}, len(TargetColumns))
	for _, col := range TargetColumns {
		targetSet[col] = struct{}{}
	}

	for _, batchName := range order {
		srcPath, ok := sources[batchName]
		if !ok {
			result.Problems = append(result.Problems, &SourceFileMissingError{Batch: batchName})
			continue
		}
		src, err := ingestion.Load(srcPath)
		if err != nil {
			result.Problems = append(result.Problems, err)
			continue
		}

		contributed := false
		seen := make(map[ingestion.RowOrdinal]struct{})
		for _, e := range hits[batchName] {
			if _, dup := seen[e.Row]; dup {
				continue
			}
			seen[e.Row] = struct{}{}

			if int(e.Row) < 0 || int(e.Row) >= len(src.Rows) {
				result.Problems = append(result.Problems, &JoinKeyMismatchError{
					Batch: batchName,
					Row:   e.Row,
					URL:   e.URL,
				})
				continue
			}
			selected = append(selected, selectedRow{
				row:    src.Rows[e.Row],
				source: filepath.Base(srcPath),
			})
			contributed = true
		}

		if contributed {
			result.Batches++
			for _, col := range src.Columns {
				if _, target := targetSet[col]; target || col == SourceFileColumn {
					continue
				}
				if _, dup := extraSeen[col]; !dup {
					extraSeen[col] = struct{}{}
					extras = append(extras, col)
				}
			}
		}
	}

	result.Columns = make([]string, 0, len(TargetColumns)+len(extras)+1)
	result.Columns = append(result.Columns, TargetColumns...)
	result.Columns = append(result.Columns, extras...)
	result.Columns = append(result.Columns, SourceFileColumn)

	for _, sel := range selected {
		record := make([]string, 0, len(result.Columns))
		for _, col := range TargetColumns {
			if v, ok := sel.row.Values[col]; ok {
				record = append(record, v)
			} else {
				record = append(record, MissingMarker)
			}
		}
		for _, col := range extras {
			record = append(record, sel.row.Values[col])
		}
		record = append(record, sel.source)
		result.Rows = append(result.Rows, record)
	}
	result.Included = len(result.Rows)

	return result, nil
}

// collectHits reads every ledger under root and groups accepted entries by
// batch, preserving ledger discovery order and row order within each batch.
// Entries without a stored artifact never joined classification, so they are
// skipped regardless of the include set.
func collectHits(include map[contentid.ID]struct{}, root string, result *Result) ([]string, map[string][]manifest.Entry, error) {
	ledgers, err := manifest.Discover(root)
	if err != nil {
		return nil, nil, err
	}

	var order []string
	hits := make(map[string][]manifest.Entry)
	for _, path := range ledgers {
		entries, err := manifest.Read(path)
		if err != nil {
			result.Problems = append(result.Problems, err)
			continue
		}
		batchName := manifest.BatchOf(path)
		for _, e := range entries {
			if e.TextFile == "" {
				continue
			}
			if _, ok := include[e.ContentID()]; !ok {
				continue
			}
			if _, known := hits[batchName]; !known {
				order = append(order, batchName)
			}
			hits[batchName] = append(hits[batchName], e)
		}
	}
	return order, hits, nil
}

// sourcesByBatch maps batch names to their original input files. When two
// files reduce to the same batch name the lexically first wins.
func sourcesByBatch(dir string) (map[string]string, error) {
	inputs, err := ingestion.DiscoverInputs(dir)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(inputs))
	for _, path := range inputs {
		name := ingestion.BatchName(path)
		if _, ok := sources[name]; !ok {
			sources[name] = path
		}
	}
	return sources, nil
}

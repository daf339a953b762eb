package aggregate

import (
	"fmt"

	"github.com/cultivate-research/fsi-screener/internal/ingestion"
)

// SourceFileMissingError indicates a batch has accepted pages but its
// original input file could not be found. The batch's rows are omitted from
// the combined output; other batches proceed.
type SourceFileMissingError struct {
	Batch string
}

func (e *SourceFileMissingError) Error() string {
	return fmt.Sprintf("no source file found for batch %q", e.Batch)
}

// JoinKeyMismatchError indicates a ledger entry whose row ordinal does not
// exist in the re-read source file. It signals drift between the ledger and
// the source and is always surfaced, never silently dropped.
type JoinKeyMismatchError struct {
	Batch string
	Row   ingestion.RowOrdinal
	URL   string
}

func (e *JoinKeyMismatchError) Error() string {
	return fmt.Sprintf("ledger entry for batch %q row %d (url %s) has no matching row in the source file", e.Batch, e.Row, e.URL)
}

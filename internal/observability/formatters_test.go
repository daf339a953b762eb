package observability

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cultivate-research/fsi-screener/internal/aggregate"
	"github.com/cultivate-research/fsi-screener/internal/decisions"
	"github.com/cultivate-research/fsi-screener/internal/ingestion"
	"github.com/cultivate-research/fsi-screener/internal/manifest"
)

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	batch := &ingestion.SourceBatch{
		Name:      "London",
		Columns:   []string{"Name", "URL", "City"},
		URLColumn: "URL",
		Rows: []ingestion.Row{
			{Ordinal: 0, Values: map[string]string{"Name": "a", "URL": "https://a.org", "City": "London"}},
			{Ordinal: 1, Values: map[string]string{"Name": "b", "URL": "", "City": "London"}},
		},
	}

	p.PrintBatch(batch)
	output := buf.String()

	assert.Contains(t, output, "SOURCE BATCH")
	assert.Contains(t, output, "London")
	assert.Contains(t, output, "URL col:  URL (1 usable URLs)")
	assert.Contains(t, output, "Rows:     2")
}

func TestPrintBatch_NoURLColumn(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBatch(&ingestion.SourceBatch{Name: "x", Columns: []string{"City"}})

	assert.Contains(t, buf.String(), "none detected")
}

func TestPrintBatch_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBatch(nil)

	assert.Empty(t, buf.String())
}

func TestPrintFetchSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	entries := []manifest.Entry{
		{Row: 0, URL: "https://a.org", Status: 200, TextFile: "a.org__0123456789.txt"},
		{Row: 1, URL: "https://b.org", Error: "context deadline exceeded"},
		{Row: 2, URL: "https://c.org", Status: 404},
	}

	p.PrintFetchSummary("London", entries)
	output := buf.String()

	assert.Contains(t, output, "SCRAPE SUMMARY: London")
	assert.Contains(t, output, "Attempted: 3")
	assert.Contains(t, output, "Fetched:   1")
	assert.Contains(t, output, "Failed:    2")
	assert.Contains(t, output, "HTTP 404")
}

func TestPrintFetchSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFetchSummary("London", nil)

	assert.Empty(t, buf.String())
}

func TestPrintDecision(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	d := &decisions.Decision{
		ContentID:        "a.org__0123456789",
		Decision:         "include",
		Confidence:       4,
		OrganisationName: "A Food Bank",
		OrganisationType: "food_bank",
		Reasons:          []string{"Site represents the initiative", "Ongoing surplus redistribution"},
	}

	p.PrintDecision(d)
	output := buf.String()

	assert.Contains(t, output, "SCREENING DECISION")
	assert.Contains(t, output, "include (confidence 4/5)")
	assert.Contains(t, output, "A Food Bank")
	assert.Contains(t, output, "food_bank")
	assert.Contains(t, output, "Site represents the initiative")
}

func TestPrintAggregate(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &aggregate.Result{
		Columns:  append(append([]string{}, aggregate.TargetColumns...), aggregate.SourceFileColumn),
		Rows:     [][]string{make([]string, len(aggregate.TargetColumns)+1)},
		Included: 1,
		Batches:  1,
		Problems: []error{errors.New("source file for batch Paris not found")},
	}

	p.PrintAggregate(result)
	output := buf.String()

	assert.Contains(t, output, "COMBINED DATASET")
	assert.Contains(t, output, "Included rows:  1")
	assert.Contains(t, output, "Problems (1):")
	assert.Contains(t, output, "Paris")
}

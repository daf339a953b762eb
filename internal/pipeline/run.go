// Package pipeline provides the high-level orchestration for the screening
// process: scrape the candidate pages, classify them with the judgment
// service, and join the accepted pages back to their source rows.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cultivate-research/fsi-screener/internal/backoff"
	"github.com/cultivate-research/fsi-screener/internal/classify"
	"github.com/cultivate-research/fsi-screener/internal/fetch"
	"github.com/cultivate-research/fsi-screener/internal/llm"
)

// Options holds configuration for running the pipeline. Zero values fall
// back to defaults mirroring the reference behavior: sequential batches,
// a 1–2 second pause between fetches, five classification attempts.
type Options struct {
	// Paths
	InputDir    string // directory of source batch files
	ScrapedDir  string // root for text artifacts, ledgers and the run summary
	SourcesDir  string // originals re-read at aggregation (defaults to InputDir)
	ResultsCSV  string // screening results table
	DecisionDB  string // SQLite decision store
	CombinedOut string // output stem for the combined dataset

	// Fetching
	Contact      string // contact address advertised in the User-Agent
	Timeout      time.Duration
	Pause        fetch.PauseRange
	RatePerSec   float64 // aggregate outbound rate cap, 0 disables
	Workers      int     // batches scraped in parallel
	SkipExisting bool    // reuse stored text instead of refetching

	// Classification
	APIKey        string
	Model         string // lite-tier model override
	MaxChars      int
	Policy        backoff.Policy
	ClassifyPause time.Duration // pause between classified files
	Refresh       bool          // reclassify identifiers with stored decisions

	Verbose bool

	// Injection points for tests; built from the fields above when nil.
	Fetcher *fetch.Client
	LLM     llm.Client
}

// withDefaults returns a copy of the options with unset fields defaulted.
func (o Options) withDefaults() Options {
	if o.SourcesDir == "" {
		o.SourcesDir = o.InputDir
	}
	if o.ResultsCSV == "" {
		o.ResultsCSV = filepath.Join(o.ScrapedDir, "screening_results.csv")
	}
	if o.DecisionDB == "" {
		o.DecisionDB = filepath.Join(o.ScrapedDir, "decisions.db")
	}
	if o.CombinedOut == "" {
		o.CombinedOut = filepath.Join(o.ScrapedDir, "combined_dataset")
	}
	if o.Timeout == 0 {
		o.Timeout = fetch.DefaultTimeout
	}
	if o.Pause.Min == 0 && o.Pause.Max == 0 {
		o.Pause = fetch.PauseRange{Min: time.Second, Max: 2 * time.Second}
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.MaxChars <= 0 {
		o.MaxChars = classify.DefaultMaxChars
	}
	if o.Policy.MaxAttempts <= 0 {
		o.Policy = backoff.Default()
	}
	if o.ClassifyPause == 0 {
		o.ClassifyPause = 200 * time.Millisecond
	}
	return o
}

// Summary is the machine-readable record of one full run, written next to
// the artifacts as run_summary.json.
type Summary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Scrape     ScrapeStats   `json:"scrape"`
	Screening  ClassifyStats `json:"screening"`
	Combined   int           `json:"combined_rows"`
	Problems   int           `json:"aggregation_problems"`
}

// SummaryFilename is the run summary filename within the scraped root.
const SummaryFilename = "run_summary.json"

// Run executes the full pipeline end-to-end: scrape, classify, aggregate.
// Per-batch and per-URL problems are reported and skipped along the way;
// only configuration-level failures abort the run.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	opts = opts.withDefaults()

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	fmt.Printf("Run %s\n", summary.RunID)

	fmt.Printf("Step 1/3: Scraping batches from %s...\n", opts.InputDir)
	scrapeStats, err := Scrape(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("scrape stage failed: %w", err)
	}
	summary.Scrape = *scrapeStats

	fmt.Printf("Step 2/3: Classifying %s...\n", opts.ScrapedDir)
	classifyStats, err := Classify(ctx, opts, summary.RunID)
	if err != nil {
		return nil, fmt.Errorf("classification stage failed: %w", err)
	}
	summary.Screening = *classifyStats

	fmt.Printf("Step 3/3: Building combined dataset...\n")
	result, err := Aggregate(opts)
	if err != nil {
		return nil, fmt.Errorf("aggregation stage failed: %w", err)
	}
	summary.Combined = result.Included
	summary.Problems = len(result.Problems)
	summary.FinishedAt = time.Now().UTC()

	if err := writeSummary(filepath.Join(opts.ScrapedDir, SummaryFilename), summary); err != nil {
		return nil, err
	}

	fmt.Printf("Done: %d combined rows from %d batches\n", result.Included, result.Batches)
	return summary, nil
}

func writeSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run summary %s: %w", path, err)
	}
	return nil
}

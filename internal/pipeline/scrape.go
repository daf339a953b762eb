package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
	"github.com/cultivate-research/fsi-screener/internal/fetch"
	"github.com/cultivate-research/fsi-screener/internal/ingestion"
	"github.com/cultivate-research/fsi-screener/internal/manifest"
	"github.com/cultivate-research/fsi-screener/internal/observability"
	"github.com/cultivate-research/fsi-screener/internal/textstore"
)

// ScrapeStats counts what the scrape stage did across all batches.
type ScrapeStats struct {
	Batches   int `json:"batches"`   // batches that produced a ledger
	Skipped   int `json:"skipped"`   // unsupported files and batches without a URL column
	Attempted int `json:"attempted"` // URLs attempted
	Fetched   int `json:"fetched"`   // attempts that reached the server
	Failed    int `json:"failed"`
	Reused    int `json:"reused"` // artifacts reused via skip-existing
}

// Scrape discovers the input files, fetches every URL row of every batch
// and writes one text artifact per fetched page plus one ledger per batch.
// A bad file or URL is reported and skipped; batches run in parallel up to
// opts.Workers while a shared limiter caps the aggregate outbound rate.
func Scrape(ctx context.Context, opts Options) (*ScrapeStats, error) {
	opts = opts.withDefaults()

	inputs, err := ingestion.DiscoverInputs(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		fmt.Printf("No supported input files found in %s\n", opts.InputDir)
		return &ScrapeStats{}, nil
	}

	client := opts.Fetcher
	if client == nil {
		var limiter *rate.Limiter
		if opts.RatePerSec > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
		}
		client = fetch.NewClient(&fetch.Options{
			Timeout: opts.Timeout,
			Contact: opts.Contact,
			Limiter: limiter,
		})
	}

	store := textstore.New(opts.ScrapedDir)
	printer := observability.NewPrinter(os.Stdout)

	var (
		mu    sync.Mutex
		stats ScrapeStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, path := range inputs {
		g.Go(func() error {
			batchStats, err := scrapeBatch(gctx, client, store, printer, path, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-batch problems never abort the run; only context
				// cancellation propagates.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("Warning: skipping %s: %v", path, err)
				stats.Skipped++
				return nil
			}
			stats.Batches++
			stats.Attempted += batchStats.Attempted
			stats.Fetched += batchStats.Fetched
			stats.Failed += batchStats.Failed
			stats.Reused += batchStats.Reused
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fmt.Printf("Scraped %d batches: %d URLs attempted, %d fetched, %d failed\n",
		stats.Batches, stats.Attempted, stats.Fetched, stats.Failed)
	return &stats, nil
}

// scrapeBatch processes one input file: load, fetch each URL row in ordinal
// order with polite pacing, store text, write the ledger.
func scrapeBatch(ctx context.Context, client *fetch.Client, store *textstore.Store, printer *observability.Printer, path string, opts Options) (ScrapeStats, error) {
	var stats ScrapeStats

	batch, err := ingestion.Load(path)
	if err != nil {
		return stats, err
	}
	if opts.Verbose {
		printer.PrintBatch(batch)
	}
	if !batch.HasURLColumn() {
		return stats, &ingestion.NoURLColumnError{Batch: batch.Name, Columns: batch.Columns}
	}

	urlRows := batch.URLRows()
	fmt.Printf("[%s] %d URLs to fetch\n", batch.Name, len(urlRows))

	entries := make([]manifest.Entry, 0, len(urlRows))
	for _, row := range urlRows {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		id := contentid.ForURL(row.URL)
		stats.Attempted++

		if opts.SkipExisting && store.Exists(batch.Name, id) {
			stats.Reused++
			entries = append(entries, manifest.Entry{
				Row:      row.Ordinal,
				URL:      row.URL,
				FinalURL: row.URL,
				TextFile: id.Filename(),
			})
			continue
		}

		outcome := client.Fetch(ctx, row.URL)
		entry := manifest.Entry{
			Row:      row.Ordinal,
			URL:      row.URL,
			FinalURL: outcome.FinalURL,
			Status:   outcome.Status,
			Error:    outcome.Err,
			Title:    outcome.Title,
		}
		if outcome.OK() {
			stats.Fetched++
			if _, err := store.Write(batch.Name, id, outcome.Text); err != nil {
				return stats, err
			}
			entry.TextFile = id.Filename()
		} else {
			stats.Failed++
			log.Printf("[%s] row %d: fetch failed for %s: %s", batch.Name, row.Ordinal, row.URL, outcome.Err)
		}
		entries = append(entries, entry)

		// Polite pause between requests, success or not.
		pause(ctx, opts.Pause.Duration())
	}

	if err := os.MkdirAll(store.BatchDir(batch.Name), 0755); err != nil {
		return stats, fmt.Errorf("failed to create batch directory: %w", err)
	}
	if err := manifest.Write(manifest.PathFor(store.BatchDir(batch.Name)), entries); err != nil {
		return stats, err
	}
	if opts.Verbose {
		printer.PrintFetchSummary(batch.Name, entries)
	}
	return stats, nil
}

// pause sleeps for d or until the context is done, whichever comes first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

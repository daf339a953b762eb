package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cultivate-research/fsi-screener/internal/classify"
	"github.com/cultivate-research/fsi-screener/internal/decisions"
	"github.com/cultivate-research/fsi-screener/internal/llm"
	"github.com/cultivate-research/fsi-screener/internal/observability"
	"github.com/cultivate-research/fsi-screener/internal/textstore"
)

// ClassifyStats counts what the classification stage did.
type ClassifyStats struct {
	Artifacts  int `json:"artifacts"`
	Classified int `json:"classified"`
	Reused     int `json:"reused"` // stored decisions kept without a new call
	Failed     int `json:"failed"`
	Included   int `json:"included"`
	Excluded   int `json:"excluded"`
}

// Classify walks every stored text artifact and records one screening
// decision per content identifier in the decision store, then exports the
// results table. Identifiers that already hold a decision are skipped unless
// opts.Refresh is set; a fatal classification failure leaves its identifier
// undecided and processing continues.
func Classify(ctx context.Context, opts Options, runID string) (*ClassifyStats, error) {
	opts = opts.withDefaults()

	store := textstore.New(opts.ScrapedDir)
	artifacts, err := store.Walk()
	if err != nil {
		return nil, err
	}

	dstore, err := decisions.Open(opts.DecisionDB)
	if err != nil {
		return nil, err
	}
	defer dstore.Close()

	client := opts.LLM
	if client == nil {
		cfg := llm.DefaultConfig()
		if opts.Model != "" {
			cfg = cfg.WithModel(llm.TierLite, opts.Model)
		}
		client, err = llm.NewClient(ctx, cfg, opts.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create judgment service client: %w", err)
		}
		defer client.Close()
	}

	classifier := classify.New(client, classify.Options{
		MaxChars: opts.MaxChars,
		Policy:   opts.Policy,
	})
	printer := observability.NewPrinter(os.Stdout)

	stats := &ClassifyStats{Artifacts: len(artifacts)}
	for _, artifact := range artifacts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !opts.Refresh {
			if existing, err := dstore.Get(ctx, artifact.ID); err == nil && existing != nil {
				stats.Reused++
				continue
			}
		}

		text, err := store.Read(artifact.Batch, artifact.ID)
		if err != nil {
			log.Printf("Warning: failed to read %s: %v", artifact.Path, err)
			stats.Failed++
			continue
		}

		d, err := classifier.Classify(ctx, artifact.ID, artifact.Batch, filepath.Base(artifact.Path), text)
		if err != nil {
			// Left undecided: absent from the results, excluded from the
			// aggregation include set by absence.
			log.Printf("Warning: classification failed for %s: %v", artifact.ID, err)
			stats.Failed++
			continue
		}
		d.RunID = runID
		d.DecidedAt = time.Now().UTC()

		if err := dstore.Put(ctx, d); err != nil {
			return nil, err
		}
		stats.Classified++
		if d.Include() {
			stats.Included++
		} else {
			stats.Excluded++
		}
		if opts.Verbose {
			printer.PrintDecision(d)
		} else {
			fmt.Printf("[%s] %s: %s (%d/5)\n", artifact.Batch, artifact.ID, d.Decision, d.Confidence)
		}

		pause(ctx, opts.ClassifyPause)
	}

	all, err := dstore.All(ctx)
	if err != nil {
		return nil, err
	}
	if err := decisions.WriteCSV(opts.ResultsCSV, all); err != nil {
		return nil, err
	}

	fmt.Printf("Classified %d pages (%d include, %d exclude, %d failed, %d reused)\n",
		stats.Classified, stats.Included, stats.Excluded, stats.Failed, stats.Reused)
	return stats, nil
}

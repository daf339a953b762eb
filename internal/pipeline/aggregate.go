package pipeline

import (
	"fmt"
	"log"
	"os"

	"github.com/cultivate-research/fsi-screener/internal/aggregate"
	"github.com/cultivate-research/fsi-screener/internal/contentid"
	"github.com/cultivate-research/fsi-screener/internal/decisions"
	"github.com/cultivate-research/fsi-screener/internal/observability"
)

// Aggregate joins accepted screening decisions back to their original
// source rows and writes the combined dataset as <CombinedOut>.csv and
// <CombinedOut>.xlsx. The include set comes from the results table, so the
// stage can run standalone against a previously exported CSV.
func Aggregate(opts Options) (*aggregate.Result, error) {
	opts = opts.withDefaults()

	all, err := decisions.LoadCSV(opts.ResultsCSV)
	if err != nil {
		return nil, err
	}
	include := make(map[contentid.ID]struct{})
	for _, d := range all {
		if d.Include() {
			include[d.ContentID] = struct{}{}
		}
	}
	if len(include) == 0 {
		fmt.Printf("No pages were accepted; the combined dataset will be empty\n")
	}

	result, err := aggregate.Aggregate(include, aggregate.Options{
		SourcesDir: opts.SourcesDir,
		StoreRoot:  opts.ScrapedDir,
	})
	if err != nil {
		return nil, err
	}
	for _, problem := range result.Problems {
		log.Printf("Warning: %v", problem)
	}

	if err := aggregate.WriteCSV(opts.CombinedOut+".csv", result); err != nil {
		return nil, err
	}
	if err := aggregate.WriteXLSX(opts.CombinedOut+".xlsx", result); err != nil {
		return nil, err
	}

	if opts.Verbose {
		observability.NewPrinter(os.Stdout).PrintAggregate(result)
	}
	fmt.Printf("Combined dataset: %d rows from %d batches -> %s.csv\n",
		result.Included, result.Batches, opts.CombinedOut)
	return result, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cultivate-research/fsi-screener/internal/pipeline"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch every URL of every input batch and store the page text",
	Long: `Discovers supported input files (xlsx, csv, tsv, json, ndjson) in the input
directory, detects the URL column of each batch, fetches each URL with polite
pacing, extracts visible text, and writes one text artifact per page plus one
manifest.csv ledger per batch under the output root.`,
	RunE: runScrape,
}

var (
	scrapeConfigPath   string
	scrapeInput        string
	scrapeOut          string
	scrapeContact      string
	scrapeTimeout      float64
	scrapePauseMin     float64
	scrapePauseMax     float64
	scrapeRate         float64
	scrapeWorkers      int
	scrapeSkipExisting bool
	scrapeVerbose      bool
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	scrapeCmd.Flags().StringVarP(&scrapeInput, "input", "i", "", "Directory containing source batch files")
	scrapeCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "Output root for text artifacts and manifests")
	scrapeCmd.Flags().StringVar(&scrapeContact, "contact", "", "Contact address advertised in the User-Agent")
	scrapeCmd.Flags().Float64Var(&scrapeTimeout, "timeout", 0, "HTTP timeout in seconds")
	scrapeCmd.Flags().Float64Var(&scrapePauseMin, "pause-min", 0, "Lower bound of the per-request pause in seconds")
	scrapeCmd.Flags().Float64Var(&scrapePauseMax, "pause-max", 0, "Upper bound of the per-request pause in seconds")
	scrapeCmd.Flags().Float64Var(&scrapeRate, "rate", 0, "Aggregate outbound requests per second (0 = unlimited)")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 0, "Batches scraped in parallel")
	scrapeCmd.Flags().BoolVar(&scrapeSkipExisting, "skip-existing", false, "Reuse stored text instead of refetching")
	scrapeCmd.Flags().BoolVarP(&scrapeVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile(scrapeConfigPath, scrapeVerbose)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("input") {
		cfg.InputDir = scrapeInput
	}
	if cmd.Flags().Changed("out") {
		cfg.ScrapedDir = scrapeOut
	}
	if cmd.Flags().Changed("contact") {
		cfg.ContactEmail = scrapeContact
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSecs = scrapeTimeout
	}
	if cmd.Flags().Changed("pause-min") {
		cfg.PauseMinSecs = scrapePauseMin
	}
	if cmd.Flags().Changed("pause-max") {
		cfg.PauseMaxSecs = scrapePauseMax
	}
	if cmd.Flags().Changed("rate") {
		cfg.RatePerSec = scrapeRate
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = scrapeWorkers
	}
	if cmd.Flags().Changed("skip-existing") {
		cfg.SkipExisting = scrapeSkipExisting
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = scrapeVerbose
	}

	cfg = cfg.MergeWithDefaults(configDefaults)
	if cfg.InputDir == "" {
		return fmt.Errorf("--input is required (via flag or config)")
	}

	_, err = pipeline.Scrape(context.Background(), pipelineOptions(cfg))
	return err
}

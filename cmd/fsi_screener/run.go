package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cultivate-research/fsi-screener/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full screening pipeline end-to-end",
	Long: `Orchestrates the entire screening process: scrape -> classify -> aggregate.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values. A run summary with per-stage counts is
written to <out>/run_summary.json.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath   string
	runInput        string
	runOut          string
	runSources      string
	runCombinedOut  string
	runContact      string
	runRate         float64
	runWorkers      int
	runSkipExisting bool
	runRefresh      bool
	runAPIKey       string
	runModel        string
	runVerbose      bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runInput, "input", "i", "", "Directory containing source batch files")
	runCommand.Flags().StringVarP(&runOut, "out", "o", "", "Output root for text artifacts, manifests and results")
	runCommand.Flags().StringVar(&runSources, "sources", "", "Directory of original source files (default: input directory)")
	runCommand.Flags().StringVar(&runCombinedOut, "combined-out", "", "Output stem for the combined dataset (default: <out>/combined_dataset)")
	runCommand.Flags().StringVar(&runContact, "contact", "", "Contact address advertised in the User-Agent")
	runCommand.Flags().Float64Var(&runRate, "rate", 0, "Aggregate outbound requests per second (0 = unlimited)")
	runCommand.Flags().IntVar(&runWorkers, "workers", 0, "Batches scraped in parallel")
	runCommand.Flags().BoolVar(&runSkipExisting, "skip-existing", false, "Reuse stored text instead of refetching")
	runCommand.Flags().BoolVar(&runRefresh, "refresh", false, "Reclassify identifiers that already hold a decision")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVar(&runModel, "model", "", "Judgment service model override")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile(runConfigPath, runVerbose)
	if err != nil {
		return err
	}

	// Apply CLI overrides; command-line args take priority, but only when
	// the flag was explicitly set.
	if cmd.Flags().Changed("input") {
		cfg.InputDir = runInput
	}
	if cmd.Flags().Changed("out") {
		cfg.ScrapedDir = runOut
	}
	if cmd.Flags().Changed("sources") {
		cfg.SourcesDir = runSources
	}
	if cmd.Flags().Changed("combined-out") {
		cfg.CombinedOut = runCombinedOut
	}
	if cmd.Flags().Changed("contact") {
		cfg.ContactEmail = runContact
	}
	if cmd.Flags().Changed("rate") {
		cfg.RatePerSec = runRate
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = runWorkers
	}
	if cmd.Flags().Changed("skip-existing") {
		cfg.SkipExisting = runSkipExisting
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = runModel
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	cfg = cfg.MergeWithDefaults(configDefaults)

	if cfg.InputDir == "" {
		return fmt.Errorf("--input is required (via flag or config)")
	}
	if err := requireAPIKey(&cfg); err != nil {
		return err
	}

	opts := pipelineOptions(cfg)
	opts.Refresh = runRefresh

	_, err = pipeline.Run(context.Background(), opts)
	return err
}

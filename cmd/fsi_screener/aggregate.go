package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cultivate-research/fsi-screener/internal/pipeline"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Join accepted pages back to their source rows",
	Long: `Reads every batch manifest under the scraped root, keeps the entries whose
content identifier was accepted in the results table, re-reads the original
source files by row ordinal, projects the rows into the canonical schema and
writes the combined dataset as CSV and XLSX.`,
	RunE: runAggregate,
}

var (
	aggregateConfigPath string
	aggregateScraped    string
	aggregateDecisions  string
	aggregateSources    string
	aggregateOut        string
	aggregateVerbose    bool
)

func init() {
	aggregateCmd.Flags().StringVar(&aggregateConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	aggregateCmd.Flags().StringVarP(&aggregateScraped, "scraped", "s", "", "Root directory of stored text artifacts and manifests")
	aggregateCmd.Flags().StringVarP(&aggregateDecisions, "decisions", "d", "", "Path of the results CSV (default: <scraped>/screening_results.csv)")
	aggregateCmd.Flags().StringVar(&aggregateSources, "sources", "", "Directory of original source files (default: input directory)")
	aggregateCmd.Flags().StringVarP(&aggregateOut, "out", "o", "", "Output stem for the combined dataset (.csv and .xlsx appended)")
	aggregateCmd.Flags().BoolVarP(&aggregateVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile(aggregateConfigPath, aggregateVerbose)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("scraped") {
		cfg.ScrapedDir = aggregateScraped
	}
	if cmd.Flags().Changed("decisions") {
		cfg.ResultsCSV = aggregateDecisions
	}
	if cmd.Flags().Changed("sources") {
		cfg.SourcesDir = aggregateSources
	}
	if cmd.Flags().Changed("out") {
		cfg.CombinedOut = aggregateOut
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = aggregateVerbose
	}

	cfg = cfg.MergeWithDefaults(configDefaults)
	if cfg.SourcesDir == "" && cfg.InputDir == "" {
		return fmt.Errorf("--sources is required (via flag or config)")
	}

	_, err = pipeline.Aggregate(pipelineOptions(cfg))
	return err
}

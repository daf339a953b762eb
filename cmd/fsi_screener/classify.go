package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cultivate-research/fsi-screener/internal/pipeline"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Screen every stored page text with the judgment service",
	Long: `Walks the stored text artifacts under the scraped root, submits each page to
the judgment service under the strict decision contract, records one decision
per content identifier in the decision store, and exports the results table.
Identifiers that already hold a decision are skipped unless --refresh is set.`,
	RunE: runClassify,
}

var (
	classifyConfigPath  string
	classifyScraped     string
	classifyOut         string
	classifyDB          string
	classifyAPIKey      string
	classifyModel       string
	classifyMaxChars    int
	classifyMaxAttempts int
	classifyBackoffBase float64
	classifyRefresh     bool
	classifyVerbose     bool
)

func init() {
	classifyCmd.Flags().StringVar(&classifyConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	classifyCmd.Flags().StringVarP(&classifyScraped, "scraped", "s", "", "Root directory of stored text artifacts and manifests")
	classifyCmd.Flags().StringVarP(&classifyOut, "out", "o", "", "Path for the results CSV (default: <scraped>/screening_results.csv)")
	classifyCmd.Flags().StringVar(&classifyDB, "db", "", "Path for the decision store (default: <scraped>/decisions.db)")
	classifyCmd.Flags().StringVar(&classifyAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	classifyCmd.Flags().StringVar(&classifyModel, "model", "", "Judgment service model override")
	classifyCmd.Flags().IntVar(&classifyMaxChars, "max-chars", 0, "Leading character budget of page text per call")
	classifyCmd.Flags().IntVar(&classifyMaxAttempts, "max-attempts", 0, "Maximum attempts per classification call")
	classifyCmd.Flags().Float64Var(&classifyBackoffBase, "backoff-base", 0, "Exponent base for retry delays in seconds")
	classifyCmd.Flags().BoolVar(&classifyRefresh, "refresh", false, "Reclassify identifiers that already hold a decision")
	classifyCmd.Flags().BoolVarP(&classifyVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile(classifyConfigPath, classifyVerbose)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("scraped") {
		cfg.ScrapedDir = classifyScraped
	}
	if cmd.Flags().Changed("out") {
		cfg.ResultsCSV = classifyOut
	}
	if cmd.Flags().Changed("db") {
		cfg.DecisionDB = classifyDB
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = classifyAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = classifyModel
	}
	if cmd.Flags().Changed("max-chars") {
		cfg.MaxChars = classifyMaxChars
	}
	if cmd.Flags().Changed("max-attempts") {
		cfg.MaxAttempts = classifyMaxAttempts
	}
	if cmd.Flags().Changed("backoff-base") {
		cfg.BackoffBase = classifyBackoffBase
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = classifyVerbose
	}

	cfg = cfg.MergeWithDefaults(configDefaults)
	if err := requireAPIKey(&cfg); err != nil {
		return err
	}

	opts := pipelineOptions(cfg)
	opts.Refresh = classifyRefresh

	_, err = pipeline.Classify(context.Background(), opts, uuid.NewString())
	return err
}

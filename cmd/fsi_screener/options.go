package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cultivate-research/fsi-screener/internal/backoff"
	"github.com/cultivate-research/fsi-screener/internal/config"
	"github.com/cultivate-research/fsi-screener/internal/fetch"
	"github.com/cultivate-research/fsi-screener/internal/pipeline"
)

// configDefaults fills any value not provided via config file or flags.
// Pacing and retry numbers mirror the reference behavior of the screening
// workflow: a 1–2 second pause per fetch, five classification attempts.
var configDefaults = config.Config{
	ScrapedDir:   "scraped",
	ContactEmail: "fsi-screener@cultivate-research.org",
	TimeoutSecs:  20,
	PauseMinSecs: 1,
	PauseMaxSecs: 2,
	Workers:      1,
	MaxChars:     12000,
	MaxAttempts:  5,
	BackoffBase:  2.0,
}

// loadConfigFile loads and validates a config file when a path was given.
func loadConfigFile(path string, verbose bool) (config.Config, error) {
	if path == "" {
		return config.Config{}, nil
	}
	loaded, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return config.Config{}, err
	}
	if verbose {
		_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", path)
	}
	return *loaded, nil
}

// requireAPIKey resolves the judgment service credential from the config or
// the GEMINI_API_KEY environment variable. Missing credentials are fatal at
// command start, before any work begins.
func requireAPIKey(cfg *config.Config) error {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	return nil
}

// pipelineOptions converts the merged configuration into pipeline options.
func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		InputDir:    cfg.InputDir,
		ScrapedDir:  cfg.ScrapedDir,
		SourcesDir:  cfg.SourcesDir,
		ResultsCSV:  cfg.ResultsCSV,
		DecisionDB:  cfg.DecisionDB,
		CombinedOut: cfg.CombinedOut,

		Contact: cfg.ContactEmail,
		Timeout: time.Duration(cfg.TimeoutSecs * float64(time.Second)),
		Pause: fetch.PauseRange{
			Min: time.Duration(cfg.PauseMinSecs * float64(time.Second)),
			Max: time.Duration(cfg.PauseMaxSecs * float64(time.Second)),
		},
		RatePerSec:   cfg.RatePerSec,
		Workers:      cfg.Workers,
		SkipExisting: cfg.SkipExisting,

		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		MaxChars: cfg.MaxChars,
		Policy: backoff.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Base:        cfg.BackoffBase,
			Jitter:      100 * time.Millisecond,
		},

		Verbose: cfg.Verbose,
	}
}

// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	InputDir    string `json:"input_dir,omitempty"`    // Directory containing source batch files
	ScrapedDir  string `json:"scraped_dir,omitempty"`  // Root directory for text artifacts and manifests
	ResultsCSV  string `json:"results_csv,omitempty"`  // Path for the classification results CSV
	DecisionDB  string `json:"decision_db,omitempty"`  // Path for the SQLite decision store
	CombinedOut string `json:"combined_out,omitempty"` // Output stem for the combined dataset (.csv/.xlsx appended)
	SourcesDir  string `json:"sources_dir,omitempty"`  // Directory of original source files (defaults to input_dir)

	// Fetching
	ContactEmail string  `json:"contact_email,omitempty"` // Contact address advertised in the User-Agent
	TimeoutSecs  float64 `json:"timeout_seconds,omitempty"`
	PauseMinSecs float64 `json:"pause_min_seconds,omitempty"` // Lower bound of the per-request pause
	PauseMaxSecs float64 `json:"pause_max_seconds,omitempty"` // Upper bound of the per-request pause
	RatePerSec   float64 `json:"rate_per_second,omitempty"`   // Aggregate outbound request rate cap
	Workers      int     `json:"workers,omitempty"`           // Batches scraped in parallel
	SkipExisting bool    `json:"skip_existing,omitempty"`     // Reuse stored text instead of refetching

	// Classification
	APIKey      string  `json:"api_key,omitempty"` // Gemini API key
	Model       string  `json:"model,omitempty"`   // Judgment service model override
	MaxChars    int     `json:"max_chars,omitempty"`
	MaxAttempts int     `json:"max_attempts,omitempty"`
	BackoffBase float64 `json:"backoff_base,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate numeric ranges
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("config error: 'timeout_seconds' must be non-negative")
	}
	if c.PauseMinSecs < 0 || c.PauseMaxSecs < 0 {
		return fmt.Errorf("config error: pause bounds must be non-negative")
	}
	if c.PauseMaxSecs > 0 && c.PauseMaxSecs < c.PauseMinSecs {
		return fmt.Errorf("config error: 'pause_max_seconds' must not be less than 'pause_min_seconds'")
	}
	if c.RatePerSec < 0 {
		return fmt.Errorf("config error: 'rate_per_second' must be non-negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	if c.MaxChars < 0 {
		return fmt.Errorf("config error: 'max_chars' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.BackoffBase != 0 && c.BackoffBase < 1 {
		return fmt.Errorf("config error: 'backoff_base' must be at least 1")
	}

	// Validate directories exist (if specified)
	if c.InputDir != "" {
		if _, err := os.Stat(c.InputDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: input directory not found: %s", c.InputDir)
		}
	}
	if c.SourcesDir != "" {
		if _, err := os.Stat(c.SourcesDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: sources directory not found: %s", c.SourcesDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.InputDir == "" {
		result.InputDir = defaults.InputDir
	}
	if result.ScrapedDir == "" {
		result.ScrapedDir = defaults.ScrapedDir
	}
	if result.ResultsCSV == "" {
		result.ResultsCSV = defaults.ResultsCSV
	}
	if result.DecisionDB == "" {
		result.DecisionDB = defaults.DecisionDB
	}
	if result.CombinedOut == "" {
		result.CombinedOut = defaults.CombinedOut
	}
	if result.SourcesDir == "" {
		result.SourcesDir = defaults.SourcesDir
	}
	if result.ContactEmail == "" {
		result.ContactEmail = defaults.ContactEmail
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}

	// Numeric fields: use default if zero
	if result.TimeoutSecs == 0 {
		result.TimeoutSecs = defaults.TimeoutSecs
	}
	if result.PauseMinSecs == 0 {
		result.PauseMinSecs = defaults.PauseMinSecs
	}
	if result.PauseMaxSecs == 0 {
		result.PauseMaxSecs = defaults.PauseMaxSecs
	}
	if result.RatePerSec == 0 {
		result.RatePerSec = defaults.RatePerSec
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.MaxChars == 0 {
		result.MaxChars = defaults.MaxChars
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.BackoffBase == 0 {
		result.BackoffBase = defaults.BackoffBase
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the batch run configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Paths
	Input     string `json:"input,omitempty"`      // Path to the work item list (csv, jsonl or txt)
	OutputDir string `json:"output_dir,omitempty"` // Directory for result log and checkpoint

	// Budget
	MaxBudget            float64 `json:"max_budget,omitempty"             validate:"omitempty,gt=0"`  // Hard cap on cumulative cost (USD)
	CostSafetyMultiplier float64 `json:"cost_safety_multiplier,omitempty" validate:"omitempty,gte=1"` // Padding applied to per-item estimates

	// Orchestration
	BatchSize                  int     `json:"batch_size,omitempty"                    validate:"omitempty,gt=0"`
	CheckpointInterval         int     `json:"checkpoint_interval,omitempty"           validate:"omitempty,gte=0"`
	MaxRetries                 int     `json:"max_retries,omitempty"                   validate:"omitempty,gte=0"`
	RetryBaseDelaySeconds      float64 `json:"retry_base_delay_seconds,omitempty"      validate:"omitempty,gte=0"`
	RateLimitBackoffMultiplier float64 `json:"rate_limit_backoff_multiplier,omitempty" validate:"omitempty,gte=1"`

	// Generation
	Model                 string  `json:"model,omitempty"`
	APIKey                string  `json:"api_key,omitempty"`
	RequestTimeoutSeconds float64 `json:"request_timeout_seconds,omitempty" validate:"omitempty,gt=0"`

	// Ingestion
	FetchTitles      bool `json:"fetch_titles,omitempty"`
	FetchConcurrency int  `json:"fetch_concurrency,omitempty" validate:"omitempty,gt=0"`

	// Behavior
	Resume      bool   `json:"resume,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"` // Optional PostgreSQL URL for run history
}

// DefaultConfig returns the defaults applied for unset values.
func DefaultConfig() Config {
	return Config{
		OutputDir:                  "output",
		MaxBudget:                  5.0,
		CostSafetyMultiplier:       1.5,
		BatchSize:                  50,
		CheckpointInterval:         10,
		MaxRetries:                 3,
		RetryBaseDelaySeconds:      2,
		RateLimitBackoffMultiplier: 4,
		Model:                      "gemini-2.5-flash-lite",
		RequestTimeoutSeconds:      60,
		FetchConcurrency:           4,
	}
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

// Validate checks that the configuration has valid values. Struct tags
// cover range checks; path existence is checked by hand since the input
// file may legitimately be provided later via CLI flags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config error: field %q fails rule %q", first.Field(), first.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.Input != "" {
		if _, err := os.Stat(c.Input); os.IsNotExist(err) {
			return fmt.Errorf("config error: input file not found: %s", c.Input)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Input == "" {
		result.Input = defaults.Input
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MaxBudget == 0 {
		result.MaxBudget = defaults.MaxBudget
	}
	if result.CostSafetyMultiplier == 0 {
		result.CostSafetyMultiplier = defaults.CostSafetyMultiplier
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.CheckpointInterval == 0 {
		result.CheckpointInterval = defaults.CheckpointInterval
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.RetryBaseDelaySeconds == 0 {
		result.RetryBaseDelaySeconds = defaults.RetryBaseDelaySeconds
	}
	if result.RateLimitBackoffMultiplier == 0 {
		result.RateLimitBackoffMultiplier = defaults.RateLimitBackoffMultiplier
	}
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if result.FetchConcurrency == 0 {
		result.FetchConcurrency = defaults.FetchConcurrency
	}

	return result
}

// RetryBaseDelay returns the retry base delay as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelaySeconds * float64(time.Second))
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds * float64(time.Second))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/budget"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/checkpoint"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/config"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/dedup"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/engine"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/ingestion"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/llm"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/observability"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/progress"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/quality"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/results"
)

// Token counts assumed per request when estimating cost before the first
// call. Slug prompts are short; the safety multiplier absorbs the error.
const (
	estPromptTokens = 600
	estOutputTokens = 80
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Process an item list into slugs with budget enforcement and resume",
	Long: `Runs every URL in the input list through the LLM to produce one slug per post.
The run stops cleanly on budget exhaustion or provider rate limiting and can be resumed with --resume.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runBatchCmd,
}

var (
	runConfigPath    string
	runInput         string
	runOutputDir     string
	runMaxBudget     float64
	runBatchSize     int
	runCheckpointInt int
	runMaxRetries    int
	runModel         string
	runAPIKey        string
	runResume        bool
	runVerbose       bool
	runFetchTitles   bool
	runDatabaseURL   string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runInput, "input", "i", "", "Path to item list (.csv, .jsonl or .txt)")
	runCommand.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for the result log and checkpoint")
	runCommand.Flags().Float64Var(&runMaxBudget, "max-budget", 0, "Hard cap on cumulative cost for the run (USD)")
	runCommand.Flags().IntVar(&runBatchSize, "batch-size", 0, "Maximum new items to attempt in this invocation")
	runCommand.Flags().IntVar(&runCheckpointInt, "checkpoint-interval", 0, "Committed results between periodic checkpoint saves")
	runCommand.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Retry attempts for transient failures")
	runCommand.Flags().StringVarP(&runModel, "model", "m", "", "Gemini model to use")
	runCommand.Flags().BoolVar(&runResume, "resume", false, "Resume from the previous checkpoint and result log")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")
	runCommand.Flags().BoolVar(&runFetchTitles, "fetch-titles", false, "Fetch pages to backfill missing titles before processing")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run history persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runBatchCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose)
	printer := observability.NewPrinter(os.Stdout)

	// Load the full item list. Indexes into this list are the resume
	// coordinate system, so the list is never reordered or filtered here.
	items, err := ingestion.LoadItems(cfg.Input)
	if err != nil {
		return err
	}

	// Rebuild "what's done" from the committed result log; the checkpoint
	// is only a resume-speed hint on top of it.
	opts := engine.RunOptions{}
	index := dedup.NewIndex()
	if !cfg.Resume {
		// Opening the sink would fold a prior log into this run's output,
		// and without the replayed index every old key would be generated
		// and recorded a second time.
		if err := ensureFreshOutput(cfg.OutputDir); err != nil {
			return err
		}
	} else {
		existing, dropped, err := results.LoadExisting(cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to read previous results: %w", err)
		}
		if dropped > 0 {
			logger.Warn("dropped unreadable result lines", "count", dropped)
		}
		index.Seed(existing)
		opts.SeedProcessed = len(existing)

		cp, err := checkpoint.NewStore(cfg.OutputDir).Load()
		if errors.Is(err, checkpoint.ErrCorrupt) {
			logger.Warn("checkpoint is corrupt, rescanning from the start", "error", err)
		} else if err != nil {
			return err
		} else if cp != nil {
			opts.ResumeIndex = cp.ResumeIndex
			opts.SeedFailures = cp.FailedItems
			opts.SeedCost = cp.CumulativeCost
		}
	}

	// A checkpoint from a longer item list can point past the end.
	if opts.ResumeIndex > len(items) {
		opts.ResumeIndex = len(items)
	}

	// Apply the batch size as a window on top of the resume point so item
	// indexes stay stable across invocations.
	end := len(items)
	if cfg.BatchSize > 0 && opts.ResumeIndex+cfg.BatchSize < end {
		end = opts.ResumeIndex + cfg.BatchSize
	}
	batch := items[:end]

	if cfg.FetchTitles {
		fetcher := ingestion.NewTitleFetcher(cfg.FetchConcurrency, cfg.RequestTimeout(), logger)
		filled, err := fetcher.Backfill(ctx, batch[opts.ResumeIndex:])
		if err != nil {
			return fmt.Errorf("title backfill failed: %w", err)
		}
		logger.Info("backfilled titles", "filled", filled)
	}

	if cfg.Verbose {
		printer.PrintRunHeader(cfg.Input, len(batch), cfg.MaxBudget, cfg.Model, cfg.Resume, opts.ResumeIndex)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig().WithModel(llm.TierLite, cfg.Model), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	slugger, err := llm.NewSlugGenerator(client, llm.TierLite, cfg.RequestTimeout(), logger)
	if err != nil {
		return err
	}

	perItem := budget.EstimateItem(cfg.Model, estPromptTokens, estOutputTokens, cfg.CostSafetyMultiplier)
	guard, err := budget.NewGuard(cfg.MaxBudget, perItem)
	if err != nil {
		return err
	}

	sink, err := results.Open(cfg.OutputDir)
	if err != nil {
		return err
	}

	engineCfg := engine.Config{
		MaxRetries:                cfg.MaxRetries,
		RetryBaseDelay:            cfg.RetryBaseDelay(),
		ThrottleBackoffMultiplier: cfg.RateLimitBackoffMultiplier,
		CheckpointInterval:        cfg.CheckpointInterval,
	}
	if cfg.Verbose {
		engineCfg.OnProgress = func(snap progress.Snapshot) {
			printer.PrintProgress(snap)
		}
	}

	orch := engine.New(
		slugger,
		guard,
		index,
		checkpoint.NewStore(cfg.OutputDir),
		sink,
		quality.NewValidator(quality.DefaultPenaltyPerIssue),
		logger,
		engineCfg,
	)

	history := newRunHistory(ctx, cfg, logger)
	if history != nil {
		defer history.close()
		history.start(ctx, cfg.Input, cfg.Model, len(batch))
	}

	report, runErr := orch.Run(ctx, batch, opts)
	if history != nil {
		history.finish(report)
	}

	printer.PrintRunSummary(report)
	printer.PrintFailures(report)

	if runErr != nil {
		return runErr
	}
	if report.Status.Resumable() {
		fmt.Fprintf(os.Stdout, "Run stopped (%s). Rerun with --resume to continue.\n", report.Status)
	} else if report.Status == engine.StatusCompleted && end < len(items) {
		fmt.Fprintf(os.Stdout, "Batch done, %d items remain. Rerun with --resume to continue.\n", len(items)-end)
	}
	return nil
}

// ensureFreshOutput rejects a non-resume run over an output directory that
// already holds results, since that would duplicate records per key.
func ensureFreshOutput(outputDir string) error {
	final := filepath.Join(outputDir, results.FinalName)
	for _, path := range []string{final, final + results.PartialSuffix} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("output directory %s already holds results (%s); pass --resume to continue or use a clean directory", outputDir, filepath.Base(path))
		}
	}
	return nil
}

// resolveConfig layers config sources: file, then explicit flags, then
// defaults, then environment fallbacks for secrets.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("input") {
		cfg.Input = runInput
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = runOutputDir
	}
	if cmd.Flags().Changed("max-budget") {
		cfg.MaxBudget = runMaxBudget
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = runBatchSize
	}
	if cmd.Flags().Changed("checkpoint-interval") {
		cfg.CheckpointInterval = runCheckpointInt
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries = runMaxRetries
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = runModel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("resume") {
		cfg.Resume = runResume
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("fetch-titles") {
		cfg.FetchTitles = runFetchTitles
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	cfg = cfg.MergeWithDefaults(config.DefaultConfig())

	if cfg.Input == "" {
		return cfg, fmt.Errorf("--input is required (via flag or config)")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

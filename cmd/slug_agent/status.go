package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/checkpoint"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/results"
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Show progress recorded in an output directory",
	Long:  "Reads the checkpoint and result log in an output directory and prints how far the batch got, without touching the LLM or the budget.",
	RunE:  statusCmd,
}

var statusOutputDir string

func init() {
	statusCommand.Flags().StringVarP(&statusOutputDir, "output-dir", "o", "output", "Directory holding the result log and checkpoint")
	rootCmd.AddCommand(statusCommand)
}

func statusCmd(_ *cobra.Command, _ []string) error {
	existing, dropped, err := results.LoadExisting(statusOutputDir)
	if err != nil {
		return fmt.Errorf("failed to read result log: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Output dir:  %s\n", statusOutputDir)
	fmt.Fprintf(os.Stdout, "Results:     %d committed\n", len(existing))
	if dropped > 0 {
		fmt.Fprintf(os.Stdout, "Unreadable:  %d lines dropped\n", dropped)
	}

	cp, err := checkpoint.NewStore(statusOutputDir).Load()
	switch {
	case errors.Is(err, checkpoint.ErrCorrupt):
		fmt.Fprintln(os.Stdout, "Checkpoint:  corrupt (a resumed run will rescan the result log)")
	case err != nil:
		return err
	case cp == nil:
		fmt.Fprintln(os.Stdout, "Checkpoint:  none")
	default:
		fmt.Fprintf(os.Stdout, "Checkpoint:  saved %s\n", cp.SavedAt.Format(time.RFC3339))
		fmt.Fprintf(os.Stdout, "  Resume at: item %d\n", cp.ResumeIndex)
		fmt.Fprintf(os.Stdout, "  Processed: %d\n", cp.ProcessedCount)
		fmt.Fprintf(os.Stdout, "  Failed:    %d\n", len(cp.FailedItems))
		fmt.Fprintf(os.Stdout, "  Cost:      $%.4f\n", cp.CumulativeCost)
	}
	return nil
}

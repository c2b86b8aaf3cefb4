package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/db"
)

var historyCommand = &cobra.Command{
	Use:   "history",
	Short: "List recorded batch runs from the database",
	Long:  "Reads run records written by previous invocations with a database URL configured. With --run-id, prints a single run in detail.",
	RunE:  historyCmd,
}

var (
	historyDatabaseURL string
	historyLimit       int
	historyRunID       string
)

func init() {
	historyCommand.Flags().StringVar(&historyDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	historyCommand.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCommand.Flags().StringVar(&historyRunID, "run-id", "", "Show one run by ID instead of listing")
	rootCmd.AddCommand(historyCommand)
}

func historyCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	url := historyDatabaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer database.Close()

	if historyRunID != "" {
		id, err := uuid.Parse(historyRunID)
		if err != nil {
			return fmt.Errorf("invalid run ID: %w", err)
		}
		run, err := database.GetRun(ctx, id)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		printRunDetail(os.Stdout, run)
		return nil
	}

	runs, err := database.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	printRunList(os.Stdout, runs)
	return nil
}

func printRunList(w io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-18s  %9s  %8s  %s\n", "ID", "STATUS", "PROCESSED", "COST", "STARTED")
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s  %-18s  %4d/%-4d  $%.4f  %s\n",
			run.ID, run.Status, run.Processed, run.Total, run.TotalCost,
			run.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func printRunDetail(w io.Writer, run *db.Run) {
	fmt.Fprintf(w, "Run:        %s\n", run.ID)
	fmt.Fprintf(w, "Input:      %s\n", run.Input)
	fmt.Fprintf(w, "Model:      %s\n", run.Model)
	fmt.Fprintf(w, "Status:     %s\n", run.Status)
	fmt.Fprintf(w, "Processed:  %d / %d\n", run.Processed, run.Total)
	fmt.Fprintf(w, "Failed:     %d\n", run.Failed)
	fmt.Fprintf(w, "Skipped:    %d\n", run.Skipped)
	fmt.Fprintf(w, "Requests:   %d\n", run.Requests)
	fmt.Fprintf(w, "Cost:       $%.4f\n", run.TotalCost)
	fmt.Fprintf(w, "Started:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:  %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
	}
}

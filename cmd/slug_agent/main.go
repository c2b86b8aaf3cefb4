// Package main provides the entry point for the slug generation batch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slug_agent",
	Short: "Batch slug generator for blog posts",
	Long:  "slug_agent runs large lists of blog post URLs through an LLM to produce one URL-safe slug per post, with budget enforcement, checkpointing and resume.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

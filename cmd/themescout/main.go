// Package main provides the themescout CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/richinex/themescout/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider string
	maxIter  int
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "themescout",
		Short: "Theme-driven equity screening with LLM agents",
		Long: `themescout turns an earnings call or panel transcript into a ranked
list of public companies aligned with the themes it discusses.

Pipelines:
- run:     Analyze -> Match -> Validate -> Rank over the company universe
- compare: contrast a product's marketing narrative with its community voice`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum iterations per stage agent (0 = use AGENT_MAX_ITERATIONS)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output including agent reasoning")

	// Add commands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(artifactsCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		MaxIter:  maxIter,
		Verbose:  verbose,
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [transcript-file]",
		Short: "Run the full theme play pipeline on a transcript",
		Long: `Run the four-stage pipeline on a transcript file.

Stages execute in strict sequence:
1. Analyze:  extract investment themes from the transcript
2. Match:    score the full company universe against the themes, batch by batch
3. Validate: check high-scoring matches against recent press releases
4. Rank:     merge, rank, and report the top companies

Every intermediate result is persisted as a run-scoped artifact and can be
inspected afterwards with the 'artifacts' command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunThemePlay(context.Background(), args[0], options())
		},
	}
}

func compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [product]",
		Short: "Compare a product's marketing narrative with its community voice",
		Long: `Summarize what a company says about a product (marketing content) and
what users say about it (social posts), then contrast the two narratives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.CompareNarratives(context.Background(), args[0], options())
		},
	}
}

func artifactsCmd() *cobra.Command {
	var prefix string
	var key string

	cmd := &cobra.Command{
		Use:   "artifacts [run-id]",
		Short: "Inspect the artifacts of a past run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key != "" {
				return cli.ShowArtifact(context.Background(), args[0], key, options())
			}
			return cli.ListArtifacts(context.Background(), args[0], prefix, options())
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list keys under this prefix")
	cmd.Flags().StringVar(&key, "key", "", "Print the contents of a single artifact")

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the source database schema",
		Long: `Create the companies, press_releases, and narrative content tables in
the configured source database (DATA_SOURCE_PATH) if they don't exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.SeedSchema(options())
		},
	}
}

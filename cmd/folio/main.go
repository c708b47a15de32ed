// Package main provides the folio CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	jsonOutput bool
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Document Q&A with page-accurate citations",
	Long: `folio ingests documents into per-document collections, answers
questions against them with an LLM, and cites the exact pages the
answer came from.

Core features:
  - Page-aware PDF ingestion with per-document collections
  - Vector search over SQLite or Postgres (pgvector)
  - Federated queries across many collections at once
  - Citations as merged page ranges with clickable file links

Configuration is read from folio.toml, overridable with FOLIO_* env
vars. A .env file in the working directory is loaded automatically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to folio.toml (default ./folio.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.Version = Version
}

// exitWithError prints a formatted error to stderr and exits.
func exitWithError(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(code)
}

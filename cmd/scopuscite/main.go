// Package main provides the scopuscite CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scopuscite",
	Short: "Journal citation statistics from the Scopus API",
	Long: `scopuscite collects bibliometric data from the Scopus API.

Given a journal and a year it finds every author who published there,
downloads their complete publication and citation records, and exports
per-author statistics (h-index, citations per year, coauthor counts) to
a SQLite database and semicolon-separated CSV files.

Raw API responses are cached on disk, so interrupted downloads resume
where they stopped and repeat runs stay within the API quota.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version
}

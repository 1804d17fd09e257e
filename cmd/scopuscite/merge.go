package main

import (
	"fmt"
	"os"

	"github.com/martinsbruveris/scopuscite/internal/config"
	"github.com/martinsbruveris/scopuscite/internal/download"
	"github.com/spf13/cobra"
)

var mergeFlags struct {
	name      string
	outputDir string
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	f := mergeCmd.Flags()
	f.StringVar(&mergeFlags.name, "name", "", "Output file prefix for the merged dataset")
	f.StringVar(&mergeFlags.outputDir, "output-dir", "", "Output directory (default from config)")

	_ = mergeCmd.MarkFlagRequired("name")
}

var mergeCmd = &cobra.Command{
	Use:   "merge <dataset.db>...",
	Short: "Merge several dataset databases into one",
	Long: `Merge the author and publication tables of several dataset databases
produced by the download command. Duplicate ids are dropped, the earliest
listed dataset wins. Writes the combined database and statistics CSV.

Example:
  scopuscite merge data/output/annals_2016.db data/output/duke_2016.db \
      data/output/inventiones_2016.db --name math_2016`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	opts := download.MergeOptions{
		Inputs:    args,
		Name:      mergeFlags.name,
		OutputDir: mergeFlags.outputDir,
	}
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.OutputDir
	}

	result, err := download.Merge(opts, printf)
	if err != nil {
		return err
	}

	fmt.Printf("\nDone: %d authors, %d publications.\n", result.NumAuthors, result.NumPubs)
	fmt.Printf("Database: %s\n", result.DBPath)
	fmt.Printf("CSV:      %s\n", result.CSVPath)
	return nil
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/martinsbruveris/scopuscite/internal/config"
	"github.com/martinsbruveris/scopuscite/internal/download"
	"github.com/martinsbruveris/scopuscite/internal/record"
	"github.com/martinsbruveris/scopuscite/internal/scopus"
	"github.com/spf13/cobra"
)

var downloadFlags struct {
	name           string
	journal        string
	issn           string
	years          string
	citeMode       string
	cacheDir       string
	cacheName      string
	outputDir      string
	firstPubBefore int

	reloadAuthorList bool
	reloadAuthorInfo bool
	reloadAuthorPubs bool
	reloadPubInfo    bool
}

func init() {
	// Load .env file if present (for SCOPUS_API_KEY)
	_ = godotenv.Load()

	rootCmd.AddCommand(downloadCmd)

	f := downloadCmd.Flags()
	f.StringVar(&downloadFlags.name, "name", "", "Output file prefix (default: <journal>_<year>)")
	f.StringVar(&downloadFlags.journal, "journal", "", "Journal name (matches substrings)")
	f.StringVar(&downloadFlags.issn, "issn", "", "Journal ISSN")
	f.StringVar(&downloadFlags.years, "years", "", "Citation aggregation window as start:end, end exclusive (e.g. 1960:2019)")
	f.StringVar(&downloadFlags.citeMode, "cite-mode", "all", "Citation counts: all, exclude-self or exclude-books")
	f.StringVar(&downloadFlags.cacheDir, "cache-dir", "", "Cache directory (default from config)")
	f.StringVar(&downloadFlags.cacheName, "cache-name", "", "Cache file prefix (default: the output name)")
	f.StringVar(&downloadFlags.outputDir, "output-dir", "", "Output directory (default from config)")
	f.IntVar(&downloadFlags.firstPubBefore, "first-pub-before", 0, "Only keep authors whose first publication is in this year or earlier")

	f.BoolVar(&downloadFlags.reloadAuthorList, "reload-author-list", false, "Refetch the journal author search")
	f.BoolVar(&downloadFlags.reloadAuthorInfo, "reload-author-info", false, "Refetch author profiles")
	f.BoolVar(&downloadFlags.reloadAuthorPubs, "reload-author-pubs", false, "Refetch per-author publication lists")
	f.BoolVar(&downloadFlags.reloadPubInfo, "reload-pub-info", false, "Refetch publication citation records")

	_ = downloadCmd.MarkFlagRequired("years")
}

var downloadCmd = &cobra.Command{
	Use:   "download <year>",
	Short: "Download citation data for a journal year",
	Long: `Download the publication and citation records of every author who
published in a journal in a given year, aggregate per-author statistics
over the citation window, and export them.

At least one of --journal and --issn is required. Note that the journal
name also matches substrings, i.e. "Nature" will also find publications
in "Nature Physics"; pass the ISSN to pin down one journal.

Outputs, under the output directory:
  <name>.db              pubs and authors tables (SQLite)
  <name>_export.csv      aggregated author statistics
  <name>_no_cites.csv    author snapshot before aggregation

Example:
  scopuscite download 2016 --issn 00127094 --years 1960:2019 --name duke_2016`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[0])
	}

	years, err := record.ParseYearRange(downloadFlags.years)
	if err != nil {
		return err
	}
	mode, err := record.ParseCiteMode(downloadFlags.citeMode)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, config.HelpfulKeyMessage())
		os.Exit(ExitConfigError)
	}

	opts := download.Options{
		Name:           downloadFlags.name,
		Year:           year,
		Journal:        downloadFlags.journal,
		ISSN:           downloadFlags.issn,
		Years:          years,
		Mode:           mode,
		CacheDir:       downloadFlags.cacheDir,
		CacheName:      downloadFlags.cacheName,
		OutputDir:      downloadFlags.outputDir,
		FirstPubBefore: downloadFlags.firstPubBefore,

		ReloadAuthorList: downloadFlags.reloadAuthorList,
		ReloadAuthorInfo: downloadFlags.reloadAuthorInfo,
		ReloadAuthorPubs: downloadFlags.reloadAuthorPubs,
		ReloadPubInfo:    downloadFlags.reloadPubInfo,
	}
	if opts.CacheDir == "" {
		opts.CacheDir = cfg.CacheDir
	}
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.OutputDir
	}
	if opts.CacheName == "" {
		opts.CacheName = opts.OutputName()
	}

	clientOpts := []scopus.ClientOption{
		scopus.WithAPIKey(cfg.APIKey),
		scopus.WithInstToken(cfg.InstToken),
	}
	// SCOPUS_BASE_URL points the client at a mirror or a test server.
	if u := os.Getenv("SCOPUS_BASE_URL"); u != "" {
		clientOpts = append(clientOpts, scopus.WithBaseURL(u))
	}
	client := scopus.NewClient(clientOpts...)

	result, err := download.Run(cmd.Context(), client, opts, printf)
	if err != nil {
		return err
	}

	fmt.Printf("\nDone: %d authors (%d selected), %d publications.\n",
		result.NumAuthors, result.NumSelected, result.NumPubs)
	fmt.Printf("Database: %s\n", result.DBPath)
	fmt.Printf("CSV:      %s\n", result.CSVPath)
	return nil
}

// printf is the progress sink handed to the pipeline; one message per line.
func printf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

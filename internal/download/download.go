// Package download ties the fetch, aggregation, and export layers into the
// journal-year pipeline: find everyone who published in a journal in a given
// year, pull their full publication records, and export per-author citation
// statistics.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/martinsbruveris/scopuscite/internal/aggregate"
	"github.com/martinsbruveris/scopuscite/internal/cache"
	"github.com/martinsbruveris/scopuscite/internal/export"
	"github.com/martinsbruveris/scopuscite/internal/fetch"
	"github.com/martinsbruveris/scopuscite/internal/record"
)

// Options configures one pipeline run.
type Options struct {
	// Name prefixes the output files. Empty derives it from the journal
	// (or ISSN) and year.
	Name    string
	Year    int
	Journal string
	ISSN    string

	// Years is the citation aggregation window, Mode the citation count
	// variant requested from the remote.
	Years record.YearRange
	Mode  record.CiteMode

	CacheDir  string
	CacheName string
	OutputDir string

	// FirstPubBefore drops authors whose first publication is later than
	// the cutoff year. Zero disables the filter.
	FirstPubBefore int

	ReloadAuthorList bool
	ReloadAuthorInfo bool
	ReloadAuthorPubs bool
	ReloadPubInfo    bool
}

// Result reports what a pipeline run produced.
type Result struct {
	NumAuthors   int
	NumSelected  int
	NumPubs      int
	DBPath       string
	CSVPath      string
	SnapshotPath string
}

// OutputName returns the file prefix for this run.
func (o Options) OutputName() string {
	if o.Name != "" {
		return o.Name
	}
	source := o.Journal
	if source == "" {
		source = o.ISSN
	}
	return source + "_" + strconv.Itoa(o.Year)
}

// Run executes the pipeline against the given remote. Progress goes through
// logf; pass fetch output there too so a quiet run stays quiet.
func Run(ctx context.Context, remote fetch.Remote, opts Options, logf func(format string, args ...any)) (*Result, error) {
	if err := opts.Years.Validate(); err != nil {
		return nil, err
	}
	if opts.Journal == "" && opts.ISSN == "" {
		return nil, fmt.Errorf("either a journal name or an ISSN is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cache.DefaultDir
	}
	cacheName := opts.CacheName
	if cacheName == "" {
		cacheName = cache.DefaultName
	}

	searchStore, err := cache.Load(cache.SearchQueryPath(cacheDir))
	if err != nil {
		return nil, err
	}
	authorStore, err := cache.Load(cache.AuthorPath(cacheDir, cacheName))
	if err != nil {
		return nil, err
	}
	authorPubStore, err := cache.Load(cache.AuthorPubPath(cacheDir, cacheName))
	if err != nil {
		return nil, err
	}
	pubStore, err := cache.Load(cache.PublicationPath(cacheDir, cacheName))
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(remote, fetch.WithLogf(logf))
	outputName := filepath.Join(opts.OutputDir, opts.OutputName())
	result := &Result{
		DBPath:       outputName + ".db",
		CSVPath:      outputName + "_export.csv",
		SnapshotPath: outputName + "_no_cites.csv",
	}

	// Authors who published in the journal that year.
	authorIDs, err := fetcher.AuthorsForJournalYear(ctx, searchStore,
		opts.Year, opts.Journal, opts.ISSN, opts.ReloadAuthorList)
	if err != nil {
		return nil, err
	}
	if len(authorIDs) == 0 {
		return nil, fmt.Errorf("no authors found for %s in %d", opts.OutputName(), opts.Year)
	}

	authors, err := fetcher.Authors(ctx, authorStore, authorIDs, opts.ReloadAuthorInfo)
	if err != nil {
		return nil, err
	}
	result.NumAuthors = len(authors)

	logf("Saving author snapshot to %s.", result.SnapshotPath)
	if err := export.WriteAuthorsCSV(result.SnapshotPath, authors); err != nil {
		return nil, err
	}

	totalPubs := 0
	for _, a := range authors {
		totalPubs += a.NPubs
	}
	logf("Total authors: %d", len(authors))
	logf("Total publications: %d", totalPubs)
	logf("")

	selected := selectAuthors(authors, opts.FirstPubBefore)
	result.NumSelected = len(selected)
	if opts.FirstPubBefore > 0 {
		totalPubs = 0
		for _, a := range selected {
			totalPubs += a.NPubs
		}
		logf("Authors with first publication in %d or earlier: %d", opts.FirstPubBefore, len(selected))
		logf("Total publications of selection: %d", totalPubs)
		logf("")
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no authors left after the first-publication filter")
	}

	selectedIDs := make([]string, 0, len(selected))
	for _, a := range selected {
		selectedIDs = append(selectedIDs, a.ID)
	}

	// Their publications, then the citation records.
	pubIDs, err := fetcher.AuthorPublications(ctx, authorPubStore, selectedIDs, opts.ReloadAuthorPubs)
	if err != nil {
		return nil, err
	}
	pubs, err := fetcher.Publications(ctx, pubStore, pubIDs, opts.Years, opts.Mode, opts.ReloadPubInfo)
	if err != nil {
		return nil, err
	}
	result.NumPubs = len(pubs)

	logf("Aggregating citation statistics.")
	years := opts.Years
	stats, err := aggregate.Aggregate(selected, pubs, &years)
	if err != nil {
		return nil, err
	}

	db, err := export.OpenDB(result.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.WritePublications(pubs); err != nil {
		return nil, err
	}
	if err := db.WriteAuthors(stats); err != nil {
		return nil, err
	}

	logf("Exporting author statistics to %s.", result.CSVPath)
	if err := export.WriteStatsCSV(result.CSVPath, stats); err != nil {
		return nil, err
	}

	return result, nil
}

// selectAuthors applies the first-publication cutoff. A zero cutoff keeps
// everyone; authors without a known first publication year are dropped by
// an active filter.
func selectAuthors(authors []record.Author, firstPubBefore int) []record.Author {
	if firstPubBefore <= 0 {
		return authors
	}
	selected := make([]record.Author, 0, len(authors))
	for _, a := range authors {
		if a.FirstPub > 0 && a.FirstPub <= firstPubBefore {
			selected = append(selected, a)
		}
	}
	return selected
}

package download

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/martinsbruveris/scopuscite/internal/export"
	"github.com/martinsbruveris/scopuscite/internal/record"
)

// MergeOptions configures a dataset merge.
type MergeOptions struct {
	// Inputs are dataset database paths produced by Run, in priority
	// order: on duplicate ids the earlier dataset wins.
	Inputs    []string
	Name      string
	OutputDir string
}

// MergeResult reports what a merge produced.
type MergeResult struct {
	NumAuthors int
	NumPubs    int
	DBPath     string
	CSVPath    string
}

// Merge joins the author and publication tables of several dataset
// databases into one, dropping duplicate ids, and writes the combined
// database plus the statistics CSV.
func Merge(opts MergeOptions, logf func(format string, args ...any)) (*MergeResult, error) {
	if len(opts.Inputs) == 0 {
		return nil, fmt.Errorf("no input databases given")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("a name for the merged dataset is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	var authors []record.AuthorStats
	var pubs []record.Publication
	seenAuthors := make(map[string]bool)
	seenPubs := make(map[string]bool)

	for _, input := range opts.Inputs {
		db, err := export.OpenDB(input)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", input, err)
		}

		dbAuthors, err := db.ReadAuthors()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("reading authors from %s: %w", input, err)
		}
		dbPubs, err := db.ReadPublications()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("reading pubs from %s: %w", input, err)
		}
		if err := db.Close(); err != nil {
			return nil, err
		}

		added := 0
		for _, a := range dbAuthors {
			if seenAuthors[a.ID] {
				continue
			}
			seenAuthors[a.ID] = true
			authors = append(authors, a)
			added++
		}
		for _, p := range dbPubs {
			if seenPubs[p.ID] {
				continue
			}
			seenPubs[p.ID] = true
			pubs = append(pubs, p)
		}
		logf("%s: %d authors (%d new), %d publications.",
			input, len(dbAuthors), added, len(dbPubs))
	}

	outputName := filepath.Join(opts.OutputDir, opts.Name)
	result := &MergeResult{
		NumAuthors: len(authors),
		NumPubs:    len(pubs),
		DBPath:     outputName + ".db",
		CSVPath:    outputName + "_export.csv",
	}

	db, err := export.OpenDB(result.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.WritePublications(pubs); err != nil {
		return nil, err
	}
	if err := db.WriteAuthors(authors); err != nil {
		return nil, err
	}

	logf("Merged %d authors and %d publications into %s.",
		len(authors), len(pubs), result.DBPath)
	if err := export.WriteStatsCSV(result.CSVPath, authors); err != nil {
		return nil, err
	}

	return result, nil
}

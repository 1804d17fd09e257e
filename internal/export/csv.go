package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/martinsbruveris/scopuscite/internal/record"
)

// WriteAuthorsCSV writes the pre-aggregation author snapshot, one row per
// author with the remote-reported statistics and no per-year vectors.
// Fields are semicolon separated.
func WriteAuthorsCSV(path string, authors []record.Author) error {
	header := []string{
		"id", "name", "first_name", "last_name", "affiliation",
		"first_pub", "last_pub", "npubs", "ncites", "ncited_by",
		"ncoauthors", "hindex",
	}

	rows := make([][]string, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, []string{
			a.ID, a.Name, a.FirstName, a.LastName, a.Affiliation,
			strconv.Itoa(a.FirstPub), strconv.Itoa(a.LastPub),
			strconv.Itoa(a.NPubs), strconv.Itoa(a.NCites),
			strconv.Itoa(a.NCitedBy), strconv.Itoa(a.NCoauthors),
			strconv.Itoa(a.HIndex),
		})
	}

	return writeSemicolonCSV(path, header, rows)
}

// WriteStatsCSV writes the aggregated author rows including the per-year
// vectors. Vector cells hold JSON arrays so the file round-trips without a
// schema. Fields are semicolon separated.
func WriteStatsCSV(path string, stats []record.AuthorStats) error {
	header := []string{
		"id", "name", "first_name", "last_name", "affiliation",
		"ncited_by", "npubs", "first_pub", "last_pub", "ncites",
		"ncoauthors", "hindex", "pcc", "lcc",
		"cites_by_year", "pubs_by_year", "ncoauthors_acc", "ncoauthors_mean",
	}

	rows := make([][]string, 0, len(stats))
	for _, a := range stats {
		cites, err := jsonInts(a.CitesByYear)
		if err != nil {
			return fmt.Errorf("marshaling citations for %s: %w", a.ID, err)
		}
		pubs, err := jsonInts(a.PubsByYear)
		if err != nil {
			return fmt.Errorf("marshaling publication counts for %s: %w", a.ID, err)
		}
		acc, err := jsonInts(a.NCoauthorsAcc)
		if err != nil {
			return fmt.Errorf("marshaling coauthor counts for %s: %w", a.ID, err)
		}

		rows = append(rows, []string{
			a.ID, a.Name, a.FirstName, a.LastName, a.Affiliation,
			strconv.Itoa(a.NCitedBy), strconv.Itoa(a.NPubs),
			strconv.Itoa(a.FirstPub), strconv.Itoa(a.LastPub),
			strconv.Itoa(a.NCites), strconv.Itoa(a.NCoauthors),
			strconv.Itoa(a.HIndex), strconv.Itoa(a.PCC), strconv.Itoa(a.LCC),
			cites, pubs, acc,
			strconv.FormatFloat(a.NCoauthorsMean, 'g', -1, 64),
		})
	}

	return writeSemicolonCSV(path, header, rows)
}

// writeSemicolonCSV writes a header plus rows atomically via a temp file.
func writeSemicolonCSV(path string, header []string, rows [][]string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".csv-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	w := csv.NewWriter(tmpFile)
	w.Comma = ';'

	if err := w.Write(header); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmpFile.Close()
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("flushing rows: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

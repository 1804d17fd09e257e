package aggregate

import (
	"fmt"
	"sort"

	"github.com/martinsbruveris/scopuscite/internal/record"
)

// InferYearRange derives the aggregation window from the publications'
// citation vectors. All publications carrying a non-empty vector must agree
// on the window; a mismatch is an error rather than a silently wrong
// result. Publications with an empty vector are exempt (they contribute
// zeros regardless of the window).
func InferYearRange(pubs []record.Publication) (record.YearRange, error) {
	var years record.YearRange
	found := false

	for _, pub := range pubs {
		if len(pub.CitesByYear) == 0 {
			continue
		}
		pubYears := record.YearRange{
			Start: pub.CitesStartYear,
			End:   pub.CitesStartYear + len(pub.CitesByYear),
		}
		if !found {
			years = pubYears
			found = true
			continue
		}
		if pubYears != years {
			return record.YearRange{}, fmt.Errorf(
				"inconsistent citation windows: publication %s has [%d, %d), expected [%d, %d); pass an explicit year range",
				pub.ID, pubYears.Start, pubYears.End, years.Start, years.End)
		}
	}

	if !found {
		return record.YearRange{}, fmt.Errorf("cannot infer year range: no publication has citation data")
	}
	return years, nil
}

// Aggregate recomputes author-level statistics from publication records.
// It produces one row per input author, in input order; remote-reported
// statistics on the Author records are ignored in favor of values derived
// from the publication set. years may be nil, in which case the window is
// inferred via InferYearRange.
func Aggregate(authors []record.Author, pubs []record.Publication, years *record.YearRange) ([]record.AuthorStats, error) {
	var window record.YearRange
	if years != nil {
		window = *years
		if err := window.Validate(); err != nil {
			return nil, err
		}
	} else {
		inferred, err := InferYearRange(pubs)
		if err != nil {
			return nil, err
		}
		window = inferred
	}

	pubByID := make(map[string]*record.Publication, len(pubs))
	for i := range pubs {
		pubByID[pubs[i].ID] = &pubs[i]
	}
	index := PubsByAuthor(pubs)

	stats := make([]record.AuthorStats, 0, len(authors))
	for _, author := range authors {
		row := record.AuthorStats{
			ID:          author.ID,
			Name:        author.Name,
			FirstName:   author.FirstName,
			LastName:    author.LastName,
			Affiliation: author.Affiliation,
			// The publication data does not allow recomputing this one.
			NCitedBy: author.NCitedBy,
		}
		aggregateAuthor(&row, authorPubs(author.ID, index, pubByID), window)
		stats = append(stats, row)
	}

	return stats, nil
}

// authorPubs resolves an author's publication set into records, sorted by
// id for deterministic output.
func authorPubs(authorID string, index map[string]map[string]bool, pubByID map[string]*record.Publication) []*record.Publication {
	ids := make([]string, 0, len(index[authorID]))
	for id := range index[authorID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	pubs := make([]*record.Publication, 0, len(ids))
	for _, id := range ids {
		if pub, ok := pubByID[id]; ok {
			pubs = append(pubs, pub)
		}
	}
	return pubs
}

// aggregateAuthor fills the recomputed statistics of one output row from
// the author's publications.
func aggregateAuthor(row *record.AuthorStats, pubs []*record.Publication, window record.YearRange) {
	numYears := window.Len()
	row.CitesByYear = make([]int, numYears)
	row.PubsByYear = make([]int, numYears)
	row.NCoauthorsAcc = make([]int, numYears)

	row.NPubs = len(pubs)
	if len(pubs) == 0 {
		return
	}

	coauthors := make(map[string]bool)
	citations := make([]int, 0, len(pubs))
	coauthorCountSum := 0

	for i, pub := range pubs {
		if i == 0 || pub.Year < row.FirstPub {
			row.FirstPub = pub.Year
		}
		if pub.Year > row.LastPub {
			row.LastPub = pub.Year
		}

		row.NCites += pub.NCites
		row.PCC += pub.PCC
		row.LCC += pub.LCC
		citations = append(citations, pub.NCites)

		// Align each publication's citation vector by its start year so a
		// window wider than the vector still sums correctly.
		offset := pub.CitesStartYear - window.Start
		for j, c := range pub.CitesByYear {
			if idx := offset + j; idx >= 0 && idx < numYears {
				row.CitesByYear[idx] += c
			}
		}

		if window.Contains(pub.Year) {
			row.PubsByYear[window.Index(pub.Year)]++
		}

		for _, a := range pub.Authors {
			coauthors[a] = true
		}
		if n := len(pub.Authors); n > 1 {
			coauthorCountSum += n - 1
		}
	}

	delete(coauthors, row.ID)
	row.NCoauthors = len(coauthors)
	row.HIndex = HIndex(citations)
	row.NCoauthorsMean = float64(coauthorCountSum) / float64(len(pubs))

	fillCoauthorsAcc(row, pubs, window)
}

// fillCoauthorsAcc computes the cumulative-distinct-coauthors vector: for
// each year y of the window, the number of distinct coauthors over all of
// the author's publications dated <= y. Publications dated before the
// window seed the accumulator, so the vector is non-decreasing from a
// possibly non-zero base.
func fillCoauthorsAcc(row *record.AuthorStats, pubs []*record.Publication, window record.YearRange) {
	byYear := make(map[int][]string)
	acc := make(map[string]bool)

	for _, pub := range pubs {
		if pub.Year < window.Start {
			for _, a := range pub.Authors {
				acc[a] = true
			}
			continue
		}
		if pub.Year < window.End {
			byYear[pub.Year] = append(byYear[pub.Year], pub.Authors...)
		}
	}
	delete(acc, row.ID)

	for year := window.Start; year < window.End; year++ {
		for _, a := range byYear[year] {
			if a != row.ID {
				acc[a] = true
			}
		}
		row.NCoauthorsAcc[window.Index(year)] = len(acc)
	}
}

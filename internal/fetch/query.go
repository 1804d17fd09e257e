package fetch

import (
	"strconv"
	"strings"
)

// JournalYearQuery builds the search query matching all publications of a
// journal in a given year. The journal title also matches substrings
// ("Nature" matches "Nature Physics"), so the ISSN is the more precise
// selector when both are available. The query string doubles as the
// search-query cache key.
func JournalYearQuery(year int, journal, issn string) string {
	query := "PUBYEAR+IS+" + strconv.Itoa(year)
	if journal != "" {
		query += " AND SRCTITLE(" + journal + ")"
	}
	if issn != "" {
		query += " AND ISSN(" + issn + ")"
	}
	return query
}

// AuthorQuery builds the search query matching all publications of one
// author.
func AuthorQuery(authorID string) string {
	return "AU-ID(" + authorID + ")"
}

// AuthorChunkQuery builds the search query matching the publications of any
// author in the chunk.
func AuthorChunkQuery(authorIDs []string) string {
	clauses := make([]string, len(authorIDs))
	for i, id := range authorIDs {
		clauses[i] = AuthorQuery(id)
	}
	return strings.Join(clauses, " OR ")
}

// Package record defines the domain types shared across the fetch,
// aggregation, and export layers: publications, authors, year ranges,
// and citation modes.
package record

import "strings"

// EIDPrefix is the scheme prefix Scopus prepends to publication ids.
// An eid "2-s2.0-85012345678" corresponds to the bare id "85012345678".
const EIDPrefix = "2-s2.0-"

// IDFromEID strips the eid prefix to obtain a bare publication id.
func IDFromEID(eid string) string {
	return strings.TrimPrefix(eid, EIDPrefix)
}

// EIDFromID prepends the eid prefix to a bare publication id.
func EIDFromID(id string) string {
	return EIDPrefix + id
}

// Publication holds the decoded citation record for a single publication.
type Publication struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Journal string   `json:"journal"`
	Year    int      `json:"year"`
	Authors []string `json:"authors"` // author ids, original order preserved

	// CitesByYear[i] is the citation count in year CitesStartYear+i.
	CitesByYear    []int `json:"cites_by_year"`
	CitesStartYear int   `json:"cites_start_year"`

	// PCC and LCC are the cumulative citation counts before and after
	// the tracked window.
	PCC int `json:"pcc"`
	LCC int `json:"lcc"`

	// NCites is the derived total: sum(CitesByYear) + PCC + LCC.
	NCites int `json:"ncites"`
}

// Author holds the decoded profile record for a single author as reported
// by the remote source. Statistics fields are superseded by aggregation.
type Author struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Affiliation string `json:"affiliation"`

	FirstPub   int `json:"first_pub"`
	LastPub    int `json:"last_pub"`
	NPubs      int `json:"npubs"`
	NCites     int `json:"ncites"`
	NCitedBy   int `json:"ncited_by"`
	NCoauthors int `json:"ncoauthors"`
	HIndex     int `json:"hindex"`
}

// AuthorStats is one aggregated output row per author. Identity fields come
// from the Author record; all statistics are recomputed from the author's
// publication set. NCitedBy is carried over unchanged since the publication
// data does not allow recomputing it.
type AuthorStats struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Affiliation string `json:"affiliation"`
	NCitedBy    int    `json:"ncited_by"`

	NPubs      int `json:"npubs"`
	FirstPub   int `json:"first_pub"`
	LastPub    int `json:"last_pub"`
	NCites     int `json:"ncites"`
	NCoauthors int `json:"ncoauthors"`
	HIndex     int `json:"hindex"`

	PCC         int   `json:"pcc"`
	LCC         int   `json:"lcc"`
	CitesByYear []int `json:"cites_by_year"`

	PubsByYear     []int   `json:"pubs_by_year"`
	NCoauthorsAcc  []int   `json:"ncoauthors_acc"`
	NCoauthorsMean float64 `json:"ncoauthors_mean"`
}

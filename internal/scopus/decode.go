package scopus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martinsbruveris/scopuscite/internal/record"
)

// idFromIdentifier strips the scheme prefix from identifiers like
// "SCOPUS_ID:85012345678" or "AUTHOR_ID:7004212771".
func idFromIdentifier(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// citeInfo mirrors one entry of the citation overview matrix.
type citeInfo struct {
	Identifier string        `json:"dc:identifier"`
	Title      string        `json:"dc:title"`
	Journal    string        `json:"prism:publicationName"`
	SortYear   Int           `json:"sort-year"`
	Authors    []EntryAuthor `json:"author"`
	CC         []struct {
		Count Int `json:"$"`
	} `json:"cc"`
	PCC Int `json:"pcc"`
	LCC Int `json:"lcc"`
}

// PublicationEntryID extracts the bare publication id from a raw citation
// entry, for use as part of its cache key.
func PublicationEntryID(raw json.RawMessage) (string, error) {
	var e struct {
		Identifier string `json:"dc:identifier"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", fmt.Errorf("%w: reading publication identifier: %v", ErrInvalidResponse, err)
	}
	if e.Identifier == "" {
		return "", fmt.Errorf("%w: publication entry without identifier", ErrInvalidResponse)
	}
	return idFromIdentifier(e.Identifier), nil
}

// DecodePublication decodes a raw citation-overview entry into a
// publication record. Decoding is best-effort: missing title, journal, year,
// author list or citation vector default to zero values. startYear anchors
// the per-year citation vector.
func DecodePublication(raw json.RawMessage, startYear int) (record.Publication, error) {
	var info citeInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return record.Publication{}, fmt.Errorf("%w: decoding publication entry: %v", ErrInvalidResponse, err)
	}
	if info.Identifier == "" {
		return record.Publication{}, fmt.Errorf("%w: publication entry without identifier", ErrInvalidResponse)
	}

	pub := record.Publication{
		ID:             idFromIdentifier(info.Identifier),
		Title:          info.Title,
		Journal:        info.Journal,
		Year:           int(info.SortYear),
		Authors:        make([]string, 0, len(info.Authors)),
		CitesByYear:    make([]int, 0, len(info.CC)),
		CitesStartYear: startYear,
		PCC:            int(info.PCC),
		LCC:            int(info.LCC),
	}

	for _, a := range info.Authors {
		pub.Authors = append(pub.Authors, a.ID)
	}

	total := 0
	for _, c := range info.CC {
		pub.CitesByYear = append(pub.CitesByYear, int(c.Count))
		total += int(c.Count)
	}
	pub.NCites = total + pub.PCC + pub.LCC

	return pub, nil
}

// affiliation is the current-affiliation element of an author profile.
// Scopus serializes it as an object when the author has one affiliation and
// as a list when they have several; only the first is used.
type affiliation struct {
	IPDoc struct {
		DisplayName string `json:"afdispname"`
	} `json:"ip-doc"`
}

type affiliationList []affiliation

func (l *affiliationList) UnmarshalJSON(data []byte) error {
	var many []affiliation
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one affiliation
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = affiliationList{one}
	return nil
}

// authorEntry mirrors one author-retrieval response entry.
type authorEntry struct {
	Coredata struct {
		Identifier    string `json:"dc:identifier"`
		DocumentCount Int    `json:"document-count"`
		CitationCount Int    `json:"citation-count"`
		CitedByCount  Int    `json:"cited-by-count"`
	} `json:"coredata"`
	Profile struct {
		Alias *struct {
			Status string `json:"@current-status"`
		} `json:"alias"`
		PreferredName struct {
			IndexedName string `json:"indexed-name"`
			GivenName   string `json:"given-name"`
			Surname     string `json:"surname"`
		} `json:"preferred-name"`
		PublicationRange struct {
			Start Int `json:"@start"`
			End   Int `json:"@end"`
		} `json:"publication-range"`
		AffiliationCurrent *struct {
			Affiliation affiliationList `json:"affiliation"`
		} `json:"affiliation-current"`
	} `json:"author-profile"`
	CoauthorCount Int `json:"coauthor-count"`
	HIndex        Int `json:"h-index"`
}

// AuthorEntryID extracts the bare author id from a raw author-retrieval
// entry, for use as its cache key.
func AuthorEntryID(raw json.RawMessage) (string, error) {
	var e struct {
		Coredata struct {
			Identifier string `json:"dc:identifier"`
		} `json:"coredata"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", fmt.Errorf("%w: reading author identifier: %v", ErrInvalidResponse, err)
	}
	if e.Coredata.Identifier == "" {
		return "", fmt.Errorf("%w: author entry without identifier", ErrInvalidResponse)
	}
	return idFromIdentifier(e.Coredata.Identifier), nil
}

// DecodeAuthor decodes a raw author-retrieval entry into an author record.
// Tombstoned profiles (the author id was merged away) return ok=false and
// are skipped by callers.
func DecodeAuthor(raw json.RawMessage) (record.Author, bool, error) {
	var entry authorEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return record.Author{}, false, fmt.Errorf("%w: decoding author entry: %v", ErrInvalidResponse, err)
	}
	if entry.Coredata.Identifier == "" {
		return record.Author{}, false, fmt.Errorf("%w: author entry without identifier", ErrInvalidResponse)
	}

	if entry.Profile.Alias != nil && entry.Profile.Alias.Status == "tombstone" {
		return record.Author{}, false, nil
	}

	author := record.Author{
		ID:         idFromIdentifier(entry.Coredata.Identifier),
		Name:       entry.Profile.PreferredName.IndexedName,
		FirstName:  entry.Profile.PreferredName.GivenName,
		LastName:   entry.Profile.PreferredName.Surname,
		FirstPub:   int(entry.Profile.PublicationRange.Start),
		LastPub:    int(entry.Profile.PublicationRange.End),
		NPubs:      int(entry.Coredata.DocumentCount),
		NCites:     int(entry.Coredata.CitationCount),
		NCitedBy:   int(entry.Coredata.CitedByCount),
		NCoauthors: int(entry.CoauthorCount),
		HIndex:     int(entry.HIndex),
	}

	if ac := entry.Profile.AffiliationCurrent; ac != nil && len(ac.Affiliation) > 0 {
		author.Affiliation = ac.Affiliation[0].IPDoc.DisplayName
	}

	return author, true, nil
}

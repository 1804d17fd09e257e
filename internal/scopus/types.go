package scopus

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Int decodes a JSON number that Scopus may serialize either as a number or
// as a quoted string ("123"). Empty strings and null decode to zero.
type Int int

func (n *Int) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("parsing integer %q: %w", s, err)
		}
		v = int(f)
	}
	*n = Int(v)
	return nil
}

// RateLimit holds the quota headers returned with each response. They are
// reported to the user but not used for request pacing.
type RateLimit struct {
	Limit     string
	Remaining string
}

func (r RateLimit) String() string {
	if r.Limit == "" && r.Remaining == "" {
		return "unknown"
	}
	return r.Remaining + " / " + r.Limit
}

// EntryAuthor is one element of a compact author list in a search or
// citation entry.
type EntryAuthor struct {
	ID string `json:"authid"`
}

// SearchEntry is one publication entry of a search-results page.
type SearchEntry struct {
	EID     string        `json:"eid"`
	Message string        `json:"message"`
	Authors []EntryAuthor `json:"author"`
}

// Truncated reports whether the entry's author list was cut off because the
// publication has too many coauthors to enumerate in the compact response.
func (e SearchEntry) Truncated() bool {
	return strings.Contains(e.Message, "truncated")
}

// SearchPage is one page of search results together with the declared total
// result count for the whole query.
type SearchPage struct {
	Total     int
	Entries   []SearchEntry
	RateLimit RateLimit
}

// searchEnvelope mirrors the wire format of the search endpoint.
type searchEnvelope struct {
	Results struct {
		TotalResults Int           `json:"opensearch:totalResults"`
		Entries      []SearchEntry `json:"entry"`
	} `json:"search-results"`
}

// citationEnvelope mirrors the deeply nested wire format of the citations
// overview endpoint.
type citationEnvelope struct {
	Response struct {
		Matrix struct {
			XML struct {
				CitationMatrix struct {
					CiteInfo []json.RawMessage `json:"citeInfo"`
				} `json:"citationMatrix"`
			} `json:"citeInfoMatrixXML"`
		} `json:"citeInfoMatrix"`
	} `json:"abstract-citations-response"`
}

// authorEnvelope mirrors the wire format of the author retrieval endpoint.
type authorEnvelope struct {
	List struct {
		Responses []json.RawMessage `json:"author-retrieval-response"`
	} `json:"author-retrieval-response-list"`
}

// serviceError mirrors the error payload the API attaches to failed calls.
type serviceError struct {
	Detail *struct {
		Status struct {
			Code string `json:"statusCode"`
			Text string `json:"statusText"`
		} `json:"status"`
	} `json:"service-error"`
}

// checkServiceError inspects a response body for a service-error payload.
// RESOURCE_NOT_FOUND maps to ErrNotFound; any other service error is hard.
func checkServiceError(body []byte, statusCode int) error {
	var se serviceError
	if err := json.Unmarshal(body, &se); err != nil || se.Detail == nil {
		return nil
	}
	if se.Detail.Status.Code == "RESOURCE_NOT_FOUND" {
		return ErrNotFound
	}
	return &APIError{
		StatusCode: statusCode,
		Code:       se.Detail.Status.Code,
		Message:    se.Detail.Status.Text,
	}
}

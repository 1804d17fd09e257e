package record

import (
	"fmt"
	"strconv"
	"strings"
)

// YearRange is a half-open interval [Start, End) of publication years.
// It defines both the remote citation-tracking window and the aggregation
// window; the two must agree for cached entries to be reusable.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ParseYearRange parses a "start:end" string into a half-open range.
func ParseYearRange(s string) (YearRange, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return YearRange{}, fmt.Errorf("invalid year range %q (expected start:end)", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid start year in %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid end year in %q: %w", s, err)
	}
	yr := YearRange{Start: start, End: end}
	if err := yr.Validate(); err != nil {
		return YearRange{}, err
	}
	return yr, nil
}

// Validate checks that the range is non-empty.
func (r YearRange) Validate() error {
	if r.End <= r.Start {
		return fmt.Errorf("empty year range [%d, %d)", r.Start, r.End)
	}
	return nil
}

// Len returns the number of years in the range.
func (r YearRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether a year falls inside the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year < r.End
}

// Index returns the bucket index of a year within the range.
// The caller must check Contains first.
func (r YearRange) Index(year int) int {
	return year - r.Start
}

// DateParam formats the range as the inclusive "start-end" string the
// Scopus API expects for its date parameter.
func (r YearRange) DateParam() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End-1)
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

// CiteMode selects which citations the remote source counts.
type CiteMode string

const (
	CitesAll          CiteMode = "all"
	CitesExcludeSelf  CiteMode = "exclude-self"
	CitesExcludeBooks CiteMode = "exclude-books"
)

// ParseCiteMode validates a cite mode string.
func ParseCiteMode(s string) (CiteMode, error) {
	switch CiteMode(s) {
	case CitesAll, CitesExcludeSelf, CitesExcludeBooks:
		return CiteMode(s), nil
	}
	return "", fmt.Errorf("invalid cite mode %q (valid: all, exclude-self, exclude-books)", s)
}

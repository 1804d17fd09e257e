// Package fetch implements the cache-first fetch orchestration: requested
// entity ids are served from the local cache stores where possible, the rest
// are retrieved from the remote source in API-sized chunks with paginated
// result sets, and newly fetched raw records are merged back into the cache
// after every chunk so partial progress survives an interruption.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/martinsbruveris/scopuscite/internal/record"
	"github.com/martinsbruveris/scopuscite/internal/scopus"
)

// Remote is the abstract remote query interface. The production
// implementation is *scopus.Client; tests substitute a fake.
type Remote interface {
	// SearchPage requests one page of search results.
	SearchPage(ctx context.Context, query string, start, count int) (*scopus.SearchPage, error)

	// PublicationDetail fetches raw citation entries for a chunk of
	// publication ids. Returns scopus.ErrNotFound when none are known.
	PublicationDetail(ctx context.Context, ids []string, years record.YearRange, mode record.CiteMode) ([]json.RawMessage, error)

	// AuthorDetail fetches raw author-retrieval entries for a chunk of
	// author ids.
	AuthorDetail(ctx context.Context, ids []string) ([]json.RawMessage, error)
}

// rateReporter is implemented by remotes that track API quota headers.
type rateReporter interface {
	LastRateLimit() scopus.RateLimit
}

// Fetcher orchestrates cache lookups and remote fetches. It owns no cache
// state itself; cache stores are passed explicitly per call.
type Fetcher struct {
	remote Remote
	logf   func(format string, args ...any)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogf sets the progress log function. The default writes to stdout.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(f *Fetcher) {
		f.logf = logf
	}
}

// New creates a Fetcher backed by the given remote.
func New(remote Remote, opts ...Option) *Fetcher {
	f := &Fetcher{
		remote: remote,
		logf: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// reportRateLimit logs the remaining API quota after a remote batch.
func (f *Fetcher) reportRateLimit() {
	if rr, ok := f.remote.(rateReporter); ok {
		f.logf("API calls remaining: %s", rr.LastRateLimit())
	}
}

// chunks partitions ids into consecutive slices of at most size elements.
func chunks(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

// dedupe removes duplicate ids, preserving first-occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// searchAll pages through the full result set of a search query, invoking
// fn for each page of entries. Pagination follows the declared total: the
// start offset advances by the number of entries just received until the
// accumulated count reaches the total.
func (f *Fetcher) searchAll(ctx context.Context, query string, fn func(entries []scopus.SearchEntry)) (int, error) {
	start := 0
	retrieved := 0
	total := 0

	for {
		page, err := f.remote.SearchPage(ctx, query, start, scopus.SearchPageSize)
		if err != nil {
			return retrieved, err
		}
		total = page.Total

		if len(page.Entries) == 0 {
			// The declared total can overstate the retrievable set;
			// an empty page means there is nothing more to fetch.
			return retrieved, nil
		}

		start += len(page.Entries)
		retrieved += len(page.Entries)
		fn(page.Entries)

		if retrieved >= total {
			return retrieved, nil
		}
	}
}

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/martinsbruveris/scopuscite/internal/cache"
	"github.com/martinsbruveris/scopuscite/internal/record"
	"github.com/martinsbruveris/scopuscite/internal/scopus"
)

// fakeRemote serves canned search pages and detail entries while counting
// every remote call.
type fakeRemote struct {
	pageCap       int // max entries per search page; 0 means no cap
	searchResults map[string][]scopus.SearchEntry
	pubs          map[string]json.RawMessage
	authors       map[string]json.RawMessage

	searchCalls       int
	searchQueries     []string
	pubDetailCalls    int
	pubDetailIDs      []string
	authorDetailCalls int
}

func (r *fakeRemote) SearchPage(ctx context.Context, query string, start, count int) (*scopus.SearchPage, error) {
	r.searchCalls++
	r.searchQueries = append(r.searchQueries, query)

	entries := r.searchResults[query]
	pageSize := count
	if r.pageCap > 0 && r.pageCap < pageSize {
		pageSize = r.pageCap
	}

	end := start + pageSize
	if start > len(entries) {
		start = len(entries)
	}
	if end > len(entries) {
		end = len(entries)
	}

	return &scopus.SearchPage{
		Total:   len(entries),
		Entries: entries[start:end],
	}, nil
}

func (r *fakeRemote) PublicationDetail(ctx context.Context, ids []string, years record.YearRange, mode record.CiteMode) ([]json.RawMessage, error) {
	r.pubDetailCalls++
	r.pubDetailIDs = append(r.pubDetailIDs, ids...)

	var out []json.RawMessage
	for _, id := range ids {
		if raw, ok := r.pubs[id]; ok {
			out = append(out, raw)
		}
	}
	if len(out) == 0 {
		return nil, scopus.ErrNotFound
	}
	return out, nil
}

func (r *fakeRemote) AuthorDetail(ctx context.Context, ids []string) ([]json.RawMessage, error) {
	r.authorDetailCalls++

	var out []json.RawMessage
	for _, id := range ids {
		if raw, ok := r.authors[id]; ok {
			out = append(out, raw)
		}
	}
	if len(out) == 0 {
		return nil, scopus.ErrNotFound
	}
	return out, nil
}

func discardLogf(format string, args ...any) {}

func newTestFetcher(remote Remote) *Fetcher {
	return New(remote, WithLogf(discardLogf))
}

func newStore(t *testing.T, name string) *cache.Store {
	t.Helper()
	s, err := cache.Load(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("cache.Load: %v", err)
	}
	return s
}

func makeSearchEntry(pubID string, authorIDs ...string) scopus.SearchEntry {
	e := scopus.SearchEntry{EID: record.EIDFromID(pubID)}
	for _, id := range authorIDs {
		e.Authors = append(e.Authors, scopus.EntryAuthor{ID: id})
	}
	return e
}

func makeTruncatedEntry(pubID string) scopus.SearchEntry {
	return scopus.SearchEntry{
		EID:     record.EIDFromID(pubID),
		Message: "Abstract+author list truncated",
	}
}

func makePubEntry(id string, year int, authorIDs []string, cc []int) json.RawMessage {
	var authors []string
	for _, a := range authorIDs {
		authors = append(authors, fmt.Sprintf(`{"authid":%q}`, a))
	}
	var counts []string
	for _, c := range cc {
		counts = append(counts, fmt.Sprintf(`{"$":"%d"}`, c))
	}
	return json.RawMessage(fmt.Sprintf(
		`{"dc:identifier":"SCOPUS_ID:%s","dc:title":"pub %s","sort-year":"%d","author":[%s],"cc":[%s],"pcc":"0","lcc":"0"}`,
		id, id, year, strings.Join(authors, ","), strings.Join(counts, ","),
	))
}

func makeAuthorEntry(id, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"coredata":{"dc:identifier":"AUTHOR_ID:%s"},"author-profile":{"preferred-name":{"indexed-name":%q}}}`,
		id, name,
	))
}

var testYears = record.YearRange{Start: 2000, End: 2010}

func TestPublicationsChunking(t *testing.T) {
	// 60 ids with a detail chunk size of 25 must issue exactly 3 chunk
	// queries.
	remote := &fakeRemote{pubs: make(map[string]json.RawMessage)}
	var ids []string
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("p%03d", i)
		ids = append(ids, id)
		remote.pubs[id] = makePubEntry(id, 2005, []string{"a1"}, []int{1})
	}

	f := newTestFetcher(remote)
	pubs, err := f.Publications(context.Background(), newStore(t, "pub.jsonl"), ids, testYears, record.CitesAll, false)
	if err != nil {
		t.Fatalf("Publications: %v", err)
	}

	if remote.pubDetailCalls != 3 {
		t.Errorf("detail calls = %d, want ceil(60/25) = 3", remote.pubDetailCalls)
	}
	if len(pubs) != 60 {
		t.Errorf("decoded %d publications, want 60", len(pubs))
	}
	if len(remote.pubDetailIDs) != 60 {
		t.Errorf("requested %d ids in total, want 60 (no double fetch)", len(remote.pubDetailIDs))
	}
}

func TestPublicationsCacheIdempotence(t *testing.T) {
	remote := &fakeRemote{pubs: map[string]json.RawMessage{
		"1": makePubEntry("1", 2004, []string{"a1", "a2"}, []int{0, 2}),
		"2": makePubEntry("2", 2006, []string{"a2"}, []int{1}),
	}}
	store := newStore(t, "pub.jsonl")
	f := newTestFetcher(remote)
	ctx := context.Background()
	ids := []string{"1", "2"}

	first, err := f.Publications(ctx, store, ids, testYears, record.CitesAll, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := remote.pubDetailCalls

	// Reload the cache from disk to prove the flush persisted it.
	reloaded, err := cache.Load(store.Path())
	if err != nil {
		t.Fatalf("reloading cache: %v", err)
	}

	second, err := f.Publications(ctx, reloaded, ids, testYears, record.CitesAll, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if remote.pubDetailCalls != callsAfterFirst {
		t.Errorf("second run issued %d extra remote calls, want 0",
			remote.pubDetailCalls-callsAfterFirst)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached run decoded different records:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestPublicationsForceReloadBypassesCache(t *testing.T) {
	remote := &fakeRemote{pubs: map[string]json.RawMessage{
		"1": makePubEntry("1", 2004, []string{"a1"}, []int{1}),
	}}
	store := newStore(t, "pub.jsonl")
	f := newTestFetcher(remote)
	ctx := context.Background()

	if _, err := f.Publications(ctx, store, []string{"1"}, testYears, record.CitesAll, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Publications(ctx, store, []string{"1"}, testYears, record.CitesAll, true); err != nil {
		t.Fatal(err)
	}
	if remote.pubDetailCalls != 2 {
		t.Errorf("detail calls = %d, want 2 (force reload refetches)", remote.pubDetailCalls)
	}
}

func TestPublicationsYearRangeKeysCacheSeparately(t *testing.T) {
	remote := &fakeRemote{pubs: map[string]json.RawMessage{
		"1": makePubEntry("1", 2004, []string{"a1"}, []int{1}),
	}}
	store := newStore(t, "pub.jsonl")
	f := newTestFetcher(remote)
	ctx := context.Background()

	if _, err := f.Publications(ctx, store, []string{"1"}, testYears, record.CitesAll, false); err != nil {
		t.Fatal(err)
	}
	otherYears := record.YearRange{Start: 1990, End: 2010}
	if _, err := f.Publications(ctx, store, []string{"1"}, otherYears, record.CitesAll, false); err != nil {
		t.Fatal(err)
	}

	if remote.pubDetailCalls != 2 {
		t.Errorf("detail calls = %d, want 2 (different year range must miss)", remote.pubDetailCalls)
	}
}

func TestPublicationsCoverage(t *testing.T) {
	// Requested set minus remote not-founds equals the returned set.
	remote := &fakeRemote{pubs: map[string]json.RawMessage{
		"1": makePubEntry("1", 2004, []string{"a1"}, []int{1}),
		"3": makePubEntry("3", 2005, []string{"a1"}, []int{2}),
	}}
	f := newTestFetcher(remote)

	pubs, err := f.Publications(context.Background(), newStore(t, "pub.jsonl"),
		[]string{"1", "2", "3"}, testYears, record.CitesAll, false)
	if err != nil {
		t.Fatalf("Publications: %v", err)
	}

	got := make(map[string]bool)
	for _, p := range pubs {
		got[p.ID] = true
	}
	want := map[string]bool{"1": true, "3": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("returned ids = %v, want %v", got, want)
	}
}

func TestAuthorPublicationsChunkingAndPagination(t *testing.T) {
	// 23 authors with a search chunk size of 10 yields 3 chunk queries.
	// With a page cap of 2 and 5 results per chunk, each chunk query pages
	// ceil(5/2) = 3 times: 9 search calls in total.
	remote := &fakeRemote{
		pageCap:       2,
		searchResults: make(map[string][]scopus.SearchEntry),
	}

	var authorIDs []string
	for i := 0; i < 23; i++ {
		authorIDs = append(authorIDs, fmt.Sprintf("a%02d", i))
	}
	for c, chunk := range chunks(authorIDs, scopus.AuthorSearchChunkSize) {
		var entries []scopus.SearchEntry
		for j := 0; j < 5; j++ {
			entries = append(entries, makeSearchEntry(fmt.Sprintf("c%dp%d", c, j), chunk[0]))
		}
		remote.searchResults[AuthorChunkQuery(chunk)] = entries
	}

	f := newTestFetcher(remote)
	pubIDs, err := f.AuthorPublications(context.Background(), newStore(t, "ap.jsonl"), authorIDs, false)
	if err != nil {
		t.Fatalf("AuthorPublications: %v", err)
	}

	if remote.searchCalls != 9 {
		t.Errorf("search calls = %d, want 3 chunks x 3 pages = 9", remote.searchCalls)
	}
	if len(pubIDs) != 15 {
		t.Errorf("publications found = %d, want 15", len(pubIDs))
	}
}

func TestAuthorPublicationsCachesPerAuthor(t *testing.T) {
	remote := &fakeRemote{searchResults: map[string][]scopus.SearchEntry{
		AuthorChunkQuery([]string{"a1", "a2"}): {
			makeSearchEntry("p1", "a1", "a2"),
			makeSearchEntry("p2", "a2", "a9"), // a9 is outside the request
		},
	}}
	store := newStore(t, "ap.jsonl")
	f := newTestFetcher(remote)
	ctx := context.Background()

	pubIDs, err := f.AuthorPublications(ctx, store, []string{"a1", "a2"}, false)
	if err != nil {
		t.Fatalf("AuthorPublications: %v", err)
	}
	if !reflect.DeepEqual(pubIDs, []string{"p1", "p2"}) {
		t.Errorf("pubIDs = %v, want [p1 p2]", pubIDs)
	}

	a1Pubs, ok, err := store.GetStrings("a1")
	if err != nil || !ok {
		t.Fatalf("a1 cache entry: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(a1Pubs, []string{"p1"}) {
		t.Errorf("a1 cached pubs = %v, want [p1]", a1Pubs)
	}

	// Second run is served entirely from cache.
	callsAfterFirst := remote.searchCalls
	again, err := f.AuthorPublications(ctx, store, []string{"a1", "a2"}, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if remote.searchCalls != callsAfterFirst {
		t.Error("cached run issued remote search calls")
	}
	if !reflect.DeepEqual(again, pubIDs) {
		t.Errorf("cached run returned %v, want %v", again, pubIDs)
	}
}

func TestAuthorPublicationsTruncatedFallback(t *testing.T) {
	chunkQuery := AuthorChunkQuery([]string{"a1", "a2"})
	remote := &fakeRemote{searchResults: map[string][]scopus.SearchEntry{
		chunkQuery: {
			makeSearchEntry("p1", "a1"),
			makeTruncatedEntry("p2"), // hides its author list
		},
		AuthorQuery("a1"): {
			makeSearchEntry("p1", "a1"),
			makeSearchEntry("p2", "a1"),
		},
		AuthorQuery("a2"): {
			makeSearchEntry("p2", "a2"),
		},
	}}
	store := newStore(t, "ap.jsonl")
	f := newTestFetcher(remote)

	pubIDs, err := f.AuthorPublications(context.Background(), store, []string{"a1", "a2"}, false)
	if err != nil {
		t.Fatalf("AuthorPublications: %v", err)
	}
	if !reflect.DeepEqual(pubIDs, []string{"p1", "p2"}) {
		t.Errorf("pubIDs = %v, want [p1 p2]", pubIDs)
	}

	// The fallback resolves complete per-author lists.
	a1Pubs, _, _ := store.GetStrings("a1")
	if !reflect.DeepEqual(a1Pubs, []string{"p1", "p2"}) {
		t.Errorf("a1 cached pubs = %v, want [p1 p2] from fallback", a1Pubs)
	}
	a2Pubs, _, _ := store.GetStrings("a2")
	if !reflect.DeepEqual(a2Pubs, []string{"p2"}) {
		t.Errorf("a2 cached pubs = %v, want [p2] from fallback", a2Pubs)
	}

	// Both per-author fallback queries were issued.
	fallbacks := 0
	for _, q := range remote.searchQueries {
		if q == AuthorQuery("a1") || q == AuthorQuery("a2") {
			fallbacks++
		}
	}
	if fallbacks != 2 {
		t.Errorf("fallback queries = %d, want 2", fallbacks)
	}
}

func TestAuthorsForJournalYearCaching(t *testing.T) {
	query := JournalYearQuery(2016, "", "00127094")
	remote := &fakeRemote{searchResults: map[string][]scopus.SearchEntry{
		query: {
			makeSearchEntry("p1", "a2", "a1"),
			makeSearchEntry("p2", "a3"),
		},
	}}
	store := newStore(t, "sq.jsonl")
	f := newTestFetcher(remote)
	ctx := context.Background()

	ids, err := f.AuthorsForJournalYear(ctx, store, 2016, "", "00127094", false)
	if err != nil {
		t.Fatalf("AuthorsForJournalYear: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a1", "a2", "a3"}) {
		t.Errorf("ids = %v, want [a1 a2 a3]", ids)
	}

	callsAfterFirst := remote.searchCalls
	again, err := f.AuthorsForJournalYear(ctx, store, 2016, "", "00127094", false)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if remote.searchCalls != callsAfterFirst {
		t.Error("cached call issued remote search calls")
	}
	if !reflect.DeepEqual(again, ids) {
		t.Errorf("cached call returned %v, want %v", again, ids)
	}
}

func TestAuthorsDecodesAndCaches(t *testing.T) {
	remote := &fakeRemote{authors: map[string]json.RawMessage{
		"a1": makeAuthorEntry("a1", "First A."),
		"a2": makeAuthorEntry("a2", "Second B."),
	}}
	store := newStore(t, "author.jsonl")
	f := newTestFetcher(remote)
	ctx := context.Background()

	authors, err := f.Authors(ctx, store, []string{"a1", "a2"}, false)
	if err != nil {
		t.Fatalf("Authors: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("decoded %d authors, want 2", len(authors))
	}
	if authors[0].Name != "First A." {
		t.Errorf("Name = %q", authors[0].Name)
	}

	callsAfterFirst := remote.authorDetailCalls
	if _, err := f.Authors(ctx, store, []string{"a1", "a2"}, false); err != nil {
		t.Fatal(err)
	}
	if remote.authorDetailCalls != callsAfterFirst {
		t.Error("cached run issued remote author calls")
	}
}

func TestAuthorsSkipsTombstones(t *testing.T) {
	tombstone := json.RawMessage(`{
		"coredata": {"dc:identifier": "AUTHOR_ID:a1"},
		"author-profile": {"alias": {"@current-status": "tombstone"}}
	}`)
	remote := &fakeRemote{authors: map[string]json.RawMessage{
		"a1": tombstone,
		"a2": makeAuthorEntry("a2", "Live B."),
	}}
	store := newStore(t, "author.jsonl")
	f := newTestFetcher(remote)

	authors, err := f.Authors(context.Background(), store, []string{"a1", "a2"}, false)
	if err != nil {
		t.Fatalf("Authors: %v", err)
	}
	if len(authors) != 1 || authors[0].ID != "a2" {
		t.Errorf("authors = %+v, want only a2", authors)
	}
	// The tombstone is still cached so it is not refetched.
	if !store.Has("a1") {
		t.Error("tombstoned entry not cached")
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want int
	}{
		{name: "empty", n: 0, size: 10, want: 0},
		{name: "single partial", n: 7, size: 10, want: 1},
		{name: "exact multiple", n: 20, size: 10, want: 2},
		{name: "remainder", n: 23, size: 10, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.n)
			for i := range ids {
				ids[i] = fmt.Sprint(i)
			}
			got := chunks(ids, tt.size)
			if len(got) != tt.want {
				t.Errorf("chunks(%d, %d) = %d chunks, want %d", tt.n, tt.size, len(got), tt.want)
			}
			total := 0
			for _, c := range got {
				total += len(c)
			}
			if total != tt.n {
				t.Errorf("chunks lost elements: %d != %d", total, tt.n)
			}
		})
	}
}

package fetch

import (
	"context"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/martinsbruveris/scopuscite/internal/cache"
	"github.com/martinsbruveris/scopuscite/internal/record"
	"github.com/martinsbruveris/scopuscite/internal/scopus"
)

// AuthorsForJournalYear returns the ids of all authors with a publication in
// the given journal and year. The result is cached under the query string in
// the shared search-query store; force bypasses and overwrites the entry.
func (f *Fetcher) AuthorsForJournalYear(ctx context.Context, store *cache.Store, year int, journal, issn string, force bool) ([]string, error) {
	f.logf("Querying Scopus for the author list.")

	query := JournalYearQuery(year, journal, issn)

	if !force {
		ids, ok, err := store.GetStrings(query)
		if err != nil {
			return nil, err
		}
		if ok {
			f.logf("Authors retrieved from cache: %d", len(ids))
			return ids, nil
		}
	}

	authorSet := make(map[string]bool)
	_, err := f.searchAll(ctx, query, func(entries []scopus.SearchEntry) {
		for _, entry := range entries {
			for _, a := range entry.Authors {
				authorSet[a.ID] = true
			}
		}
	})
	if err != nil {
		return nil, err
	}
	f.reportRateLimit()

	ids := make([]string, 0, len(authorSet))
	for id := range authorSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := store.PutValue(query, ids); err != nil {
		return nil, err
	}
	if err := store.Save(); err != nil {
		return nil, err
	}

	f.logf("Authors found: %d", len(ids))
	return ids, nil
}

// Authors returns decoded author records for the requested ids. Ids present
// in the author-detail cache are decoded directly (unless force is set); the
// rest are fetched in chunks of scopus.DetailChunkSize and merged into the
// cache, flushing after each chunk. Ids the remote does not know, and
// tombstoned profiles, are omitted from the result.
func (f *Fetcher) Authors(ctx context.Context, store *cache.Store, authorIDs []string, force bool) ([]record.Author, error) {
	authorIDs = dedupe(authorIDs)
	f.logf("Retrieving info for %d authors.", len(authorIDs))
	f.logf("Cache size: %s", humanize.Bytes(uint64(store.Size())))

	var authors []record.Author
	var missing []string

	if force {
		f.logf("Ignoring cache, reloading all author data.")
		missing = authorIDs
	} else {
		hits := 0
		for _, id := range authorIDs {
			raw, ok := store.Get(id)
			if !ok {
				missing = append(missing, id)
				continue
			}
			hits++
			author, live, err := scopus.DecodeAuthor(raw)
			if err != nil {
				return nil, err
			}
			if live {
				authors = append(authors, author)
			}
		}
		f.logf("Read from cache: %d", hits)
	}

	f.logf("To be retrieved from Scopus: %d", len(missing))
	chunkList := chunks(missing, scopus.DetailChunkSize)
	notFound := 0

	for i, chunk := range chunkList {
		f.logf("Chunk %d / %d.", i+1, len(chunkList))

		entries, err := f.remote.AuthorDetail(ctx, chunk)
		if err != nil {
			if scopus.IsNotFound(err) {
				notFound++
				continue
			}
			return nil, err
		}

		for _, raw := range entries {
			id, err := scopus.AuthorEntryID(raw)
			if err != nil {
				return nil, err
			}
			store.Put(id, raw)

			author, live, err := scopus.DecodeAuthor(raw)
			if err != nil {
				return nil, err
			}
			if live {
				authors = append(authors, author)
			}
		}

		if err := store.Save(); err != nil {
			return nil, err
		}
	}

	if notFound > 0 {
		f.logf("Resources not found: %d.", notFound)
	}
	if len(chunkList) > 0 {
		f.reportRateLimit()
	}
	f.logf("Author info retrieved: %d records.", len(authors))
	return authors, nil
}

package fetch

import (
	"context"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/martinsbruveris/scopuscite/internal/cache"
	"github.com/martinsbruveris/scopuscite/internal/record"
	"github.com/martinsbruveris/scopuscite/internal/scopus"
)

// AuthorPublications returns the union of publication ids authored by the
// requested authors. Per-author id lists are cached; authors absent from the
// cache are queried in chunks of scopus.AuthorSearchChunkSize combined
// AU-ID clauses, paging through each chunk's result set. Chunks containing a
// publication with a truncated author list fall back to one query per
// author, which always carries the complete list. The cache is flushed
// after every chunk.
func (f *Fetcher) AuthorPublications(ctx context.Context, store *cache.Store, authorIDs []string, force bool) ([]string, error) {
	authorIDs = dedupe(authorIDs)
	f.logf("Querying Scopus for publication ids of %d authors.", len(authorIDs))

	pubSet := make(map[string]bool)
	var missing []string

	if force {
		f.logf("Ignoring cache, reloading all results.")
		missing = authorIDs
	} else {
		hits := 0
		for _, id := range authorIDs {
			ids, ok, err := store.GetStrings(id)
			if err != nil {
				return nil, err
			}
			if !ok {
				missing = append(missing, id)
				continue
			}
			hits++
			for _, pubID := range ids {
				pubSet[pubID] = true
			}
		}
		f.logf("Read from cache: %d", hits)
	}

	f.logf("Authors to query Scopus: %d", len(missing))
	chunkList := chunks(missing, scopus.AuthorSearchChunkSize)
	numTruncated := 0

	for i, chunk := range chunkList {
		inChunk := make(map[string]bool, len(chunk))
		for _, id := range chunk {
			inChunk[id] = true
		}

		// Publication ids per chunk author; empty sets are cached too so a
		// published-nothing author counts as a cache hit next run.
		authorPubs := make(map[string]map[string]bool, len(chunk))
		for _, id := range chunk {
			authorPubs[id] = make(map[string]bool)
		}

		truncated := false
		total, err := f.searchAll(ctx, AuthorChunkQuery(chunk), func(entries []scopus.SearchEntry) {
			for _, entry := range entries {
				// Some entries carry no eid.
				if entry.EID == "" {
					continue
				}
				pubID := record.IDFromEID(entry.EID)
				pubSet[pubID] = true

				if entry.Truncated() {
					truncated = true
					numTruncated++
					continue
				}
				for _, a := range entry.Authors {
					if inChunk[a.ID] {
						authorPubs[a.ID][pubID] = true
					}
				}
			}
		})
		if err != nil {
			return nil, err
		}
		f.logf("Chunk %d / %d: %d results found", i+1, len(chunkList), total)

		// A truncated author list hides author-publication pairs, so the
		// affected chunk is re-resolved one author at a time.
		if truncated {
			f.logf("Querying chunk authors one-by-one.")
			for _, authorID := range chunk {
				ids, err := f.singleAuthorPublications(ctx, authorID)
				if err != nil {
					return nil, err
				}
				pubs := make(map[string]bool, len(ids))
				for _, pubID := range ids {
					pubs[pubID] = true
					pubSet[pubID] = true
				}
				authorPubs[authorID] = pubs
			}
		}

		for authorID, pubs := range authorPubs {
			ids := make([]string, 0, len(pubs))
			for pubID := range pubs {
				ids = append(ids, pubID)
			}
			sort.Strings(ids)
			if err := store.PutValue(authorID, ids); err != nil {
				return nil, err
			}
		}
		if err := store.Save(); err != nil {
			return nil, err
		}
	}

	if len(chunkList) > 0 {
		f.reportRateLimit()
	}

	pubIDs := make([]string, 0, len(pubSet))
	for id := range pubSet {
		pubIDs = append(pubIDs, id)
	}
	sort.Strings(pubIDs)

	f.logf("Publications found: %d", len(pubIDs))
	f.logf("Publications with truncated author lists: %d", numTruncated)
	return pubIDs, nil
}

// singleAuthorPublications fetches the complete publication id list of one
// author. Unchunked queries never truncate the author list.
func (f *Fetcher) singleAuthorPublications(ctx context.Context, authorID string) ([]string, error) {
	pubSet := make(map[string]bool)
	_, err := f.searchAll(ctx, AuthorQuery(authorID), func(entries []scopus.SearchEntry) {
		for _, entry := range entries {
			if entry.EID == "" {
				continue
			}
			pubSet[record.IDFromEID(entry.EID)] = true
		}
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(pubSet))
	for id := range pubSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Publications returns decoded publication records for the requested ids
// under a query configuration (year range + cite mode). The configuration is
// part of the cache key: entries cached under a different range or mode do
// not satisfy the request. Chunks the remote reports as not found are
// counted and omitted; the cache is flushed after every chunk.
func (f *Fetcher) Publications(ctx context.Context, store *cache.Store, pubIDs []string, years record.YearRange, mode record.CiteMode, force bool) ([]record.Publication, error) {
	pubIDs = dedupe(pubIDs)
	f.logf("Retrieving publication info for %d ids.", len(pubIDs))
	f.logf("Cache size: %s", humanize.Bytes(uint64(store.Size())))

	var pubs []record.Publication
	var missing []string

	if force {
		f.logf("Ignoring cache, reloading all info.")
		missing = pubIDs
	} else {
		hits := 0
		for _, id := range pubIDs {
			raw, ok := store.Get(cache.PublicationKey(id, years, mode))
			if !ok {
				missing = append(missing, id)
				continue
			}
			hits++
			pub, err := scopus.DecodePublication(raw, years.Start)
			if err != nil {
				return nil, err
			}
			pubs = append(pubs, pub)
		}
		f.logf("Read from cache: %d", hits)
	}

	f.logf("To be retrieved from Scopus: %d", len(missing))
	chunkList := chunks(missing, scopus.DetailChunkSize)
	notFound := 0

	for i, chunk := range chunkList {
		if (i+1)%20 == 0 {
			f.logf("Chunk %d / %d.", i+1, len(chunkList))
		}

		entries, err := f.remote.PublicationDetail(ctx, chunk, years, mode)
		if err != nil {
			if scopus.IsNotFound(err) {
				notFound++
				continue
			}
			return nil, err
		}

		for _, raw := range entries {
			id, err := scopus.PublicationEntryID(raw)
			if err != nil {
				return nil, err
			}
			store.Put(cache.PublicationKey(id, years, mode), raw)

			pub, err := scopus.DecodePublication(raw, years.Start)
			if err != nil {
				return nil, err
			}
			pubs = append(pubs, pub)
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
	f.logf("Publication info retrieved: %d records.", len(pubs))
	return pubs, nil
}

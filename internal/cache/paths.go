package cache

import (
	"fmt"
	"path/filepath"

	"github.com/martinsbruveris/scopuscite/internal/record"
)

// Cache category file names. The search-query cache is shared across
// datasets; the other categories are prefixed with the dataset cache name.
const (
	SearchQueryFile = "cache_search_query.jsonl"

	authorPubSuffix = "_author_pub.jsonl"
	pubSuffix       = "_pub.jsonl"
	authorSuffix    = "_author.jsonl"
)

// DefaultDir is the cache directory used when none is configured.
const DefaultDir = "local_cache"

// DefaultName is the dataset cache name used when none is configured.
const DefaultName = "cache"

// SearchQueryPath returns the path of the shared search-query cache.
func SearchQueryPath(dir string) string {
	return filepath.Join(dir, SearchQueryFile)
}

// AuthorPubPath returns the path of the author->publication-ids cache.
func AuthorPubPath(dir, name string) string {
	return filepath.Join(dir, name+authorPubSuffix)
}

// PublicationPath returns the path of the publication-detail cache.
func PublicationPath(dir, name string) string {
	return filepath.Join(dir, name+pubSuffix)
}

// AuthorPath returns the path of the author-detail cache.
func AuthorPath(dir, name string) string {
	return filepath.Join(dir, name+authorSuffix)
}

// PublicationKey builds the composite cache key for a publication detail
// entry. The year range and cite mode are part of the key: an entry fetched
// under one query configuration never satisfies another.
func PublicationKey(id string, years record.YearRange, mode record.CiteMode) string {
	return fmt.Sprintf("%s|%d-%d|%s", id, years.Start, years.End, mode)
}

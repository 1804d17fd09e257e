// Package aggregate derives per-author statistics from a collection of
// publication records: the publication-author index, the h-index, and the
// per-year aggregate vectors.
package aggregate

import "github.com/martinsbruveris/scopuscite/internal/record"

// PubsByAuthor inverts the publication->author-list relation into a mapping
// from author id to the set of publication ids they co-authored. The result
// is derived state; it is rebuilt whenever the publication set changes.
func PubsByAuthor(pubs []record.Publication) map[string]map[string]bool {
	index := make(map[string]map[string]bool)
	for _, pub := range pubs {
		for _, authorID := range pub.Authors {
			set, ok := index[authorID]
			if !ok {
				set = make(map[string]bool)
				index[authorID] = set
			}
			set[pub.ID] = true
		}
	}
	return index
}

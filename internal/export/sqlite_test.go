package export

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/martinsbruveris/scopuscite/internal/record"
)

func testPublications() []record.Publication {
	return []record.Publication{
		{
			ID:             "85012345678",
			Title:          "On a theorem",
			Journal:        "Annals of Mathematics",
			Year:           2016,
			Authors:        []string{"7004212771", "7004212772"},
			CitesByYear:    []int{0, 2, 5},
			CitesStartYear: 2016,
			PCC:            0,
			LCC:            1,
			NCites:         8,
		},
		{
			ID:      "85087654321",
			Year:    2014,
			Authors: []string{"7004212771"},
		},
	}
}

func testStats() []record.AuthorStats {
	return []record.AuthorStats{
		{
			ID:             "7004212771",
			Name:           "Noether, E.",
			FirstName:      "Emmy",
			LastName:       "Noether",
			Affiliation:    "University of Göttingen",
			NCitedBy:       120,
			NPubs:          2,
			FirstPub:       2014,
			LastPub:        2016,
			NCites:         8,
			NCoauthors:     1,
			HIndex:         1,
			LCC:            1,
			CitesByYear:    []int{0, 2, 5},
			PubsByYear:     []int{1, 0, 1},
			NCoauthorsAcc:  []int{1, 1, 1},
			NCoauthorsMean: 0.5,
		},
		{
			ID:   "7004212772",
			Name: "Hilbert, D.",
		},
	}
}

func TestDBRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	pubs := testPublications()
	if err := db.WritePublications(pubs); err != nil {
		t.Fatalf("WritePublications: %v", err)
	}
	stats := testStats()
	if err := db.WriteAuthors(stats); err != nil {
		t.Fatalf("WriteAuthors: %v", err)
	}

	gotPubs, err := db.ReadPublications()
	if err != nil {
		t.Fatalf("ReadPublications: %v", err)
	}
	if len(gotPubs) != 2 {
		t.Fatalf("got %d pubs, want 2", len(gotPubs))
	}
	if !reflect.DeepEqual(gotPubs[0], pubs[0]) {
		t.Errorf("pub mismatch:\ngot  %+v\nwant %+v", gotPubs[0], pubs[0])
	}
	// Empty vectors come back as empty slices, not nil.
	if gotPubs[1].CitesByYear == nil || len(gotPubs[1].CitesByYear) != 0 {
		t.Errorf("empty citation vector round-trip: %v", gotPubs[1].CitesByYear)
	}

	gotStats, err := db.ReadAuthors()
	if err != nil {
		t.Fatalf("ReadAuthors: %v", err)
	}
	if len(gotStats) != 2 {
		t.Fatalf("got %d authors, want 2", len(gotStats))
	}
	if !reflect.DeepEqual(gotStats[0], stats[0]) {
		t.Errorf("author mismatch:\ngot  %+v\nwant %+v", gotStats[0], stats[0])
	}

	count, err := db.CountAuthors()
	if err != nil {
		t.Fatalf("CountAuthors: %v", err)
	}
	if count != 2 {
		t.Errorf("CountAuthors = %d, want 2", count)
	}
}

func TestWriteReplacesExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	if err := db.WriteAuthors(testStats()); err != nil {
		t.Fatalf("WriteAuthors: %v", err)
	}
	if err := db.WriteAuthors(testStats()[:1]); err != nil {
		t.Fatalf("WriteAuthors: %v", err)
	}

	count, err := db.CountAuthors()
	if err != nil {
		t.Fatalf("CountAuthors: %v", err)
	}
	if count != 1 {
		t.Errorf("CountAuthors = %d, want 1 after rewrite", count)
	}
}

func TestOpenDBReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	if err := db.WriteAuthors(testStats()); err != nil {
		t.Fatalf("WriteAuthors: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := OpenDB(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer db2.Close()

	authors, err := db2.ReadAuthors()
	if err != nil {
		t.Fatalf("ReadAuthors: %v", err)
	}
	if len(authors) != 2 {
		t.Errorf("got %d authors after reopen, want 2", len(authors))
	}
}

// Package export writes the downloaded dataset to its output formats: a
// SQLite database with publication and author tables, and semicolon
// separated CSV files for spreadsheet use.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/martinsbruveris/scopuscite/internal/record"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite dataset database.
type DB struct {
	db *sql.DB
}

const selectPubFields = `id, title, journal, year, authors_json,
	cites_by_year_json, cites_start_year, pcc, lcc, ncites`

const selectAuthorFields = `id, name, first_name, last_name, affiliation,
	ncited_by, npubs, first_pub, last_pub, ncites, ncoauthors, hindex,
	pcc, lcc, cites_by_year_json, pubs_by_year_json,
	ncoauthors_acc_json, ncoauthors_mean`

// OpenDB opens or creates a dataset database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS pubs (
			id TEXT PRIMARY KEY,
			title TEXT,
			journal TEXT,
			year INTEGER NOT NULL,
			authors_json TEXT NOT NULL,
			cites_by_year_json TEXT NOT NULL,
			cites_start_year INTEGER NOT NULL,
			pcc INTEGER NOT NULL,
			lcc INTEGER NOT NULL,
			ncites INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			name TEXT,
			first_name TEXT,
			last_name TEXT,
			affiliation TEXT,
			ncited_by INTEGER NOT NULL,
			npubs INTEGER NOT NULL,
			first_pub INTEGER NOT NULL,
			last_pub INTEGER NOT NULL,
			ncites INTEGER NOT NULL,
			ncoauthors INTEGER NOT NULL,
			hindex INTEGER NOT NULL,
			pcc INTEGER NOT NULL,
			lcc INTEGER NOT NULL,
			cites_by_year_json TEXT NOT NULL,
			pubs_by_year_json TEXT NOT NULL,
			ncoauthors_acc_json TEXT NOT NULL,
			ncoauthors_mean REAL NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// WritePublications replaces the pubs table with the given records.
func (d *DB) WritePublications(pubs []record.Publication) error {
	if _, err := d.db.Exec("DELETE FROM pubs"); err != nil {
		return fmt.Errorf("clearing pubs table: %w", err)
	}

	stmt, err := d.db.Prepare(`
		INSERT INTO pubs (
			id, title, journal, year, authors_json,
			cites_by_year_json, cites_start_year, pcc, lcc, ncites
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing pubs insert: %w", err)
	}
	defer stmt.Close()

	for _, pub := range pubs {
		authorsJSON, err := jsonStrings(pub.Authors)
		if err != nil {
			return fmt.Errorf("marshaling authors for %s: %w", pub.ID, err)
		}
		citesJSON, err := jsonInts(pub.CitesByYear)
		if err != nil {
			return fmt.Errorf("marshaling citations for %s: %w", pub.ID, err)
		}

		_, err = stmt.Exec(
			pub.ID, pub.Title, pub.Journal, pub.Year, authorsJSON,
			citesJSON, pub.CitesStartYear, pub.PCC, pub.LCC, pub.NCites,
		)
		if err != nil {
			return fmt.Errorf("inserting pub %s: %w", pub.ID, err)
		}
	}

	return nil
}

// WriteAuthors replaces the authors table with the given rows.
func (d *DB) WriteAuthors(authors []record.AuthorStats) error {
	if _, err := d.db.Exec("DELETE FROM authors"); err != nil {
		return fmt.Errorf("clearing authors table: %w", err)
	}

	stmt, err := d.db.Prepare(`
		INSERT INTO authors (
			id, name, first_name, last_name, affiliation,
			ncited_by, npubs, first_pub, last_pub, ncites, ncoauthors, hindex,
			pcc, lcc, cites_by_year_json, pubs_by_year_json,
			ncoauthors_acc_json, ncoauthors_mean
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing authors insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range authors {
		citesJSON, err := jsonInts(a.CitesByYear)
		if err != nil {
			return fmt.Errorf("marshaling citations for %s: %w", a.ID, err)
		}
		pubsJSON, err := jsonInts(a.PubsByYear)
		if err != nil {
			return fmt.Errorf("marshaling publication counts for %s: %w", a.ID, err)
		}
		accJSON, err := jsonInts(a.NCoauthorsAcc)
		if err != nil {
			return fmt.Errorf("marshaling coauthor counts for %s: %w", a.ID, err)
		}

		_, err = stmt.Exec(
			a.ID, a.Name, a.FirstName, a.LastName, a.Affiliation,
			a.NCitedBy, a.NPubs, a.FirstPub, a.LastPub, a.NCites,
			a.NCoauthors, a.HIndex, a.PCC, a.LCC,
			citesJSON, pubsJSON, accJSON, a.NCoauthorsMean,
		)
		if err != nil {
			return fmt.Errorf("inserting author %s: %w", a.ID, err)
		}
	}

	return nil
}

// jsonInts encodes an int slice for a JSON column, mapping nil to an
// empty array so the column is never NULL.
func jsonInts(v []int) (string, error) {
	if v == nil {
		v = []int{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// jsonStrings is jsonInts for string slices.
func jsonStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadPublications returns all publications, ordered by id.
func (d *DB) ReadPublications() ([]record.Publication, error) {
	rows, err := d.db.Query(`SELECT ` + selectPubFields + ` FROM pubs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing pubs: %w", err)
	}
	defer rows.Close()

	var pubs []record.Publication
	for rows.Next() {
		var pub record.Publication
		var authorsJSON, citesJSON string

		err := rows.Scan(
			&pub.ID, &pub.Title, &pub.Journal, &pub.Year, &authorsJSON,
			&citesJSON, &pub.CitesStartYear, &pub.PCC, &pub.LCC, &pub.NCites,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(authorsJSON), &pub.Authors); err != nil {
			return nil, fmt.Errorf("parsing authors JSON for %s: %w", pub.ID, err)
		}
		if err := json.Unmarshal([]byte(citesJSON), &pub.CitesByYear); err != nil {
			return nil, fmt.Errorf("parsing citations JSON for %s: %w", pub.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, rows.Err()
}

// ReadAuthors returns all author rows, ordered by id.
func (d *DB) ReadAuthors() ([]record.AuthorStats, error) {
	rows, err := d.db.Query(`SELECT ` + selectAuthorFields + ` FROM authors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing authors: %w", err)
	}
	defer rows.Close()

	var authors []record.AuthorStats
	for rows.Next() {
		var a record.AuthorStats
		var citesJSON, pubsJSON, accJSON string

		err := rows.Scan(
			&a.ID, &a.Name, &a.FirstName, &a.LastName, &a.Affiliation,
			&a.NCitedBy, &a.NPubs, &a.FirstPub, &a.LastPub, &a.NCites,
			&a.NCoauthors, &a.HIndex, &a.PCC, &a.LCC,
			&citesJSON, &pubsJSON, &accJSON, &a.NCoauthorsMean,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(citesJSON), &a.CitesByYear); err != nil {
			return nil, fmt.Errorf("parsing citations JSON for %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(pubsJSON), &a.PubsByYear); err != nil {
			return nil, fmt.Errorf("parsing publication counts JSON for %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(accJSON), &a.NCoauthorsAcc); err != nil {
			return nil, fmt.Errorf("parsing coauthor counts JSON for %s: %w", a.ID, err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// CountAuthors returns the number of author rows.
func (d *DB) CountAuthors() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM authors").Scan(&count)
	return count, err
}

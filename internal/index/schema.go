// Package index provides the SQLite-backed denormalized record store. One
// table holds three record variants, partitioned by a type discriminator:
// document records, tag-membership records, and entity-membership records.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	pk              TEXT NOT NULL,
	sk              TEXT NOT NULL,
	record_type     TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	tags            TEXT NOT NULL DEFAULT '[]',
	links_to        TEXT NOT NULL DEFAULT '[]',
	has_frontmatter INTEGER NOT NULL DEFAULT 0,
	classification  TEXT NOT NULL DEFAULT '',
	entities        TEXT NOT NULL DEFAULT '{}',
	extra           TEXT NOT NULL DEFAULT '{}',
	checksum        TEXT NOT NULL DEFAULT '',
	tag_name        TEXT NOT NULL DEFAULT '',
	entity_type     TEXT NOT NULL DEFAULT '',
	entity_name     TEXT NOT NULL DEFAULT '',
	document_path   TEXT NOT NULL DEFAULT '',
	created         TEXT NOT NULL DEFAULT '',
	modified        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (pk, sk)
);

CREATE INDEX IF NOT EXISTS idx_records_classification
	ON records(record_type, classification, modified);
CREATE INDEX IF NOT EXISTS idx_records_modified
	ON records(record_type, modified);
CREATE INDEX IF NOT EXISTS idx_records_tag
	ON records(record_type, tag_name);
CREATE INDEX IF NOT EXISTS idx_records_doc_path
	ON records(record_type, document_path);
`

// Record variant discriminators.
const (
	recordDocument = "document"
	recordTag      = "tag"
	recordEntity   = "entity"
)

// Store wraps a sql.DB with record-store operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marbeck/vellum/internal/models"
)

// timeLayout is a fixed-width UTC timestamp format, so lexicographic order
// on the stored column matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const docSortKey = "metadata"

func docKey(path string) string { return "doc#" + path }

func tagKey(tag string) string { return "tag#" + tag }

// entityKey is the canonical entity key: type plus lowercased name.
func entityKey(typ models.EntityType, name string) string {
	return "entity#" + string(typ) + "#" + strings.ToLower(name)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// PutDocument upserts the document record for path and replaces its tag
// memberships in one transaction. Only the extractor-owned attributes are
// written; classification and entities survive untouched, so a replay of
// this stage cannot clobber a concurrent classification or entity merge.
// The modified timestamp never moves backwards.
func (s *Store) PutDocument(path string, meta models.Metadata, checksum string, modified time.Time) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	mod := formatTime(orNow(modified))
	tagsJSON, _ := json.Marshal(emptySlice(meta.Tags))
	linksJSON, _ := json.Marshal(emptySlice(meta.LinksTo))
	extraJSON, _ := json.Marshal(emptyMap(meta.Extra))

	_, err = tx.Exec(`
		INSERT INTO records
			(pk, sk, record_type, title, tags, links_to, has_frontmatter, extra, checksum, created, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO UPDATE SET
			title           = excluded.title,
			tags            = excluded.tags,
			links_to        = excluded.links_to,
			has_frontmatter = excluded.has_frontmatter,
			extra           = excluded.extra,
			checksum        = excluded.checksum,
			modified        = max(records.modified, excluded.modified)
	`, docKey(path), docSortKey, recordDocument,
		meta.Title, string(tagsJSON), string(linksJSON), boolInt(meta.HasFrontmatter),
		string(extraJSON), checksum, mod, mod)
	if err != nil {
		return fmt.Errorf("index: put document: %w", err)
	}

	// Replace tag memberships: delete old then bulk insert.
	if _, err := tx.Exec(
		`DELETE FROM records WHERE record_type = ? AND document_path = ?`,
		recordTag, path,
	); err != nil {
		return fmt.Errorf("index: clear tag memberships: %w", err)
	}
	if len(meta.Tags) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO records (pk, sk, record_type, tag_name, document_path, modified)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range meta.Tags {
			if _, err := stmt.Exec(tagKey(tag), docKey(path), recordTag, tag, path, mod); err != nil {
				return fmt.Errorf("index: insert tag membership: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetDocument returns the document record for path, or nil when absent.
func (s *Store) GetDocument(path string) (*models.Document, error) {
	row := s.conn.QueryRow(docSelect+` WHERE pk = ? AND sk = ?`, docKey(path), docSortKey)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document %s: %w", path, err)
	}
	return doc, nil
}

// GetChecksum returns the stored checksum for path, or empty string if the
// document is unknown.
func (s *Store) GetChecksum(path string) (string, error) {
	var cs string
	err := s.conn.QueryRow(
		`SELECT checksum FROM records WHERE pk = ? AND sk = ?`, docKey(path), docSortKey,
	).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum %s: %w", path, err)
	}
	return cs, nil
}

// UpdateClassification merges only the classification and modified
// attributes. A missing document record is created as a skeleton, matching
// upsert semantics of the underlying table contract.
func (s *Store) UpdateClassification(path string, label models.Classification, modified time.Time) error {
	mod := formatTime(orNow(modified))
	_, err := s.conn.Exec(`
		INSERT INTO records (pk, sk, record_type, classification, created, modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO UPDATE SET
			classification = excluded.classification,
			modified       = max(records.modified, excluded.modified)
	`, docKey(path), docSortKey, recordDocument, string(label), mod, mod)
	if err != nil {
		return fmt.Errorf("index: update classification: %w", err)
	}
	return nil
}

// StoreEntities merges the entities attribute into the document record and
// replaces the document's entity-membership records, one per (type, name)
// pair, keyed by the canonical entity key.
func (s *Store) StoreEntities(path string, entities models.Entities, modified time.Time) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	mod := formatTime(orNow(modified))
	entitiesJSON, _ := json.Marshal(entities)

	_, err = tx.Exec(`
		INSERT INTO records (pk, sk, record_type, entities, created, modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO UPDATE SET
			entities = excluded.entities,
			modified = max(records.modified, excluded.modified)
	`, docKey(path), docSortKey, recordDocument, string(entitiesJSON), mod, mod)
	if err != nil {
		return fmt.Errorf("index: store entities: %w", err)
	}

	// Replace entity memberships for this document.
	if _, err := tx.Exec(
		`DELETE FROM records WHERE record_type = ? AND document_path = ?`,
		recordEntity, path,
	); err != nil {
		return fmt.Errorf("index: clear entity memberships: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records
			(pk, sk, record_type, entity_type, entity_name, document_path, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare entity insert: %w", err)
	}
	defer stmt.Close()

	for typ, names := range entities {
		for _, name := range names {
			if _, err := stmt.Exec(
				entityKey(typ, name), docKey(path), recordEntity,
				string(typ), name, path, mod,
			); err != nil {
				return fmt.Errorf("index: insert entity membership: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ByClassification returns documents carrying the label, most recently
// modified first.
func (s *Store) ByClassification(label models.Classification, limit int) ([]models.Document, error) {
	rows, err := s.conn.Query(
		docSelect+` WHERE record_type = ? AND classification = ? ORDER BY modified DESC LIMIT ?`,
		recordDocument, string(label), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("index: by classification: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// ByTag returns the paths of documents carrying the tag. Order is not part
// of the contract.
func (s *Store) ByTag(tag string, limit int) ([]string, error) {
	rows, err := s.conn.Query(
		`SELECT document_path FROM records WHERE record_type = ? AND tag_name = ? ORDER BY document_path LIMIT ?`,
		recordTag, tag, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("index: by tag: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// EntityMentions returns the paths of documents mentioning the entity,
// sorted by path so a rebuild from the same state renders identically.
func (s *Store) EntityMentions(typ models.EntityType, name string) ([]string, error) {
	rows, err := s.conn.Query(
		`SELECT document_path FROM records WHERE pk = ? ORDER BY sk`,
		entityKey(typ, name),
	)
	if err != nil {
		return nil, fmt.Errorf("index: entity mentions: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// ModifiedSince returns document records modified at or after since, most
// recently modified first. The modified column carries a covering index, so
// this is a bounded range query rather than a table scan.
func (s *Store) ModifiedSince(since time.Time, limit int) ([]models.Document, error) {
	rows, err := s.conn.Query(
		docSelect+` WHERE record_type = ? AND modified >= ? ORDER BY modified DESC LIMIT ?`,
		recordDocument, formatTime(since), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("index: modified since: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

const docSelect = `
	SELECT pk, title, tags, links_to, has_frontmatter, classification,
	       entities, extra, checksum, created, modified
	FROM records`

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*models.Document, error) {
	var (
		pk, title, tagsJSON, linksJSON, classification string
		entitiesJSON, extraJSON, checksum              string
		created, modified                              string
		hasFM                                          int
	)
	if err := row.Scan(&pk, &title, &tagsJSON, &linksJSON, &hasFM,
		&classification, &entitiesJSON, &extraJSON, &checksum,
		&created, &modified); err != nil {
		return nil, err
	}

	doc := &models.Document{
		Path:           strings.TrimPrefix(pk, "doc#"),
		Title:          title,
		HasFrontmatter: hasFM != 0,
		Classification: models.Classification(classification),
		Checksum:       checksum,
		Created:        parseTime(created),
		Modified:       parseTime(modified),
	}
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(linksJSON), &doc.LinksTo); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &doc.Entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	if err := json.Unmarshal([]byte(extraJSON), &doc.Extra); err != nil {
		return nil, fmt.Errorf("decode extra: %w", err)
	}
	if len(doc.Entities) == 0 {
		doc.Entities = nil
	}
	if len(doc.Extra) == 0 {
		doc.Extra = nil
	}
	return doc, nil
}

func collectDocuments(rows *sql.Rows) ([]models.Document, error) {
	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

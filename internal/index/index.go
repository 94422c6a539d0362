package index

import (
	"time"

	"github.com/marbeck/vellum/internal/models"
)

// Index defines the record-store operations consumed by the pipeline,
// materializers, and rollup generators. Consumers should depend on this
// interface rather than the concrete *Store type to facilitate testing.
//
// Writes are atomic per logical record update. There are no cross-record
// transactions beyond membership replacement, and no version checks;
// concurrent partial merges on disjoint attributes commute.
type Index interface {
	// PutDocument writes the extractor-owned attributes of a document
	// record and replaces its tag memberships. Classification and entities
	// are owned by later stages and are never clobbered. A zero modified
	// time means "now".
	PutDocument(path string, meta models.Metadata, checksum string, modified time.Time) error
	// GetDocument returns the document record for path, or nil when absent.
	GetDocument(path string) (*models.Document, error)
	// GetChecksum returns the stored content checksum for path, or empty
	// string when the document is unknown.
	GetChecksum(path string) (string, error)
	// UpdateClassification merges only the classification label and the
	// modified timestamp into the document record, creating it if needed.
	UpdateClassification(path string, label models.Classification, modified time.Time) error
	// StoreEntities merges the entities attribute into the document record
	// and replaces its entity memberships.
	StoreEntities(path string, entities models.Entities, modified time.Time) error
	// ByClassification returns documents with the given label, most
	// recently modified first.
	ByClassification(label models.Classification, limit int) ([]models.Document, error)
	// ByTag returns the paths of documents carrying the tag.
	ByTag(tag string, limit int) ([]string, error)
	// EntityMentions returns the paths of documents mentioning the entity,
	// sorted by path. Entity names are case-insensitive.
	EntityMentions(typ models.EntityType, name string) ([]string, error)
	// ModifiedSince returns documents modified at or after since, most
	// recently modified first. Callers needing an exact window re-filter
	// the result.
	ModifiedSince(since time.Time, limit int) ([]models.Document, error)
	Close() error
}

// Verify *Store satisfies Index at compile time.
var _ Index = (*Store)(nil)

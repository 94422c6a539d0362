// Package materialize regenerates derived markdown artifacts from current
// index state. Every rebuild is a full recomputation: previous renderings
// are never read or merged, so rebuilding twice against unchanged state
// yields byte-identical output for a fixed clock.
package materialize

import (
	"fmt"
	"time"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/markdown"
	"github.com/marbeck/vellum/internal/models"
)

// EntityPages rebuilds entity page artifacts.
type EntityPages struct {
	idx   index.Index
	blobs blob.Provider

	// Clock supplies the rendered last-updated timestamp. Overridable in
	// tests to pin output bytes.
	Clock func() time.Time
}

// NewEntityPages creates an entity page materializer.
func NewEntityPages(idx index.Index, blobs blob.Provider) *EntityPages {
	return &EntityPages{idx: idx, blobs: blobs, Clock: time.Now}
}

// Rebuild regenerates the page for one entity from its current mention list
// and writes it to the blob store. It returns the artifact key.
func (m *EntityPages) Rebuild(typ models.EntityType, name string) (string, error) {
	paths, err := m.idx.EntityMentions(typ, name)
	if err != nil {
		return "", fmt.Errorf("materialize: entity mentions %s/%s: %w", typ, name, err)
	}

	mentions := make([]models.Mention, len(paths))
	for i, p := range paths {
		mentions[i] = models.Mention{
			Path: p,
			// Extractive context snippets are not attempted; a generic
			// placeholder stands in.
			Context: fmt.Sprintf("Mentioned in %s", p),
		}
	}

	rendered := markdown.EntityPage(name, typ, mentions, m.Clock())
	slug := markdown.SanitizeFilename(name)
	if slug == "" {
		// Names with no filename-safe characters would otherwise all land
		// on the hidden key "<type>/.md".
		slug = "unnamed"
	}
	key := blob.EntitiesPrefix + string(typ) + "/" + slug + ".md"

	if err := m.blobs.Put(key, []byte(rendered), blob.MarkdownContentType); err != nil {
		return "", fmt.Errorf("materialize: write entity page %s: %w", key, err)
	}
	return key, nil
}

package materialize

import (
	"fmt"
	"time"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/markdown"
	"github.com/marbeck/vellum/internal/models"
)

// perLabelLimit bounds how many documents each label section lists.
const perLabelLimit = 100

// ClassificationIndex rebuilds the global classification index artifact.
type ClassificationIndex struct {
	idx   index.Index
	blobs blob.Provider

	Clock func() time.Time
}

// NewClassificationIndex creates a classification index materializer.
func NewClassificationIndex(idx index.Index, blobs blob.Provider) *ClassificationIndex {
	return &ClassificationIndex{idx: idx, blobs: blobs, Clock: time.Now}
}

// Rebuild queries every label, renders the index, and writes it to the blob
// store. Labels with no documents produce no section.
func (m *ClassificationIndex) Rebuild() (string, error) {
	classifications := make(map[models.Classification][]string, len(models.Classifications))
	for _, label := range models.Classifications {
		docs, err := m.idx.ByClassification(label, perLabelLimit)
		if err != nil {
			return "", fmt.Errorf("materialize: query %s: %w", label, err)
		}
		paths := make([]string, len(docs))
		for i, d := range docs {
			paths[i] = d.Path
		}
		classifications[label] = paths
	}

	rendered := markdown.ClassificationIndex(classifications, m.Clock())
	if err := m.blobs.Put(blob.ClassificationIndexKey, []byte(rendered), blob.MarkdownContentType); err != nil {
		return "", fmt.Errorf("materialize: write classification index: %w", err)
	}
	return blob.ClassificationIndexKey, nil
}

// Package rollup generates the periodic summary artifacts: daily summaries
// and weekly reports. Each run queries a time window of the index, samples
// document content from the blob store, delegates synthesis to the
// text-generation collaborator, and persists a rendered markdown artifact.
package rollup

import (
	"strings"
	"time"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/textgen"
)

// Sampling bounds: prompt size is kept in check by capping both the number
// of documents and the content taken from each.
const (
	dailySampleLimit  = 20
	weeklySampleLimit = 30
	contentCap        = 2000
	scanLimit         = 1000
)

// Generator produces rollup artifacts.
type Generator struct {
	idx   index.Index
	blobs blob.Provider
	gen   textgen.Generator

	Clock func() time.Time
}

// New creates a rollup generator.
func New(idx index.Index, blobs blob.Provider, gen textgen.Generator) *Generator {
	return &Generator{idx: idx, blobs: blobs, gen: gen, Clock: time.Now}
}

// dayWindow returns the UTC midnight-to-midnight window containing date.
func dayWindow(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// weekWindow returns the ISO week window containing date: Monday 00:00 UTC
// inclusive through the following Monday exclusive.
func weekWindow(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	for start.Weekday() != time.Monday {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.AddDate(0, 0, 7)
}

// windowDocuments queries candidates modified since start and re-filters to
// the exact [start, end) window, excluding generated artifacts.
func (g *Generator) windowDocuments(start, end time.Time) ([]models.Document, error) {
	candidates, err := g.idx.ModifiedSince(start, scanLimit)
	if err != nil {
		return nil, err
	}
	var out []models.Document
	for _, doc := range candidates {
		if doc.Modified.Before(start) || !doc.Modified.Before(end) {
			continue
		}
		if strings.HasPrefix(doc.Path, blob.AgentPrefix) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

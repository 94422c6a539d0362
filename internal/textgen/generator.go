// Package textgen defines the text-generation collaborator contract and an
// Ollama-backed implementation. From the engine's point of view the
// collaborator is a pure function from text to text or structured data;
// output validation and fallback substitution happen here so callers never
// see raw model output.
package textgen

import (
	"context"

	"github.com/marbeck/vellum/internal/models"
)

// SourceDocument is one document handed to Summarize.
type SourceDocument struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DailySummaryRef is a previously generated daily summary included in the
// weekly report input.
type DailySummaryRef struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

// DocumentRef is a lightweight document reference in the weekly report input.
type DocumentRef struct {
	Path           string   `json:"path"`
	Title          string   `json:"title"`
	Classification string   `json:"classification"`
	Tags           []string `json:"tags"`
}

// WeekData aggregates a week's activity for report generation.
type WeekData struct {
	Week                 string            `json:"week"`
	StartDate            string            `json:"start_date"`
	EndDate              string            `json:"end_date"`
	DocumentCount        int               `json:"document_count"`
	DailySummaries       []DailySummaryRef `json:"daily_summaries"`
	Documents            []DocumentRef     `json:"documents"`
	ClassificationCounts map[string]int    `json:"classification_counts"`
}

// Generator is the text-generation collaborator contract.
//
// Classify always returns a valid label: output outside the fixed set is
// replaced with the fallback. ExtractEntities always returns all four
// categories: missing ones are backfilled empty, and malformed structured
// output degrades to an all-empty result. Neither substitution is an error.
type Generator interface {
	Classify(ctx context.Context, content string) (models.Classification, error)
	ExtractEntities(ctx context.Context, content string) (models.Entities, error)
	Summarize(ctx context.Context, docs []SourceDocument) (string, error)
	WeeklyReport(ctx context.Context, data WeekData) (string, error)
}

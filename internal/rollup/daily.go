package rollup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/markdown"
	"github.com/marbeck/vellum/internal/textgen"
)

// Daily generates the summary artifact for the given date. When no
// documents were modified that day the generator is a no-op and returns an
// empty key.
func (g *Generator) Daily(ctx context.Context, date time.Time) (string, error) {
	start, end := dayWindow(date)
	dateStr := start.Format("2006-01-02")

	docs, err := g.windowDocuments(start, end)
	if err != nil {
		return "", fmt.Errorf("rollup: query day %s: %w", dateStr, err)
	}
	if len(docs) == 0 {
		slog.Info("rollup: no documents to summarize", slog.String("date", dateStr))
		return "", nil
	}

	if len(docs) > dailySampleLimit {
		docs = docs[:dailySampleLimit]
	}

	var sources []textgen.SourceDocument
	for _, doc := range docs {
		content, err := g.blobs.Get(doc.Path)
		if err != nil {
			slog.Warn("rollup: fetch failed", slog.String("path", doc.Path), slog.String("error", err.Error()))
			continue
		}
		if len(content) == 0 {
			continue
		}
		sources = append(sources, textgen.SourceDocument{
			Path:    doc.Path,
			Title:   doc.Title,
			Content: truncate(string(content), contentCap),
		})
	}
	if len(sources) == 0 {
		slog.Info("rollup: no readable documents to summarize", slog.String("date", dateStr))
		return "", nil
	}

	summary, err := g.gen.Summarize(ctx, sources)
	if err != nil {
		return "", fmt.Errorf("rollup: summarize %s: %w", dateStr, err)
	}

	paths := make([]string, len(sources))
	for i, s := range sources {
		paths[i] = s.Path
	}

	rendered := markdown.SummaryDocument(dateStr, summary, paths, g.Clock())
	key := blob.SummariesPrefix + dateStr + ".md"
	if err := g.blobs.Put(key, []byte(rendered), blob.MarkdownContentType); err != nil {
		return "", fmt.Errorf("rollup: write summary %s: %w", key, err)
	}

	slog.Info("rollup: daily summary written",
		slog.String("key", key), slog.Int("documents", len(sources)))
	return key, nil
}

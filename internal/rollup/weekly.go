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

// Weekly generates the report artifact for the ISO week containing date.
// When the week saw no document activity the generator is a no-op and
// returns an empty key.
func (g *Generator) Weekly(ctx context.Context, date time.Time) (string, error) {
	start, end := weekWindow(date)
	week := markdown.WeekString(start)

	docs, err := g.windowDocuments(start, end)
	if err != nil {
		return "", fmt.Errorf("rollup: query week %s: %w", week, err)
	}
	if len(docs) == 0 {
		slog.Info("rollup: no documents for week", slog.String("week", week))
		return "", nil
	}

	// Collect the daily summaries already produced this week.
	var dailies []textgen.DailySummaryRef
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		content, err := g.blobs.Get(blob.SummariesPrefix + day + ".md")
		if err != nil {
			slog.Warn("rollup: daily summary fetch failed", slog.String("date", day), slog.String("error", err.Error()))
			continue
		}
		if len(content) == 0 {
			continue
		}
		dailies = append(dailies, textgen.DailySummaryRef{Date: day, Content: string(content)})
	}

	counts := make(map[string]int)
	for _, doc := range docs {
		label := string(doc.Classification)
		if label == "" {
			label = "unknown"
		}
		counts[label]++
	}

	sample := docs
	if len(sample) > weeklySampleLimit {
		sample = sample[:weeklySampleLimit]
	}
	refs := make([]textgen.DocumentRef, 0, len(sample))
	for _, doc := range sample {
		classification := string(doc.Classification)
		if classification == "" {
			classification = "unknown"
		}
		refs = append(refs, textgen.DocumentRef{
			Path:           doc.Path,
			Title:          doc.Title,
			Classification: classification,
			Tags:           doc.Tags,
		})
	}

	data := textgen.WeekData{
		Week:                 week,
		StartDate:            start.Format("2006-01-02"),
		EndDate:              end.AddDate(0, 0, -1).Format("2006-01-02"),
		DocumentCount:        len(docs),
		DailySummaries:       dailies,
		Documents:            refs,
		ClassificationCounts: counts,
	}

	report, err := g.gen.WeeklyReport(ctx, data)
	if err != nil {
		return "", fmt.Errorf("rollup: weekly report %s: %w", week, err)
	}

	rendered := markdown.WeeklyReportDocument(week, report, len(docs), g.Clock())
	key := blob.WeeklyReportsPrefix + week + ".md"
	if err := g.blobs.Put(key, []byte(rendered), blob.MarkdownContentType); err != nil {
		return "", fmt.Errorf("rollup: write report %s: %w", key, err)
	}

	slog.Info("rollup: weekly report written",
		slog.String("key", key), slog.Int("documents", len(docs)))
	return key, nil
}

// Package markdown renders the generated artifact documents: daily
// summaries, weekly reports, entity pages, and the classification index.
// All renderings are deterministic for a fixed generation time, so rebuilds
// against unchanged state are byte-identical.
package markdown

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marbeck/vellum/internal/models"
)

// timestampLayout is the generation-timestamp format used in artifact
// frontmatter.
const timestampLayout = "2006-01-02T15:04:05Z"

var invalidFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// Frontmatter renders a YAML frontmatter block with leading and trailing
// --- delimiter lines. Map keys are emitted in sorted order, which keeps the
// output stable across invocations.
func Frontmatter(fields map[string]any) string {
	out, err := yaml.Marshal(fields)
	if err != nil {
		// Only unmarshalable values (funcs, channels) can fail here, and the
		// renderers below never pass those.
		return "---\n---\n"
	}
	return "---\n" + string(out) + "---\n"
}

// SummaryDocument renders a daily summary artifact for the given date
// (YYYY-MM-DD), with one wikilink bullet per source document.
func SummaryDocument(date, summary string, sourcePaths []string, generated time.Time) string {
	fm := Frontmatter(map[string]any{
		"generated":   generated.UTC().Format(timestampLayout),
		"agent":       "summarization",
		"period":      "daily",
		"source_docs": len(sourcePaths),
		"tags":        []string{"agent-generated", "summary"},
	})

	links := make([]string, len(sourcePaths))
	for i, p := range sourcePaths {
		links[i] = fmt.Sprintf("- [[%s]]", p)
	}

	return fmt.Sprintf(`%s
# Daily Summary - %s

%s

## Source Documents
%s

---
*Generated automatically by Vellum*
`, fm, date, summary, strings.Join(links, "\n"))
}

// WeeklyReportDocument renders a weekly report artifact for the given ISO
// week (YYYY-Www).
func WeeklyReportDocument(week, report string, sourceCount int, generated time.Time) string {
	fm := Frontmatter(map[string]any{
		"generated":   generated.UTC().Format(timestampLayout),
		"agent":       "reporting",
		"period":      "weekly",
		"week":        week,
		"source_docs": sourceCount,
		"tags":        []string{"agent-generated", "weekly-report"},
	})

	return fmt.Sprintf(`%s
# Weekly Report - %s

%s

---
*Generated automatically by Vellum*
`, fm, week, report)
}

// EntityPage renders an entity page: header, then one bullet per mention.
func EntityPage(name string, typ models.EntityType, mentions []models.Mention, updated time.Time) string {
	paths := make([]string, len(mentions))
	lines := make([]string, len(mentions))
	for i, m := range mentions {
		paths[i] = m.Path
		lines[i] = fmt.Sprintf("- [[%s]] - %s", m.Path, m.Context)
	}

	fm := Frontmatter(map[string]any{
		"type":         string(typ),
		"mentioned_in": paths,
		"last_updated": updated.UTC().Format(timestampLayout),
	})

	return fmt.Sprintf(`%s
# %s

## Mentions
%s
`, fm, name, strings.Join(lines, "\n"))
}

// ClassificationIndex renders the global classification index. Labels appear
// in their fixed display order; labels with no documents produce no section.
// Paths within a section are sorted lexicographically.
func ClassificationIndex(classifications map[models.Classification][]string, generated time.Time) string {
	fm := Frontmatter(map[string]any{
		"generated": generated.UTC().Format(timestampLayout),
		"tags":      []string{"index", "agent-generated"},
	})

	var sections []string
	for _, label := range models.Classifications {
		docs := classifications[label]
		if len(docs) == 0 {
			continue
		}
		sorted := append([]string(nil), docs...)
		sort.Strings(sorted)

		links := make([]string, len(sorted))
		for i, p := range sorted {
			links[i] = fmt.Sprintf("- [[%s]]", p)
		}
		sections = append(sections, fmt.Sprintf("## %s\n%s", capitalize(string(label)), strings.Join(links, "\n")))
	}

	return fmt.Sprintf(`%s
# Document Classifications

%s
`, fm, strings.Join(sections, "\n\n"))
}

// SanitizeFilename converts a free-form name into a filename-safe slug:
// spaces become hyphens, invalid characters are dropped, the result is
// lowercased with leading/trailing hyphens removed.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidFilenameRe.ReplaceAllString(name, "")
	name = strings.ToLower(name)
	return strings.Trim(name, "-")
}

// WeekString returns the ISO week identifier for t in YYYY-Www form,
// e.g. 2026-W02.
func WeekString(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

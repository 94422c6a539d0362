package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/marbeck/vellum/internal/models"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Test File Name", "test-file-name"},
		{"UPPERCASE", "uppercase"},
		{"John Smith", "john-smith"},
		{"Acme, Inc.", "acme-inc."},
		{"--trimmed--", "trimmed"},
		{"weird/../path", "weird..path"},
	}
	for _, c := range cases {
		if got := SanitizeFilename(c.in); got != c.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWeekString(t *testing.T) {
	d := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	if got := WeekString(d); got != "2026-W02" {
		t.Errorf("WeekString = %q, want %q", got, "2026-W02")
	}
	// ISO week years can differ from calendar years at the boundary.
	d = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := WeekString(d); got != "2026-W53" {
		t.Errorf("WeekString = %q, want %q", got, "2026-W53")
	}
}

func TestFrontmatter_SortedAndDelimited(t *testing.T) {
	out := Frontmatter(map[string]any{"zeta": 1, "alpha": "x"})
	if !strings.HasPrefix(out, "---\n") || !strings.HasSuffix(out, "---\n") {
		t.Fatalf("missing delimiters: %q", out)
	}
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("keys not sorted: %q", out)
	}
}

func TestSummaryDocument(t *testing.T) {
	gen := time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
	out := SummaryDocument("2026-01-11", "A quiet day.", []string{"notes/a.md", "notes/b.md"}, gen)
	for _, want := range []string{
		"# Daily Summary - 2026-01-11",
		"A quiet day.",
		"- [[notes/a.md]]",
		"- [[notes/b.md]]",
		"generated: 2026-01-12T06:00:00Z",
		"period: daily",
		"*Generated automatically by Vellum*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSummaryDocument_Deterministic(t *testing.T) {
	gen := time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
	a := SummaryDocument("2026-01-11", "S", []string{"x.md"}, gen)
	b := SummaryDocument("2026-01-11", "S", []string{"x.md"}, gen)
	if a != b {
		t.Error("same inputs must render byte-identical output")
	}
}

func TestWeeklyReportDocument(t *testing.T) {
	gen := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)
	out := WeeklyReportDocument("2026-W02", "Busy week.", 14, gen)
	for _, want := range []string{
		"# Weekly Report - 2026-W02",
		"Busy week.",
		"week: 2026-W02",
		"source_docs: 14",
		"period: weekly",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestEntityPage(t *testing.T) {
	updated := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	mentions := []models.Mention{
		{Path: "notes/meeting.md", Context: "Mentioned in notes/meeting.md"},
	}
	out := EntityPage("John Smith", models.EntityPerson, mentions, updated)
	for _, want := range []string{
		"# John Smith",
		"## Mentions",
		"- [[notes/meeting.md]] - Mentioned in notes/meeting.md",
		"type: person",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestClassificationIndex_OrderAndOmission(t *testing.T) {
	gen := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	out := ClassificationIndex(map[models.Classification][]string{
		models.ClassificationIdea:    {"b.md", "a.md"},
		models.ClassificationMeeting: {"m.md"},
	}, gen)

	if !strings.Contains(out, "# Document Classifications") {
		t.Fatalf("missing header:\n%s", out)
	}
	// Meeting section precedes idea; empty labels are omitted entirely.
	mi := strings.Index(out, "## Meeting")
	ii := strings.Index(out, "## Idea")
	if mi < 0 || ii < 0 || mi > ii {
		t.Errorf("section order wrong:\n%s", out)
	}
	if strings.Contains(out, "## Journal") {
		t.Errorf("empty label should be omitted:\n%s", out)
	}
	// Paths within a section are sorted.
	if strings.Index(out, "[[a.md]]") > strings.Index(out, "[[b.md]]") {
		t.Errorf("paths not sorted:\n%s", out)
	}
}

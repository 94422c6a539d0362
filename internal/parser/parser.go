// Package parser extracts structured metadata from raw Markdown notes:
// frontmatter, tags, wikilinks, title, and passthrough fields. It performs
// no I/O and is fully deterministic.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marbeck/vellum/internal/models"
)

// DefaultTitle is used when neither frontmatter nor a first-level heading
// provides one.
const DefaultTitle = "Untitled"

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_-]+)`)
	h1Re       = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// Frontmatter keys that are normalised into typed Metadata fields rather
// than passed through Extra.
var reservedKeys = map[string]struct{}{
	"title":    {},
	"tags":     {},
	"date":     {},
	"created":  {},
	"modified": {},
}

// Result holds the output of extracting a Markdown note.
type Result struct {
	Metadata models.Metadata
	Body     string
}

// Extract parses raw Markdown content into metadata. It never fails:
// malformed frontmatter degrades to "no frontmatter" and the entire input is
// treated as body.
func Extract(data []byte) Result {
	fm, body := splitFrontmatter(string(data))

	meta := models.Metadata{
		Title:          deriveTitle(fm, body),
		Tags:           extractTags(body, fm),
		LinksTo:        extractLinks(body),
		HasFrontmatter: fm != nil,
	}

	if fm != nil {
		if v, ok := fm["date"]; ok {
			meta.Date = stringify(v)
		}
		if v, ok := fm["created"]; ok {
			meta.Created = stringify(v)
		}
		if v, ok := fm["modified"]; ok {
			meta.Modified = stringify(v)
		}
		for key, value := range fm {
			if _, reserved := reservedKeys[key]; reserved {
				continue
			}
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[key] = value
		}
	}

	return Result{Metadata: meta, Body: body}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiter
// lines) from the Markdown body. When there is no frontmatter, or the YAML
// block fails to parse, the full input is returned as body.
func splitFrontmatter(content string) (map[string]any, string) {
	const delim = "---"

	if !strings.HasPrefix(content, delim+"\n") {
		return nil, content
	}

	rest := content[len(delim)+1:]

	// The closing delimiter must be a line of exactly three hyphens; a line
	// merely starting with three (e.g. "----") does not close the block.
	search := 0
	for {
		idx := strings.Index(rest[search:], "\n"+delim)
		if idx < 0 {
			// No closing delimiter.
			return nil, content
		}
		idx += search
		end := idx + 1 + len(delim)
		if end < len(rest) && rest[end] != '\n' {
			search = idx + 1
			continue
		}

		yamlBlock := rest[:idx]
		body := ""
		if end < len(rest) {
			body = rest[end+1:]
		}

		var fm map[string]any
		if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
			// Malformed frontmatter: degrade, do not fail.
			return nil, content
		}
		if fm == nil {
			fm = map[string]any{}
		}
		return fm, body
	}
}

// extractLinks returns deduplicated wikilink targets. Display text after a
// pipe is discarded.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags collects the union of frontmatter tags and inline #tags from
// the body. The frontmatter field accepts either a list of values or a
// comma-separated string.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []any:
			for _, item := range v {
				add(stringify(item))
			}
		case string:
			for _, part := range strings.Split(v, ",") {
				add(part)
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}

// deriveTitle returns the frontmatter title if present, else the first
// first-level heading, else DefaultTitle.
func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if v, ok := fm["title"]; ok {
			if s := strings.TrimSpace(stringify(v)); s != "" {
				return s
			}
		}
	}
	if m := h1Re.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return DefaultTitle
}

// stringify renders a scalar frontmatter value the way it appeared, without
// YAML re-encoding. YAML resolves bare dates to time.Time, so those are
// formatted back to their date form.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		if s.Hour() == 0 && s.Minute() == 0 && s.Second() == 0 {
			return s.Format("2006-01-02")
		}
		return s.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

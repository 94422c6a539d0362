// Package blob defines the vault blob-store abstraction: raw notes live here
// alongside every generated artifact.
package blob

// Reserved key prefixes. Generated artifacts live under AgentPrefix; both
// prefixes are excluded from pipeline processing so the system never ingests
// its own output.
const (
	AgentPrefix    = "_agent/"
	ObsidianPrefix = ".obsidian/"

	SummariesPrefix        = AgentPrefix + "summaries/"
	WeeklyReportsPrefix    = AgentPrefix + "reports/weekly/"
	EntitiesPrefix         = AgentPrefix + "entities/"
	ClassificationIndexKey = AgentPrefix + "classifications/index.md"
)

// MarkdownContentType is the content type recorded for markdown objects.
const MarkdownContentType = "text/markdown"

// Provider is the interface for blob operations. Keys are slash-separated
// relative paths. Get on an absent key returns empty content and no error.
type Provider interface {
	// Get returns the content stored at key, or nil when the key is absent.
	Get(key string) ([]byte, error)
	// Put stores content at key with the given content type.
	Put(key string, content []byte, contentType string) error
	// Exists reports whether key holds an object.
	Exists(key string) (bool, error)
	// List returns every key under prefix (empty prefix lists all keys).
	List(prefix string) ([]string, error)
}

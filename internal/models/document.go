// Package models defines the domain types for Vellum.
package models

import "time"

// Classification is one of the fixed document category labels.
type Classification string

// Valid classification labels. ClassificationFallback is substituted when the
// text-generation collaborator returns anything outside the set.
const (
	ClassificationMeeting   Classification = "meeting"
	ClassificationIdea      Classification = "idea"
	ClassificationReference Classification = "reference"
	ClassificationJournal   Classification = "journal"
	ClassificationProject   Classification = "project"

	ClassificationFallback = ClassificationReference
)

// Classifications lists all labels in display order, used by the
// classification index and by label validation.
var Classifications = []Classification{
	ClassificationMeeting,
	ClassificationIdea,
	ClassificationReference,
	ClassificationJournal,
	ClassificationProject,
}

// Valid reports whether c is one of the fixed labels.
func (c Classification) Valid() bool {
	for _, known := range Classifications {
		if c == known {
			return true
		}
	}
	return false
}

// EntityType categorises a named entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityConcept      EntityType = "concept"
	EntityLocation     EntityType = "location"
)

// EntityTypes lists all entity types in a stable order.
var EntityTypes = []EntityType{
	EntityPerson,
	EntityOrganization,
	EntityConcept,
	EntityLocation,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Entities maps an entity type to the entity names found in a document.
type Entities map[EntityType][]string

// Metadata is the output of the markdown extractor: everything that can be
// derived from raw note content without any collaborator.
type Metadata struct {
	Title          string
	Tags           []string
	LinksTo        []string
	HasFrontmatter bool
	// Date, Created and Modified carry the raw frontmatter values, if any,
	// stringified without interpretation.
	Date     string
	Created  string
	Modified string
	// Extra holds all non-reserved frontmatter fields verbatim.
	Extra map[string]any
}

// Document is the full index record for a note. Path is the only stable
// identity; every other field may still be absent until the pipeline stage
// that produces it has run.
type Document struct {
	Path           string         `json:"path"`
	Title          string         `json:"title"`
	Tags           []string       `json:"tags,omitempty"`
	LinksTo        []string       `json:"links_to,omitempty"`
	HasFrontmatter bool           `json:"has_frontmatter"`
	Classification Classification `json:"classification,omitempty"`
	Entities       Entities       `json:"entities,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
	Checksum       string         `json:"checksum,omitempty"`
	Created        time.Time      `json:"created"`
	Modified       time.Time      `json:"modified"`
}

// Mention is one occurrence of an entity in a document.
type Mention struct {
	Path    string `json:"path"`
	Context string `json:"context"`
}

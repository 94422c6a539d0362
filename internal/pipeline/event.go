package pipeline

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/marbeck/vellum/internal/blob"
)

// markdownSuffix is the only file extension the pipeline processes.
const markdownSuffix = ".md"

// Event is an inbound document-change notification: the container holding
// the document and its object key.
type Event struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Validate checks the event carries both required fields.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Bucket, validation.Required),
		validation.Field(&e.Key, validation.Required),
	)
}

// SkipReason returns a non-empty human-readable reason when key is outside
// the pipeline's scope: wrong extension or a reserved system prefix.
func SkipReason(key string) string {
	if !strings.HasSuffix(key, markdownSuffix) {
		return "not a markdown file"
	}
	if strings.HasPrefix(key, blob.AgentPrefix) || strings.Contains(key, "/"+blob.AgentPrefix) {
		return "generated artifact"
	}
	if strings.HasPrefix(key, blob.ObsidianPrefix) || strings.Contains(key, "/"+blob.ObsidianPrefix) {
		return "editor internals"
	}
	return ""
}

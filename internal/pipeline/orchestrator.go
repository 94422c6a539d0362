// Package pipeline sequences the processing stages for inbound document
// events: filtering, metadata extraction, classification, and entity
// extraction. Stages are independently invocable and idempotent; each reads
// content fresh and partially updates the shared index record, and a failure
// in one stage never rolls back another's writes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marbeck/vellum/internal/apperr"
	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/checksum"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/materialize"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/parser"
	"github.com/marbeck/vellum/internal/textgen"
)

// Trigger requests an asynchronous classification index rebuild. Delivery is
// at-least-once and unordered; a rebuild may observe index state older or
// newer than the classification that triggered it.
type Trigger interface {
	RebuildClassificationIndex(label models.Classification, path string)
}

// Notifier is called after each successful stage write, with the stage name
// and document path.
type Notifier func(stage, path string)

// Result reports a stage outcome.
type Result struct {
	Path    string `json:"path"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Orchestrator wires the collaborators for every pipeline stage.
type Orchestrator struct {
	blobs       blob.Provider
	idx         index.Index
	gen         textgen.Generator
	trigger     Trigger
	entityPages *materialize.EntityPages
	notify      Notifier

	Clock func() time.Time
}

// New creates an orchestrator. trigger and notify may be nil.
func New(
	blobs blob.Provider,
	idx index.Index,
	gen textgen.Generator,
	trigger Trigger,
	entityPages *materialize.EntityPages,
	notify Notifier,
) *Orchestrator {
	return &Orchestrator{
		blobs:       blobs,
		idx:         idx,
		gen:         gen,
		trigger:     trigger,
		entityPages: entityPages,
		notify:      notify,
		Clock:       time.Now,
	}
}

// fetch validates the event, applies scope filtering, and reads the
// document content. A nil content with a populated Result means the stage
// should no-op successfully.
func (o *Orchestrator) fetch(ev Event) ([]byte, *Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if reason := SkipReason(ev.Key); reason != "" {
		return nil, &Result{Path: ev.Key, Skipped: true, Reason: reason}, nil
	}
	content, err := o.blobs.Get(ev.Key)
	if err != nil {
		return nil, nil, apperr.Upstream("blob get", err)
	}
	if len(content) == 0 {
		return nil, &Result{Path: ev.Key, Skipped: true, Reason: "empty document"}, nil
	}
	return content, nil, nil
}

// ExtractMetadata runs the source-of-truth extraction stage: parse the note
// and persist the document record plus its tag memberships. Redelivery of
// unchanged content is detected by checksum and skipped.
func (o *Orchestrator) ExtractMetadata(_ context.Context, ev Event) (*Result, error) {
	content, skip, err := o.fetch(ev)
	if err != nil || skip != nil {
		return skip, err
	}

	stored, err := o.idx.GetChecksum(ev.Key)
	if err != nil {
		return nil, apperr.Upstream("index get checksum", err)
	}
	if checksum.Matches(content, stored) {
		return &Result{Path: ev.Key, Skipped: true, Reason: "content unchanged"}, nil
	}
	sum := checksum.Sum(content)

	res := parser.Extract(content)
	if err := o.idx.PutDocument(ev.Key, res.Metadata, sum, o.Clock()); err != nil {
		return nil, apperr.Upstream("index put document", err)
	}

	slog.Info("pipeline: metadata stored",
		slog.String("path", ev.Key),
		slog.String("title", res.Metadata.Title),
		slog.Int("tags", len(res.Metadata.Tags)),
		slog.Int("links", len(res.Metadata.LinksTo)))
	o.notifyStage("metadata", ev.Key)
	return &Result{Path: ev.Key}, nil
}

// Classify runs the classification stage: ask the text-generation
// collaborator for a label, merge it into the document record, and fan out
// an index rebuild trigger.
func (o *Orchestrator) Classify(ctx context.Context, ev Event) (*Result, error) {
	content, skip, err := o.fetch(ev)
	if err != nil || skip != nil {
		return skip, err
	}

	label, err := o.gen.Classify(ctx, string(content))
	if err != nil {
		return nil, apperr.Upstream("classify", err)
	}
	if err := o.idx.UpdateClassification(ev.Key, label, o.Clock()); err != nil {
		return nil, apperr.Upstream("index update classification", err)
	}

	slog.Info("pipeline: classified",
		slog.String("path", ev.Key), slog.String("label", string(label)))
	if o.trigger != nil {
		o.trigger.RebuildClassificationIndex(label, ev.Key)
	}
	o.notifyStage("classification", ev.Key)
	return &Result{Path: ev.Key}, nil
}

// ExtractEntities runs the entity extraction stage: ask the collaborator for
// named entities, merge them into the document record with per-entity
// membership fan-out, and rebuild the affected entity pages.
func (o *Orchestrator) ExtractEntities(ctx context.Context, ev Event) (*Result, error) {
	content, skip, err := o.fetch(ev)
	if err != nil || skip != nil {
		return skip, err
	}

	entities, err := o.gen.ExtractEntities(ctx, string(content))
	if err != nil {
		return nil, apperr.Upstream("extract entities", err)
	}
	if err := o.idx.StoreEntities(ev.Key, entities, o.Clock()); err != nil {
		return nil, apperr.Upstream("index store entities", err)
	}

	pages := 0
	for typ, names := range entities {
		for _, name := range names {
			if _, err := o.entityPages.Rebuild(typ, name); err != nil {
				slog.Warn("pipeline: entity page rebuild failed",
					slog.String("entity", string(typ)+"/"+name),
					slog.String("error", err.Error()))
				continue
			}
			pages++
		}
	}

	slog.Info("pipeline: entities stored",
		slog.String("path", ev.Key), slog.Int("entity_pages", pages))
	o.notifyStage("entities", ev.Key)
	return &Result{Path: ev.Key}, nil
}

// Stages selects which optional stages Process runs after metadata
// extraction.
type Stages struct {
	Classify bool
	Entities bool
}

// Process runs the stage sequence for one event. Used by the vault watcher,
// where every stage fires from a single local invocation; the HTTP surface
// instead exposes each stage as its own endpoint.
func (o *Orchestrator) Process(ctx context.Context, ev Event, stages Stages) (*Result, error) {
	res, err := o.ExtractMetadata(ctx, ev)
	if err != nil || (res != nil && res.Skipped) {
		return res, err
	}
	if stages.Classify {
		if _, err := o.Classify(ctx, ev); err != nil {
			return nil, err
		}
	}
	if stages.Entities {
		if _, err := o.ExtractEntities(ctx, ev); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (o *Orchestrator) notifyStage(stage, path string) {
	if o.notify != nil {
		o.notify(stage, path)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marbeck/vellum/internal/apperr"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/materialize"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/pipeline"
	"github.com/marbeck/vellum/internal/rollup"
)

const defaultQueryLimit = 100

// Handler carries the collaborators the HTTP surface drives.
type Handler struct {
	orch       *pipeline.Orchestrator
	rollups    *rollup.Generator
	classIndex *materialize.ClassificationIndex
	idx        index.Index
}

// NewHandler creates an API handler.
func NewHandler(orch *pipeline.Orchestrator, rollups *rollup.Generator, classIndex *materialize.ClassificationIndex, idx index.Index) *Handler {
	return &Handler{orch: orch, rollups: rollups, classIndex: classIndex, idx: idx}
}

type stageFunc func(r *http.Request, ev pipeline.Event) (*pipeline.Result, error)

// runStage decodes and validates the event body, invokes the stage, and
// maps the outcome: 400 for validation failures, 200 for skips, 202 for
// accepted work, 502 for collaborator failures.
func (h *Handler) runStage(w http.ResponseWriter, r *http.Request, stage stageFunc) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := stage(r, pipeline.Event{Bucket: req.Bucket, Key: req.Key})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}

	status := http.StatusAccepted
	if res.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, status, StageResponse{Path: res.Path, Skipped: res.Skipped, Reason: res.Reason})
}

// IngestEvent handles POST /events (metadata extraction stage).
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	h.runStage(w, r, func(r *http.Request, ev pipeline.Event) (*pipeline.Result, error) {
		return h.orch.ExtractMetadata(r.Context(), ev)
	})
}

// ClassifyDocument handles POST /classify.
func (h *Handler) ClassifyDocument(w http.ResponseWriter, r *http.Request) {
	h.runStage(w, r, func(r *http.Request, ev pipeline.Event) (*pipeline.Result, error) {
		return h.orch.Classify(r.Context(), ev)
	})
}

// ExtractEntities handles POST /entities.
func (h *Handler) ExtractEntities(w http.ResponseWriter, r *http.Request) {
	h.runStage(w, r, func(r *http.Request, ev pipeline.Event) (*pipeline.Result, error) {
		return h.orch.ExtractEntities(r.Context(), ev)
	})
}

type rollupFunc func(r *http.Request, date time.Time) (string, error)

func (h *Handler) runRollup(w http.ResponseWriter, r *http.Request, fallback time.Time, run rollupFunc) {
	var req RollupRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}

	key, err := run(r, parseDate(req.Date, fallback))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ArtifactResponse{Key: key})
}

// DailyRollup handles POST /rollups/daily. Without an explicit date it
// targets yesterday, matching the schedule that runs after the day closes.
func (h *Handler) DailyRollup(w http.ResponseWriter, r *http.Request) {
	h.runRollup(w, r, time.Now().UTC().AddDate(0, 0, -1), func(r *http.Request, date time.Time) (string, error) {
		return h.rollups.Daily(r.Context(), date)
	})
}

// WeeklyRollup handles POST /rollups/weekly. Without an explicit date it
// targets the previous week.
func (h *Handler) WeeklyRollup(w http.ResponseWriter, r *http.Request) {
	h.runRollup(w, r, time.Now().UTC().AddDate(0, 0, -7), func(r *http.Request, date time.Time) (string, error) {
		return h.rollups.Weekly(r.Context(), date)
	})
}

// RebuildClassificationIndex handles POST /index/classifications.
func (h *Handler) RebuildClassificationIndex(w http.ResponseWriter, r *http.Request) {
	key, err := h.classIndex.Rebuild()
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ArtifactResponse{Key: key})
}

// ListDocuments handles GET /documents?tag=|classification=|limit=.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := defaultQueryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	if tag := r.URL.Query().Get("tag"); tag != "" {
		paths, err := h.idx.ByTag(tag, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, PathListResponse{Paths: orEmpty(paths), Total: len(paths)})
		return
	}

	if label := r.URL.Query().Get("classification"); label != "" {
		classification := models.Classification(label)
		if !classification.Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown classification: "+label))
			return
		}
		docs, err := h.idx.ByClassification(classification, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, DocumentListResponse{Documents: orEmptyDocs(docs), Total: len(docs)})
		return
	}

	writeJSON(w, http.StatusBadRequest, errorBody("tag or classification query parameter required"))
}

// GetDocument handles GET /documents/*.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("document path required"))
		return
	}
	doc, err := h.idx.GetDocument(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, errorBody("document not found: "+path))
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{Document: doc})
}

// EntityMentions handles GET /entities/{type}/{name}.
func (h *Handler) EntityMentions(w http.ResponseWriter, r *http.Request) {
	typ := models.EntityType(chi.URLParam(r, "type"))
	if !typ.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type: "+string(typ)))
		return
	}
	name := chi.URLParam(r, "name")

	paths, err := h.idx.EntityMentions(typ, name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, PathListResponse{Paths: orEmpty(paths), Total: len(paths)})
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyDocs(d []models.Document) []models.Document {
	if d == nil {
		return []models.Document{}
	}
	return d
}

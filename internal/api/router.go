package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events/stream inside the auth
// group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pipeline stage triggers.
	r.Post("/events", h.IngestEvent)
	r.Post("/classify", h.ClassifyDocument)
	r.Post("/entities", h.ExtractEntities)

	// Rollups and materializer triggers.
	r.Post("/rollups/daily", h.DailyRollup)
	r.Post("/rollups/weekly", h.WeeklyRollup)
	r.Post("/index/classifications", h.RebuildClassificationIndex)

	// Index queries.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)
	r.Get("/entities/{type}/{name}", h.EntityMentions)

	// SSE activity stream (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events/stream", sseHandler.ServeHTTP)
	}

	return r
}

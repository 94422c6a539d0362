package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/marbeck/vellum/internal/models"
)

// EventRequest is the request body for the per-stage document event
// endpoints.
type EventRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Validate checks the event request carries both identifiers.
func (r EventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Bucket, validation.Required),
		validation.Field(&r.Key, validation.Required),
	)
}

// RollupRequest is the request body for rollup generation. Date is optional;
// when absent the daily rollup targets yesterday and the weekly rollup the
// previous week.
type RollupRequest struct {
	Date string `json:"date,omitempty"`
}

// Validate checks Date, when present, is an ISO date.
func (r RollupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Date("2006-01-02")),
	)
}

// StageResponse reports a pipeline stage outcome.
type StageResponse struct {
	Path    string `json:"path"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// ArtifactResponse reports a generated artifact location. Key is empty when
// the generator was a no-op.
type ArtifactResponse struct {
	Key string `json:"key,omitempty"`
}

// DocumentListResponse wraps index query results.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
}

// PathListResponse wraps path-only query results.
type PathListResponse struct {
	Paths []string `json:"paths"`
	Total int      `json:"total"`
}

// DocumentResponse wraps a single document record.
type DocumentResponse struct {
	Document *models.Document `json:"document"`
}

// parseDate returns the target time for a rollup request, defaulting to
// fallback when no date was supplied.
func parseDate(date string, fallback time.Time) time.Time {
	if date == "" {
		return fallback
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fallback
	}
	return t
}

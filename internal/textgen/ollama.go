package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/marbeck/vellum/internal/models"
)

// Client communicates with an Ollama-compatible generation endpoint over
// HTTP and implements Generator.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Verify Client satisfies Generator at compile time.
var _ Generator = (*Client)(nil)

// NewClient creates a Client targeting the given base URL and model.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate performs one non-streaming completion call.
func (c *Client) generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("textgen: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("textgen: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("textgen: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("textgen: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("textgen: decode response: %w", err)
	}
	return out.Response, nil
}

// Classify returns one of the fixed labels for the document. Output outside
// the set is replaced with the fallback label, never propagated raw.
func (c *Client) Classify(ctx context.Context, content string) (models.Classification, error) {
	raw, err := c.generate(ctx, buildClassifyPrompt(content), 10, 0.0)
	if err != nil {
		return "", err
	}
	return NormalizeLabel(raw), nil
}

// ExtractEntities returns the document's named entities by category. Missing
// categories are backfilled empty; malformed JSON degrades to all-empty.
func (c *Client) ExtractEntities(ctx context.Context, content string) (models.Entities, error) {
	raw, err := c.generate(ctx, buildEntitiesPrompt(content), 500, 0.0)
	if err != nil {
		return nil, err
	}
	return ParseEntities(raw), nil
}

// Summarize produces a digest of the given documents.
func (c *Client) Summarize(ctx context.Context, docs []SourceDocument) (string, error) {
	return c.generate(ctx, buildSummarizePrompt(docs), 1000, 0.7)
}

// WeeklyReport produces a review of the week's activity.
func (c *Client) WeeklyReport(ctx context.Context, data WeekData) (string, error) {
	return c.generate(ctx, buildWeeklyReportPrompt(data), 2048, 0.7)
}

// NormalizeLabel trims, lowercases, and validates raw model output against
// the fixed label set, substituting the fallback on anything else.
func NormalizeLabel(raw string) models.Classification {
	label := models.Classification(strings.ToLower(strings.TrimSpace(raw)))
	if label.Valid() {
		return label
	}
	slog.Warn("textgen: invalid classification label, using fallback",
		slog.String("label", string(label)),
		slog.String("fallback", string(models.ClassificationFallback)))
	return models.ClassificationFallback
}

// entityPayload mirrors the JSON shape the model is asked to produce.
type entityPayload struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Concepts      []string `json:"concepts"`
	Locations     []string `json:"locations"`
}

// ParseEntities decodes raw model output into the entity map. Every category
// is always present; a parse failure yields all-empty categories.
func ParseEntities(raw string) models.Entities {
	var payload entityPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		slog.Warn("textgen: malformed entities output, substituting empty",
			slog.String("error", err.Error()))
		payload = entityPayload{}
	}
	return models.Entities{
		models.EntityPerson:       emptyIfNil(payload.People),
		models.EntityOrganization: emptyIfNil(payload.Organizations),
		models.EntityConcept:      emptyIfNil(payload.Concepts),
		models.EntityLocation:     emptyIfNil(payload.Locations),
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

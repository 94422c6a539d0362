package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/materialize"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/pipeline"
	"github.com/marbeck/vellum/internal/rollup"
	"github.com/marbeck/vellum/internal/testutil"
)

// testEnv sets up a temp vault, SQLite index, orchestrator, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string, gen *testutil.StubGenerator) (blob.Provider, http.Handler) {
	t.Helper()

	db := testutil.TestDB(t)
	_, blobs := testutil.TestVault(t)
	if gen == nil {
		gen = &testutil.StubGenerator{}
	}

	pages := materialize.NewEntityPages(db, blobs)
	classIndex := materialize.NewClassificationIndex(db, blobs)
	orch := pipeline.New(blobs, db, gen, nil, pages, nil)
	rollups := rollup.New(db, blobs, gen)

	h := NewHandler(orch, rollups, classIndex, db)
	router := NewRouter(h, authToken != "", authToken, nil)
	return blobs, router
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngestEvent_Accepted(t *testing.T) {
	blobs, router := testEnv(t, "", nil)
	if err := blobs.Put("notes/a.md", []byte("# A\nBody #work\n"), blob.MarkdownContentType); err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, router, "/events", EventRequest{Bucket: "vault", Key: "notes/a.md"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp StageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Path != "notes/a.md" || resp.Skipped {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIngestEvent_SkipReturns200(t *testing.T) {
	_, router := testEnv(t, "", nil)

	w := postJSON(t, router, "/events", EventRequest{Bucket: "vault", Key: "image.png"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for skip", w.Code)
	}

	var resp StageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Skipped || resp.Reason != "not a markdown file" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIngestEvent_MissingFields(t *testing.T) {
	_, router := testEnv(t, "", nil)
	w := postJSON(t, router, "/events", EventRequest{Bucket: "vault"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIngestEvent_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestClassify_UpstreamFailureReturns502(t *testing.T) {
	gen := &testutil.StubGenerator{
		ClassifyFunc: func(_ context.Context, _ string) (models.Classification, error) {
			return "", context.DeadlineExceeded
		},
	}
	blobs, router := testEnv(t, "", gen)
	if err := blobs.Put("b.md", []byte("# B\n"), blob.MarkdownContentType); err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, router, "/classify", EventRequest{Bucket: "vault", Key: "b.md"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestDailyRollup_WithDate(t *testing.T) {
	gen := &testutil.StubGenerator{}
	blobs, router := testEnv(t, "", gen)

	// Seed a processed document inside the window, then run the rollup.
	if err := blobs.Put("d.md", []byte("# D\nBody.\n"), blob.MarkdownContentType); err != nil {
		t.Fatal(err)
	}
	w := postJSON(t, router, "/events", EventRequest{Bucket: "vault", Key: "d.md"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("seed ingest failed: %d", w.Code)
	}

	today := time.Now().UTC().Format("2006-01-02")
	w = postJSON(t, router, "/rollups/daily", RollupRequest{Date: today})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ArtifactResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Key != blob.SummariesPrefix+today+".md" {
		t.Errorf("key = %q", resp.Key)
	}
}

func TestDailyRollup_BadDate(t *testing.T) {
	_, router := testEnv(t, "", nil)
	w := postJSON(t, router, "/rollups/daily", RollupRequest{Date: "11-01-2026"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRebuildClassificationIndex(t *testing.T) {
	blobs, router := testEnv(t, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/index/classifications", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	data, err := blobs.Get(blob.ClassificationIndexKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("classification index artifact not written")
	}
}

func TestListDocuments_ByTag(t *testing.T) {
	blobs, router := testEnv(t, "", nil)
	if err := blobs.Put("t.md", []byte("# T\nHas #alpha tag.\n"), blob.MarkdownContentType); err != nil {
		t.Fatal(err)
	}
	postJSON(t, router, "/events", EventRequest{Bucket: "vault", Key: "t.md"})

	req := httptest.NewRequest(http.MethodGet, "/documents?tag=alpha", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp PathListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Paths) != 1 || resp.Paths[0] != "t.md" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListDocuments_UnknownClassification(t *testing.T) {
	_, router := testEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/documents?classification=novel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListDocuments_NoFilter(t *testing.T) {
	_, router := testEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetDocument(t *testing.T) {
	blobs, router := testEnv(t, "", nil)
	if err := blobs.Put("sub/doc.md", []byte("---\ntitle: Doc\n---\nBody.\n"), blob.MarkdownContentType); err != nil {
		t.Fatal(err)
	}
	postJSON(t, router, "/events", EventRequest{Bucket: "vault", Key: "sub/doc.md"})

	req := httptest.NewRequest(http.MethodGet, "/documents/sub/doc.md", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp DocumentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Document == nil || resp.Document.Title != "Doc" {
		t.Errorf("document = %+v", resp.Document)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	_, router := testEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/documents/none.md", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestEntityMentions_UnknownType(t *testing.T) {
	_, router := testEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/entities/animal/rex", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuth_TokenRequired(t *testing.T) {
	_, router := testEnv(t, "sekrit", nil)

	req := httptest.NewRequest(http.MethodGet, "/documents?tag=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without token", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents?tag=x", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with token", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents?tag=x", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 with wrong token", w.Code)
	}
}

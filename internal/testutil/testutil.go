// Package testutil provides shared test helpers for setting up vaults,
// databases, and canned text-generation collaborators.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/textgen"
)

// TestDB creates a temporary SQLite index that is automatically cleaned up.
func TestDB(t *testing.T) *index.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vellum-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a blob.Provider.
func TestVault(t *testing.T) (string, blob.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := blob.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// StubGenerator implements textgen.Generator with fixed responses. Tests
// override individual funcs to simulate model behavior or failures.
type StubGenerator struct {
	ClassifyFunc        func(ctx context.Context, content string) (models.Classification, error)
	ExtractEntitiesFunc func(ctx context.Context, content string) (models.Entities, error)
	SummarizeFunc       func(ctx context.Context, docs []textgen.SourceDocument) (string, error)
	WeeklyReportFunc    func(ctx context.Context, data textgen.WeekData) (string, error)
}

func (s *StubGenerator) Classify(ctx context.Context, content string) (models.Classification, error) {
	if s.ClassifyFunc != nil {
		return s.ClassifyFunc(ctx, content)
	}
	return models.ClassificationReference, nil
}

func (s *StubGenerator) ExtractEntities(ctx context.Context, content string) (models.Entities, error) {
	if s.ExtractEntitiesFunc != nil {
		return s.ExtractEntitiesFunc(ctx, content)
	}
	return models.Entities{}, nil
}

func (s *StubGenerator) Summarize(ctx context.Context, docs []textgen.SourceDocument) (string, error) {
	if s.SummarizeFunc != nil {
		return s.SummarizeFunc(ctx, docs)
	}
	return "Stub summary.", nil
}

func (s *StubGenerator) WeeklyReport(ctx context.Context, data textgen.WeekData) (string, error) {
	if s.WeeklyReportFunc != nil {
		return s.WeeklyReportFunc(ctx, data)
	}
	return "Stub weekly report.", nil
}

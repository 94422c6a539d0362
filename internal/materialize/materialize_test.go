package materialize

import (
	"strings"
	"testing"
	"time"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/testutil"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
}

func TestEntityPages_Rebuild(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestVault(t)
	mod := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)

	if err := db.PutDocument("notes/meeting.md", models.Metadata{Title: "Meeting"}, "c", mod); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreEntities("notes/meeting.md", models.Entities{models.EntityPerson: {"John Smith"}}, mod); err != nil {
		t.Fatal(err)
	}

	m := NewEntityPages(db, blobs)
	m.Clock = fixedClock

	key, err := m.Rebuild(models.EntityPerson, "John Smith")
	if err != nil {
		t.Fatal(err)
	}
	if key != "_agent/entities/person/john-smith.md" {
		t.Errorf("key = %q", key)
	}

	data, err := blobs.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "# John Smith") {
		t.Errorf("missing heading:\n%s", out)
	}
	if !strings.Contains(out, "- [[notes/meeting.md]] - Mentioned in notes/meeting.md") {
		t.Errorf("missing mention bullet:\n%s", out)
	}
}

func TestEntityPages_RebuildIdempotent(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestVault(t)
	mod := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)

	if err := db.PutDocument("a.md", models.Metadata{Title: "A"}, "c", mod); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreEntities("a.md", models.Entities{models.EntityConcept: {"GraphQL"}}, mod); err != nil {
		t.Fatal(err)
	}

	m := NewEntityPages(db, blobs)
	m.Clock = fixedClock

	key, err := m.Rebuild(models.EntityConcept, "GraphQL")
	if err != nil {
		t.Fatal(err)
	}
	first, err := blobs.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Rebuild(models.EntityConcept, "GraphQL"); err != nil {
		t.Fatal(err)
	}
	second, err := blobs.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("rebuild against unchanged state must be byte-identical")
	}
}

func TestEntityPages_UnsanitizableNameFallback(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestVault(t)
	mod := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)

	if err := db.PutDocument("n.md", models.Metadata{Title: "N"}, "c", mod); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreEntities("n.md", models.Entities{models.EntityConcept: {"!!!"}}, mod); err != nil {
		t.Fatal(err)
	}

	m := NewEntityPages(db, blobs)
	m.Clock = fixedClock

	key, err := m.Rebuild(models.EntityConcept, "!!!")
	if err != nil {
		t.Fatal(err)
	}
	// A name with no filename-safe characters must not produce the hidden
	// key "concept/.md".
	if key != "_agent/entities/concept/unnamed.md" {
		t.Errorf("key = %q", key)
	}
	data, err := blobs.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("entity page not written")
	}
}

func TestClassificationIndex_Rebuild(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestVault(t)
	mod := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)

	for path, label := range map[string]models.Classification{
		"m.md": models.ClassificationMeeting,
		"i.md": models.ClassificationIdea,
	} {
		if err := db.PutDocument(path, models.Metadata{Title: path}, "c", mod); err != nil {
			t.Fatal(err)
		}
		if err := db.UpdateClassification(path, label, mod); err != nil {
			t.Fatal(err)
		}
	}

	m := NewClassificationIndex(db, blobs)
	m.Clock = fixedClock

	key, err := m.Rebuild()
	if err != nil {
		t.Fatal(err)
	}
	if key != blob.ClassificationIndexKey {
		t.Errorf("key = %q, want %q", key, blob.ClassificationIndexKey)
	}

	data, err := blobs.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "## Meeting") || !strings.Contains(out, "## Idea") {
		t.Errorf("missing sections:\n%s", out)
	}
	if strings.Contains(out, "## Project") {
		t.Errorf("empty label should have no section:\n%s", out)
	}
}

func TestClassificationIndex_RebuildIdempotent(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestVault(t)
	mod := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)

	if err := db.PutDocument("x.md", models.Metadata{Title: "X"}, "c", mod); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateClassification("x.md", models.ClassificationProject, mod); err != nil {
		t.Fatal(err)
	}

	m := NewClassificationIndex(db, blobs)
	m.Clock = fixedClock

	if _, err := m.Rebuild(); err != nil {
		t.Fatal(err)
	}
	first, err := blobs.Get(blob.ClassificationIndexKey)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Rebuild(); err != nil {
		t.Fatal(err)
	}
	second, err := blobs.Get(blob.ClassificationIndexKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("rebuild against unchanged state must be byte-identical")
	}
}

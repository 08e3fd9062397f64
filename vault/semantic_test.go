package vault

import (
	"context"
	"testing"

	"github.com/sagevault/sage/model"
)

func newTestIndex(t *testing.T) *SemanticIndex {
	t.Helper()
	idx, err := NewSemanticIndexInMemory(NewLocalEmbedding())
	if err != nil {
		t.Fatalf("NewSemanticIndexInMemory failed: %v", err)
	}
	return idx
}

func TestSemanticIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	notes := []model.Note{
		{ID: "n1", Title: "Go Concurrency", Content: "goroutines channels select concurrency patterns"},
		{ID: "n2", Title: "Sourdough Baking", Content: "flour water starter fermentation oven"},
	}
	for _, n := range notes {
		if err := idx.IndexNote(ctx, n); err != nil {
			t.Fatalf("IndexNote failed: %v", err)
		}
	}

	if idx.Count() != 2 {
		t.Fatalf("expected 2 indexed notes, got %d", idx.Count())
	}

	hits, err := idx.Search(ctx, "concurrency patterns with goroutines", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].NoteID != "n1" {
		t.Errorf("expected concurrency note first, got %q (%q)", hits[0].NoteID, hits[0].Title)
	}
	if hits[0].Title != "Go Concurrency" {
		t.Errorf("expected title from metadata, got %q", hits[0].Title)
	}
}

func TestSemanticSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestSemanticSearchLimitCappedToCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	note := model.Note{ID: "only", Title: "Single", Content: "the only note"}
	if err := idx.IndexNote(ctx, note); err != nil {
		t.Fatalf("IndexNote failed: %v", err)
	}

	// limit above the collection size must not error
	hits, err := idx.Search(ctx, "only note", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}
}

func TestSemanticReindexReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	note := model.Note{ID: "n1", Title: "Draft", Content: "original text"}
	if err := idx.IndexNote(ctx, note); err != nil {
		t.Fatalf("IndexNote failed: %v", err)
	}
	note.Content = "revised text"
	if err := idx.IndexNote(ctx, note); err != nil {
		t.Fatalf("re-index failed: %v", err)
	}

	if idx.Count() != 1 {
		t.Errorf("re-indexing the same ID should not grow the index, got %d", idx.Count())
	}
}

func TestSemanticRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	note := model.Note{ID: "n1", Title: "Temp", Content: "temporary"}
	if err := idx.IndexNote(ctx, note); err != nil {
		t.Fatalf("IndexNote failed: %v", err)
	}
	if err := idx.Remove(ctx, "n1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if idx.Count() != 0 {
		t.Errorf("expected empty index after remove, got %d", idx.Count())
	}
}

func TestLocalEmbeddingDeterministic(t *testing.T) {
	embed := NewLocalEmbedding()
	ctx := context.Background()

	a, err := embed(ctx, "stable input text")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	b, err := embed(ctx, "stable input text")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if len(a) != localEmbedDim {
		t.Fatalf("expected %d dims, got %d", localEmbedDim, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLocalEmbeddingEmptyText(t *testing.T) {
	embed := NewLocalEmbedding()

	vec, err := embed(context.Background(), "")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		t.Error("empty text must still produce a non-zero vector")
	}
}

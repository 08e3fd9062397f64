package vault

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/sagevault/sage/model"
)

const semanticCollection = "notes"

// SemanticIndex stores note embeddings and answers similarity queries.
// The embedding function is pluggable so callers can choose between a
// remote embedding API and the local deterministic embedder.
type SemanticIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// OpenSemanticIndex opens a persistent embedding index at the given path.
func OpenSemanticIndex(path string, embed chromem.EmbeddingFunc) (*SemanticIndex, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open semantic index: %w", err)
	}
	return newSemanticIndex(db, embed)
}

// NewSemanticIndexInMemory creates a non-persistent index (useful for testing).
func NewSemanticIndexInMemory(embed chromem.EmbeddingFunc) (*SemanticIndex, error) {
	return newSemanticIndex(chromem.NewDB(), embed)
}

func newSemanticIndex(db *chromem.DB, embed chromem.EmbeddingFunc) (*SemanticIndex, error) {
	collection, err := db.GetOrCreateCollection(semanticCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &SemanticIndex{db: db, collection: collection}, nil
}

// IndexNote adds or replaces a note's embedding. Title and content are
// embedded together so title-only queries still match.
func (s *SemanticIndex) IndexNote(ctx context.Context, note model.Note) error {
	doc := chromem.Document{
		ID:      note.ID,
		Content: note.Title + "\n\n" + note.Content,
		Metadata: map[string]string{
			"title": note.Title,
		},
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("failed to index note %q: %w", note.Title, err)
	}
	return nil
}

// Remove deletes a note's embedding from the index.
func (s *SemanticIndex) Remove(ctx context.Context, id string) error {
	if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to remove note from index: %w", err)
	}
	return nil
}

// Count reports the number of indexed notes.
func (s *SemanticIndex) Count() int {
	return s.collection.Count()
}

// Search returns the most similar notes to the query. Scores are cosine
// similarity as reported by the underlying index.
func (s *SemanticIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	count := s.collection.Count()
	if count == 0 {
		return []Hit{}, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			NoteID: r.ID,
			Title:  r.Metadata["title"],
			Score:  float64(r.Similarity),
		})
	}
	return hits, nil
}

// Package vault provides the note-vault collaborator: note CRUD plus the
// three evidence sources (keyword, semantic, graph) consumed by the
// retrieval engine.
//
// Information Hiding:
// - SQLite schema and link-table maintenance hidden
// - Vector index implementation hidden behind SemanticIndex
// - Scoring formulas internal to each source
package vault

import (
	"context"
	"errors"

	"github.com/sagevault/sage/model"
)

// ErrNoteNotFound is returned when a requested note does not exist.
var ErrNoteNotFound = errors.New("note not found")

// Hit is one scored match from a single source. Scores are in [0,1].
type Hit struct {
	NoteID string
	Title  string
	Score  float64
}

// Vault is the interface tools and the CLI consume.
type Vault interface {
	// SaveNote upserts a note and refreshes its outgoing links.
	SaveNote(ctx context.Context, note model.Note) error

	// GetNote fetches a note by ID. Returns ErrNoteNotFound when missing.
	GetNote(ctx context.Context, id string) (*model.Note, error)

	// GetNoteByTitle fetches a note by exact title (case-insensitive).
	GetNoteByTitle(ctx context.Context, title string) (*model.Note, error)

	// ListNotes returns all notes ordered by most recently updated.
	ListNotes(ctx context.Context, limit int) ([]model.Note, error)

	// DeleteNote removes a note and its links.
	DeleteNote(ctx context.Context, id string) error

	// SearchKeyword scores notes by query-term overlap.
	SearchKeyword(ctx context.Context, query string, limit int) ([]Hit, error)

	// SearchGraph walks the wiki-link graph outward from notes whose
	// titles match the query, scores decaying with hop distance.
	SearchGraph(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Vault-backed tools: note search, reading, and writing.

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sagevault/sage/internal/jsonutil"
	"github.com/sagevault/sage/model"
	"github.com/sagevault/sage/retrieval"
	"github.com/sagevault/sage/vault"
)

// SearchNotesTool runs the retrieval engine over the vault.
type SearchNotesTool struct {
	BaseTool
	engine *retrieval.Engine
}

// NewSearchNotesTool wires the retrieval engine into a tool.
func NewSearchNotesTool(engine *retrieval.Engine) *SearchNotesTool {
	return &SearchNotesTool{engine: engine}
}

func (t *SearchNotesTool) Metadata() Metadata {
	return Metadata{
		Name:        "search_notes",
		Description: "Search the note vault for notes relevant to a query. Returns titles and relevance scores.",
		Parameters: []Parameter{
			{Name: "query", ParamType: "string", Description: "What to search for", Required: true},
		},
	}
}

func (t *SearchNotesTool) Validate(input string) error {
	if strings.TrimSpace(extractQuery(input)) == "" {
		return fmt.Errorf("query must not be empty")
	}
	return nil
}

func (t *SearchNotesTool) Execute(ctx context.Context, input string) Result {
	query := extractQuery(input)

	results, md, err := t.engine.Retrieve(ctx, query)
	if err != nil {
		return Failuref(ErrInternal, "search failed: %v", err)
	}

	if len(results) == 0 {
		return OK(fmt.Sprintf("No results found for %q.", query))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes (strategy %s", len(results), md.Strategy)
	if md.FallbackTriggered {
		fmt.Fprintf(&b, ", fallback after %s", md.FallbackReason)
	}
	b.WriteString("):\n")
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = r.ID
		}
		fmt.Fprintf(&b, "- %s (score %.2f)\n", title, r.Score)
	}
	return OK(strings.TrimRight(b.String(), "\n"))
}

// extractQuery accepts either a bare query string or {"query": "..."}.
func extractQuery(input string) string {
	var payload struct {
		Query string `json:"query"`
	}
	if err := jsonutil.Unmarshal(input, &payload); err == nil && payload.Query != "" {
		return payload.Query
	}
	return strings.TrimSpace(input)
}

// ReadNoteTool fetches a single note by title.
type ReadNoteTool struct {
	BaseTool
	vault vault.Vault
}

func NewReadNoteTool(v vault.Vault) *ReadNoteTool {
	return &ReadNoteTool{vault: v}
}

func (t *ReadNoteTool) Metadata() Metadata {
	return Metadata{
		Name:        "read_note",
		Description: "Read the full content of a note by its title.",
		Parameters: []Parameter{
			{Name: "title", ParamType: "string", Description: "Exact note title", Required: true},
		},
	}
}

func (t *ReadNoteTool) Validate(input string) error {
	if strings.TrimSpace(extractTitle(input)) == "" {
		return fmt.Errorf("title must not be empty")
	}
	return nil
}

func (t *ReadNoteTool) Execute(ctx context.Context, input string) Result {
	title := extractTitle(input)

	note, err := t.vault.GetNoteByTitle(ctx, title)
	if errors.Is(err, vault.ErrNoteNotFound) {
		return Failuref(ErrNotFound, "note %q not found", title)
	}
	if err != nil {
		return Failuref(ErrInternal, "failed to read note %q: %v", title, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s", note.Title, note.Content)
	if len(note.Links) > 0 {
		fmt.Fprintf(&b, "\n\nLinked notes: %s", strings.Join(note.Links, ", "))
	}
	return OK(b.String())
}

func extractTitle(input string) string {
	var payload struct {
		Title string `json:"title"`
	}
	if err := jsonutil.Unmarshal(input, &payload); err == nil && payload.Title != "" {
		return payload.Title
	}
	return strings.TrimSpace(input)
}

// NoteIndexer updates the semantic index when notes change. Satisfied
// by vault.SemanticIndex; nil means semantic indexing is disabled.
type NoteIndexer interface {
	IndexNote(ctx context.Context, note model.Note) error
}

// WriteNoteTool creates or updates a note, keeping the semantic index
// in sync when one is configured.
type WriteNoteTool struct {
	BaseTool
	vault   vault.Vault
	indexer NoteIndexer
}

func NewWriteNoteTool(v vault.Vault, indexer NoteIndexer) *WriteNoteTool {
	return &WriteNoteTool{vault: v, indexer: indexer}
}

func (t *WriteNoteTool) Metadata() Metadata {
	return Metadata{
		Name:        "write_note",
		Description: "Create or update a note. Input is JSON with title and content fields.",
		Parameters: []Parameter{
			{Name: "title", ParamType: "string", Description: "Note title", Required: true},
			{Name: "content", ParamType: "string", Description: "Full note body; [[wiki links]] are tracked", Required: true},
		},
	}
}

type writeNoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (t *WriteNoteTool) Validate(input string) error {
	var payload writeNoteInput
	if err := jsonutil.Unmarshal(input, &payload); err != nil {
		return fmt.Errorf("expected JSON with title and content: %w", err)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	return nil
}

func (t *WriteNoteTool) Execute(ctx context.Context, input string) Result {
	var payload writeNoteInput
	if err := jsonutil.Unmarshal(input, &payload); err != nil {
		return Failuref(ErrInvalidInput, "expected JSON with title and content: %v", err)
	}

	note := model.Note{Title: strings.TrimSpace(payload.Title), Content: payload.Content}

	// reuse the existing ID when updating by title
	if existing, err := t.vault.GetNoteByTitle(ctx, note.Title); err == nil {
		note.ID = existing.ID
	}

	if err := t.vault.SaveNote(ctx, note); err != nil {
		return Failuref(ErrInternal, "failed to save note %q: %v", note.Title, err)
	}

	if t.indexer != nil {
		saved, err := t.vault.GetNoteByTitle(ctx, note.Title)
		if err == nil {
			if err := t.indexer.IndexNote(ctx, *saved); err != nil {
				return OK(fmt.Sprintf("Saved note %q, but semantic indexing failed: %v", note.Title, err))
			}
		}
	}

	return OK(fmt.Sprintf("Saved note %q.", note.Title))
}

var (
	_ Tool = (*SearchNotesTool)(nil)
	_ Tool = (*ReadNoteTool)(nil)
	_ Tool = (*WriteNoteTool)(nil)
)

package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sagevault/sage/memory"
	"github.com/sagevault/sage/model"
	"github.com/sagevault/sage/retrieval"
	"github.com/sagevault/sage/vault"
)

func newVault(t *testing.T) *vault.SqliteVault {
	t.Helper()
	v, err := vault.NewSqliteInMemory()
	if err != nil {
		t.Fatalf("NewSqliteInMemory failed: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func saveNote(t *testing.T, v *vault.SqliteVault, title, content string) {
	t.Helper()
	if err := v.SaveNote(context.Background(), model.Note{Title: title, Content: content}); err != nil {
		t.Fatalf("SaveNote failed: %v", err)
	}
}

func keywordEngine(t *testing.T, v *vault.SqliteVault) *retrieval.Engine {
	t.Helper()
	cfg := retrieval.DefaultConfig()
	cfg.Strategy = retrieval.KeywordOnly
	cfg.Weights = retrieval.DefaultWeights(retrieval.KeywordOnly)
	cfg.Fallback.Enabled = false
	cfg.MinScore = 0

	sources := retrieval.Sources{
		Keyword: func(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
			hits, err := v.SearchKeyword(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			results := make([]retrieval.Result, len(hits))
			for i, h := range hits {
				results[i] = retrieval.Result{ID: h.NoteID, Title: h.Title, Score: h.Score}
			}
			return results, nil
		},
	}

	e, err := retrieval.NewEngine(sources, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestSearchNotesTool(t *testing.T) {
	v := newVault(t)
	saveNote(t, v, "Go Concurrency", "goroutines and channels")
	tool := NewSearchNotesTool(keywordEngine(t, v))

	result := tool.Execute(context.Background(), "concurrency")
	if !result.IsOK() {
		t.Fatalf("expected success, got %v", result.Observation())
	}
	if !strings.Contains(result.Observation(), "Go Concurrency") {
		t.Errorf("expected matching title in observation, got %q", result.Observation())
	}
}

func TestSearchNotesToolJSONInput(t *testing.T) {
	v := newVault(t)
	saveNote(t, v, "Go Concurrency", "goroutines")
	tool := NewSearchNotesTool(keywordEngine(t, v))

	result := tool.Execute(context.Background(), `{"query": "concurrency"}`)
	if !strings.Contains(result.Observation(), "Go Concurrency") {
		t.Errorf("JSON input should work, got %q", result.Observation())
	}
}

func TestSearchNotesToolNoResults(t *testing.T) {
	v := newVault(t)
	tool := NewSearchNotesTool(keywordEngine(t, v))

	result := tool.Execute(context.Background(), "nonexistent topic")
	if !result.IsOK() {
		t.Fatalf("empty search is not an error: %v", result.Observation())
	}
	// the reasoning loop keys its steering hint off this phrasing
	if !strings.Contains(result.Observation(), "No results") {
		t.Errorf("expected 'No results' marker, got %q", result.Observation())
	}
}

func TestSearchNotesToolValidate(t *testing.T) {
	v := newVault(t)
	tool := NewSearchNotesTool(keywordEngine(t, v))

	if err := tool.Validate("  "); err == nil {
		t.Error("expected validation error for empty query")
	}
	if err := tool.Validate("valid query"); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestReadNoteTool(t *testing.T) {
	v := newVault(t)
	saveNote(t, v, "Project Plan", "Phase one. See [[Timeline]].")
	tool := NewReadNoteTool(v)

	result := tool.Execute(context.Background(), "Project Plan")
	if !result.IsOK() {
		t.Fatalf("expected success, got %v", result.Observation())
	}
	obs := result.Observation()
	if !strings.Contains(obs, "Phase one") {
		t.Errorf("expected note content, got %q", obs)
	}
	if !strings.Contains(obs, "Timeline") {
		t.Errorf("expected linked notes listed, got %q", obs)
	}
}

func TestReadNoteToolNotFound(t *testing.T) {
	v := newVault(t)
	tool := NewReadNoteTool(v)

	result := tool.Execute(context.Background(), "Missing")
	if result.IsOK() {
		t.Fatal("expected failure for missing note")
	}
	if result.Kind() != ErrNotFound {
		t.Errorf("expected not_found kind, got %q", result.Kind())
	}
	if !strings.Contains(result.Observation(), "not found") {
		t.Errorf("observation should explain the failure, got %q", result.Observation())
	}
}

func TestWriteNoteTool(t *testing.T) {
	v := newVault(t)
	tool := NewWriteNoteTool(v, nil)

	result := tool.Execute(context.Background(), `{"title": "New Idea", "content": "details"}`)
	if !result.IsOK() {
		t.Fatalf("expected success, got %v", result.Observation())
	}

	note, err := v.GetNoteByTitle(context.Background(), "New Idea")
	if err != nil {
		t.Fatalf("note was not persisted: %v", err)
	}
	if note.Content != "details" {
		t.Errorf("unexpected content %q", note.Content)
	}
}

func TestWriteNoteToolUpdatesExisting(t *testing.T) {
	v := newVault(t)
	saveNote(t, v, "Draft", "old")
	before, _ := v.GetNoteByTitle(context.Background(), "Draft")
	tool := NewWriteNoteTool(v, nil)

	result := tool.Execute(context.Background(), `{"title": "Draft", "content": "new"}`)
	if !result.IsOK() {
		t.Fatalf("expected success, got %v", result.Observation())
	}

	after, err := v.GetNoteByTitle(context.Background(), "Draft")
	if err != nil {
		t.Fatalf("GetNoteByTitle failed: %v", err)
	}
	if after.ID != before.ID {
		t.Error("updating by title must keep the note ID")
	}
	if after.Content != "new" {
		t.Errorf("content not updated: %q", after.Content)
	}
}

func TestWriteNoteToolIndexes(t *testing.T) {
	v := newVault(t)
	idx, err := vault.NewSemanticIndexInMemory(vault.NewLocalEmbedding())
	if err != nil {
		t.Fatalf("NewSemanticIndexInMemory failed: %v", err)
	}
	tool := NewWriteNoteTool(v, idx)

	result := tool.Execute(context.Background(), `{"title": "Indexed", "content": "vector me"}`)
	if !result.IsOK() {
		t.Fatalf("expected success, got %v", result.Observation())
	}
	if idx.Count() != 1 {
		t.Errorf("expected note to reach the semantic index, count=%d", idx.Count())
	}
}

func TestWriteNoteToolRejectsBadInput(t *testing.T) {
	v := newVault(t)
	tool := NewWriteNoteTool(v, nil)

	if err := tool.Validate("not json at all"); err == nil {
		t.Error("expected validation error for non-JSON input")
	}
	result := tool.Execute(context.Background(), "not json at all")
	if result.IsOK() || result.Kind() != ErrInvalidInput {
		t.Errorf("expected invalid_input failure, got %+v", result.Observation())
	}
}

func TestRememberTool(t *testing.T) {
	conv := memory.NewConversation()
	tool := NewRememberTool(conv)

	result := tool.Execute(context.Background(), `{"key": "style", "value": "bullet points"}`)
	if !result.IsOK() {
		t.Fatalf("expected success, got %v", result.Observation())
	}
	if got, ok := conv.Preference("style"); !ok || got != "bullet points" {
		t.Errorf("preference not stored, got %q ok=%v", got, ok)
	}
}

func TestRememberToolShorthand(t *testing.T) {
	conv := memory.NewConversation()
	tool := NewRememberTool(conv)

	result := tool.Execute(context.Background(), "timezone: UTC")
	if !result.IsOK() {
		t.Fatalf("expected shorthand to work, got %v", result.Observation())
	}
	if got, _ := conv.Preference("timezone"); got != "UTC" {
		t.Errorf("expected UTC, got %q", got)
	}
}

func TestRememberToolRejectsEmpty(t *testing.T) {
	conv := memory.NewConversation()
	tool := NewRememberTool(conv)

	result := tool.Execute(context.Background(), "just words")
	if result.IsOK() {
		t.Error("expected failure for input without key/value")
	}
}

func TestRegistry(t *testing.T) {
	v := newVault(t)
	reg := NewRegistry()

	if err := reg.Register(NewReadNoteTool(v)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(NewReadNoteTool(v)); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := reg.Register(NewWriteNoteTool(v, nil)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "read_note" || names[1] != "write_note" {
		t.Errorf("expected sorted names [read_note write_note], got %v", names)
	}

	if _, ok := reg.Get("read_note"); !ok {
		t.Error("expected read_note to be retrievable")
	}
	if reg.Has("search_notes") {
		t.Error("unregistered tool should not be present")
	}

	desc := reg.Description()
	if !strings.Contains(desc, "Tool: read_note") || !strings.Contains(desc, "Tool: write_note") {
		t.Errorf("description missing tools:\n%s", desc)
	}
}

func TestExecutorTimeout(t *testing.T) {
	exec := NewExecutor(20 * time.Millisecond)
	tool := &slowTool{}

	result := exec.Execute(context.Background(), tool, "input")
	if result.IsOK() || result.Kind() != ErrTimeout {
		t.Errorf("expected timeout failure, got %+v", result.Observation())
	}
}

func TestExecutorValidates(t *testing.T) {
	v := newVault(t)
	exec := NewDefaultExecutor()

	result := exec.Execute(context.Background(), NewWriteNoteTool(v, nil), "garbage")
	if result.IsOK() || result.Kind() != ErrInvalidInput {
		t.Errorf("expected invalid_input failure, got %+v", result.Observation())
	}
}

func TestExecutorContainsPanic(t *testing.T) {
	exec := NewDefaultExecutor()

	result := exec.Execute(context.Background(), &panickyTool{}, "input")
	if result.IsOK() || result.Kind() != ErrInternal {
		t.Errorf("expected internal failure, got %+v", result.Observation())
	}
}

type slowTool struct{ BaseTool }

func (slowTool) Metadata() Metadata {
	return Metadata{Name: "slow", Description: "never returns in time"}
}

func (slowTool) Execute(ctx context.Context, _ string) Result {
	<-ctx.Done()
	return Failure(ErrTimeout, "cancelled")
}

type panickyTool struct{ BaseTool }

func (panickyTool) Metadata() Metadata {
	return Metadata{Name: "panicky", Description: "always panics"}
}

func (panickyTool) Execute(context.Context, string) Result {
	panic("boom")
}

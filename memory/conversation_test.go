package memory

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAddMessageExtractsGoals(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"I want to organize my research notes", "organize my research notes"},
		{"Can you help me plan the garden project?", "plan the garden project"},
		{"My goal is to finish the thesis draft", "finish the thesis draft"},
		{"I'm working on a home automation setup", "a home automation setup"},
	}

	for _, tt := range tests {
		conv := NewConversation()
		conv.AddMessage(RoleUser, tt.content, nil)

		goals := conv.Goals()
		if len(goals) != 1 {
			t.Fatalf("%q: expected 1 goal, got %d", tt.content, len(goals))
		}
		if !strings.EqualFold(goals[0], tt.want) {
			t.Errorf("%q: expected goal %q, got %q", tt.content, tt.want, goals[0])
		}
	}
}

func TestAddMessageDiscardsShortGoals(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "I want to nap", nil)

	if len(conv.Goals()) != 0 {
		t.Errorf("expected short goal to be discarded, got %v", conv.Goals())
	}
}

func TestGoalsCappedAtFive(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 8; i++ {
		conv.AddMessage(RoleUser, fmt.Sprintf("I want to finish project number %d", i), nil)
	}

	goals := conv.Goals()
	if len(goals) != MaxGoals {
		t.Fatalf("expected %d goals, got %d", MaxGoals, len(goals))
	}
	// oldest dropped first
	if !strings.Contains(goals[0], "number 3") {
		t.Errorf("expected oldest retained goal to be number 3, got %q", goals[0])
	}
}

func TestAddMessageExtractsMentions(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, `Check [[Garden Plan]] and [[Seed Inventory]] for "companion planting" ideas`, nil)

	notes := conv.MentionedNotes()
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %v", notes)
	}
	if notes[0] != "Garden Plan" || notes[1] != "Seed Inventory" {
		t.Errorf("unexpected notes: %v", notes)
	}

	concepts := conv.MentionedConcepts()
	if len(concepts) != 1 || concepts[0] != "companion planting" {
		t.Errorf("unexpected concepts: %v", concepts)
	}
}

func TestShortQuotedStringsIgnored(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, `The flag "on" and the topic "knowledge graphs" came up`, nil)

	concepts := conv.MentionedConcepts()
	if len(concepts) != 1 || concepts[0] != "knowledge graphs" {
		t.Errorf("expected only the long concept, got %v", concepts)
	}
}

func TestQuestionsOnlyFromUserTurns(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleAgent, "Should I search the vault for that?", nil)

	if len(conv.UnresolvedQuestions()) != 0 {
		t.Errorf("agent questions should not be tracked, got %v", conv.UnresolvedQuestions())
	}

	conv.AddMessage(RoleUser, "Where did I put the tax documents?", nil)
	if len(conv.UnresolvedQuestions()) != 1 {
		t.Fatalf("expected 1 open question, got %v", conv.UnresolvedQuestions())
	}
}

func TestShortAgentAnswerClearsQuestions(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "Where did I put the tax documents?", nil)
	conv.AddMessage(RoleAgent, "They are linked from [[Finances 2025]].", nil)

	if len(conv.UnresolvedQuestions()) != 0 {
		t.Errorf("short agent answer should clear questions, got %v", conv.UnresolvedQuestions())
	}
}

func TestLongConfidentAnswerKeepsQuestionsOpen(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "Where did I put the tax documents?", nil)

	long := strings.Repeat("Here is a long discussion of document management. ", 10)
	conv.AddMessage(RoleAgent, long, nil)

	if len(conv.UnresolvedQuestions()) != 1 {
		t.Errorf("long answer without uncertainty should keep questions, got %v", conv.UnresolvedQuestions())
	}
}

func TestUncertainAgentAnswerClearsQuestions(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "Where did I put the tax documents?", nil)

	long := strings.Repeat("padding ", 40) + "Could you clarify which year you mean?"
	conv.AddMessage(RoleAgent, long, nil)

	if len(conv.UnresolvedQuestions()) != 0 {
		t.Errorf("clarification should clear questions, got %v", conv.UnresolvedQuestions())
	}
}

func TestMessageCountPruning(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 50; i++ {
		conv.AddMessage(RoleUser, fmt.Sprintf("message %d", i), nil)
	}

	if conv.Len() != MaxMessages {
		t.Fatalf("expected %d messages, got %d", MaxMessages, conv.Len())
	}

	history := conv.History(1)
	if history[0].Content != "message 49" {
		t.Errorf("expected newest message retained, got %q", history[0].Content)
	}
}

func TestAgePruning(t *testing.T) {
	conv := NewConversation()
	current := time.Now()
	conv.now = func() time.Time { return current }

	conv.AddMessage(RoleUser, "old message", nil)

	current = current.Add(2 * time.Hour)
	conv.AddMessage(RoleUser, "new message", nil)

	if conv.Len() != 1 {
		t.Fatalf("expected stale message pruned, have %d messages", conv.Len())
	}
	if conv.History(1)[0].Content != "new message" {
		t.Errorf("wrong message survived pruning")
	}
}

func TestWasDiscussed(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, `Tell me about [[Sourdough Starter]] maintenance`, nil)

	if !conv.WasDiscussed("sourdough") {
		t.Error("expected note mention to match case-insensitively")
	}
	if !conv.WasDiscussed("maintenance") {
		t.Error("expected message content to match")
	}
	if conv.WasDiscussed("quantum chromodynamics") {
		t.Error("unexpected match")
	}
	if conv.WasDiscussed("") {
		t.Error("empty topic should never match")
	}
}

func TestContextEmptyWhenNothingAccumulated(t *testing.T) {
	conv := NewConversation()
	if got := conv.Context(); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestContextFormatting(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "I want to catalogue my record collection, see [[Vinyl]]", nil)
	conv.SetPreference("tone", "concise")

	ctx := conv.Context()
	for _, want := range []string{"Current goals:", "catalogue my record collection", "Vinyl", "tone: concise"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, `I want to organize my reading list, starting with [[Book Queue]]`, nil)
	conv.AddMessage(RoleUser, "What should I read first?", nil)
	conv.SetPreference("format", "bullet points")
	conv.SetPreference("language", "en")

	data, err := conv.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Preferences must serialize as an ordered list, not a map.
	if !strings.Contains(string(data), `"preferences":[{`) {
		t.Errorf("preferences should serialize as a list: %s", data)
	}

	restored := NewConversation()
	if err := restored.Import(data); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if restored.Len() != conv.Len() {
		t.Errorf("message count mismatch: %d vs %d", restored.Len(), conv.Len())
	}
	if got, _ := restored.Preference("format"); got != "bullet points" {
		t.Errorf("preference lost in round trip, got %q", got)
	}
	if len(restored.UnresolvedQuestions()) != 1 {
		t.Errorf("open question lost in round trip")
	}
	if !restored.WasDiscussed("Book Queue") {
		t.Errorf("mentioned note lost in round trip")
	}
}

func TestImportMalformed(t *testing.T) {
	conv := NewConversation()
	if err := conv.Import([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed snapshot")
	}
}

func TestClear(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "I want to learn woodworking properly", nil)
	conv.SetPreference("tone", "direct")
	conv.Clear()

	if conv.Len() != 0 || len(conv.Goals()) != 0 || conv.Context() != "" {
		t.Error("Clear should reset all state")
	}
}

func TestEmptyContentIsNoOp(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(RoleUser, "", nil)

	if conv.Len() != 1 {
		t.Fatalf("empty message should still append, got %d", conv.Len())
	}
	if len(conv.Goals()) != 0 || len(conv.UnresolvedQuestions()) != 0 {
		t.Error("empty content should extract nothing")
	}
}

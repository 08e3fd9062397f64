package agent

import "testing"

func TestParseReplyToolCall(t *testing.T) {
	text := "Thought: I should look this up\nAction: search_notes\nAction Input: go concurrency"
	reply := ParseReply(text)

	if reply.Tag != TagToolCall {
		t.Fatalf("expected tool_call, got %q", reply.Tag)
	}
	if reply.ToolName != "search_notes" {
		t.Errorf("expected tool name search_notes, got %q", reply.ToolName)
	}
	if reply.ToolInput != "go concurrency" {
		t.Errorf("expected input 'go concurrency', got %q", reply.ToolInput)
	}
	if reply.Thought != "I should look this up" {
		t.Errorf("unexpected thought %q", reply.Thought)
	}
}

func TestParseReplyToolCallMultilineInput(t *testing.T) {
	text := "Action: write_note\nAction Input: {\"title\": \"X\",\n\"content\": \"Y\"}"
	reply := ParseReply(text)

	if reply.Tag != TagToolCall {
		t.Fatalf("expected tool_call, got %q", reply.Tag)
	}
	if reply.ToolInput != "{\"title\": \"X\",\n\"content\": \"Y\"}" {
		t.Errorf("multiline input mangled: %q", reply.ToolInput)
	}
}

func TestParseReplyFinalAnswer(t *testing.T) {
	text := "Thought: I know enough now\nFinal Answer: Use channels for coordination."
	reply := ParseReply(text)

	if reply.Tag != TagFinal {
		t.Fatalf("expected final_candidate, got %q", reply.Tag)
	}
	if reply.Answer != "Use channels for coordination." {
		t.Errorf("unexpected answer %q", reply.Answer)
	}
}

func TestParseReplyPlainTextIsFinal(t *testing.T) {
	reply := ParseReply("Channels are the Go way to coordinate goroutines.")
	if reply.Tag != TagFinal {
		t.Fatalf("expected final_candidate, got %q", reply.Tag)
	}
	if reply.Answer != "Channels are the Go way to coordinate goroutines." {
		t.Errorf("unexpected answer %q", reply.Answer)
	}
}

func TestParseReplyMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"action without input", "Action: search_notes"},
		{"input without action", "Action Input: something"},
		{"empty action name", "Action:\nAction Input: x"},
		{"empty text", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := ParseReply(tt.text)
			if reply.Tag != TagMalformed {
				t.Errorf("expected malformed, got %q", reply.Tag)
			}
			if reply.Raw != tt.text {
				t.Errorf("raw text must be preserved, got %q", reply.Raw)
			}
		})
	}
}

func TestParseReplyMarkerMidLineIgnored(t *testing.T) {
	// markers only count at the start of a line
	text := "I considered the Action: pattern but answered directly. Action Input: is not used either."
	reply := ParseReply(text)
	if reply.Tag != TagFinal {
		t.Errorf("mid-line markers should not trigger tool-call parsing, got %q", reply.Tag)
	}
}

// LLM reply parsing.
//
// Replies are classified exactly once into a tagged union and then
// dispatched on the tag. The loop never scans the raw text again.

package agent

import (
	"strings"
)

// ReplyTag discriminates the parse result.
type ReplyTag string

const (
	TagToolCall  ReplyTag = "tool_call"
	TagFinal     ReplyTag = "final_candidate"
	TagMalformed ReplyTag = "malformed"
)

// Reply is the parsed form of one LLM response. Only the fields for
// the active tag are populated; Raw always carries the original text.
type Reply struct {
	Tag       ReplyTag
	Thought   string
	ToolName  string
	ToolInput string
	Answer    string
	Raw       string
}

// NewToolCallReply builds a tool-call reply.
func NewToolCallReply(raw, thought, name, input string) Reply {
	return Reply{Tag: TagToolCall, Raw: raw, Thought: thought, ToolName: name, ToolInput: input}
}

// NewFinalReply builds a final-candidate reply.
func NewFinalReply(raw, thought, answer string) Reply {
	return Reply{Tag: TagFinal, Raw: raw, Thought: thought, Answer: answer}
}

// NewMalformedReply builds a malformed reply.
func NewMalformedReply(raw string) Reply {
	return Reply{Tag: TagMalformed, Raw: raw}
}

const (
	thoughtMarker     = "Thought:"
	actionMarker      = "Action:"
	actionInputMarker = "Action Input:"
	finalMarker       = "Final Answer:"
)

// ParseReply classifies an LLM response. A reply containing both the
// Action: and Action Input: markers is a tool call; a reply with
// neither is a final candidate. A reply with only one of the two
// markers is malformed: it looks like a tool call but cannot be
// dispatched as one.
func ParseReply(text string) Reply {
	hasAction := containsMarker(text, actionMarker)
	hasInput := containsMarker(text, actionInputMarker)

	switch {
	case hasAction && hasInput:
		name := strings.TrimSpace(firstLineAfter(text, actionMarker))
		input := strings.TrimSpace(sectionAfter(text, actionInputMarker))
		if name == "" {
			return NewMalformedReply(text)
		}
		return NewToolCallReply(text, extractThought(text), name, input)

	case hasAction != hasInput:
		return NewMalformedReply(text)

	default:
		answer := text
		if idx := markerIndex(text, finalMarker); idx >= 0 {
			answer = text[idx+len(finalMarker):]
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return NewMalformedReply(text)
		}
		return NewFinalReply(text, extractThought(text), answer)
	}
}

// markerIndex finds a marker at the start of a line.
func markerIndex(text, marker string) int {
	if strings.HasPrefix(text, marker) {
		return 0
	}
	idx := strings.Index(text, "\n"+marker)
	if idx < 0 {
		return -1
	}
	return idx + 1
}

func containsMarker(text, marker string) bool {
	return markerIndex(text, marker) >= 0
}

// firstLineAfter returns the remainder of the marker's own line.
func firstLineAfter(text, marker string) string {
	idx := markerIndex(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[:nl]
	}
	return rest
}

// sectionAfter returns everything after the marker up to the next
// known marker or the end of the text.
func sectionAfter(text, marker string) string {
	idx := markerIndex(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]

	for _, stop := range []string{thoughtMarker, actionMarker, finalMarker} {
		if stopIdx := markerIndex(rest, stop); stopIdx >= 0 {
			rest = rest[:stopIdx]
		}
	}
	return rest
}

func extractThought(text string) string {
	if !containsMarker(text, thoughtMarker) {
		return ""
	}
	thought := text[markerIndex(text, thoughtMarker)+len(thoughtMarker):]
	for _, stop := range []string{actionMarker, actionInputMarker, finalMarker} {
		if idx := markerIndex(thought, stop); idx >= 0 {
			thought = thought[:idx]
		}
	}
	return strings.TrimSpace(thought)
}

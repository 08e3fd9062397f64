// Extraction passes run on every appended message.
//
// All extraction is deterministic and pattern-based. A pass that matches
// nothing leaves the context unchanged; none of them can fail.

package memory

import (
	"regexp"
	"strings"
)

// Goal lead-in phrases. The capture group is the goal text, which runs to
// the end of the sentence.
var goalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bI want to\s+([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bhelp me\s+([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bmy goal is to\s+([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bI'm working on\s+([^.!?\n]+)`),
}

// minGoalLength discards fragments like "do it" captured by a lead-in.
const minGoalLength = 5

var (
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	quotedPattern   = regexp.MustCompile(`"([^"]+)"`)
	questionPattern = regexp.MustCompile(`[^.!?\n]*\?`)
)

// Agent turns containing these phrases are treated as clarifications that
// leave the user's question open rather than answering it.
var uncertaintyMarkers = []string{
	"could you clarify",
	"can you clarify",
	"i'm not sure",
	"i am not sure",
	"do you mean",
	"need more information",
}

// shortAnswerLimit is the length under which an agent turn is assumed to
// have resolved the pending questions. This is a heuristic, not a proof
// of resolution.
const shortAnswerLimit = 200

func (c *Conversation) extractGoals(content string) {
	for _, pattern := range goalPatterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			goal := strings.TrimSpace(match[1])
			if len(goal) < minGoalLength {
				continue
			}
			c.goals = appendCapped(c.goals, goal, MaxGoals)
		}
	}
}

func (c *Conversation) extractMentions(content string) {
	for _, match := range wikiLinkPattern.FindAllStringSubmatch(content, -1) {
		title := strings.TrimSpace(match[1])
		if title == "" {
			continue
		}
		c.mentionedNotes = appendCapped(c.mentionedNotes, title, MaxMentionedNotes)
	}

	for _, match := range quotedPattern.FindAllStringSubmatch(content, -1) {
		concept := strings.TrimSpace(match[1])
		if len(concept) <= 3 {
			continue
		}
		c.mentionedConcepts = appendCapped(c.mentionedConcepts, concept, MaxMentionedConcepts)
	}
}

// trackQuestions records open questions from user turns and clears them
// when an agent turn looks like a resolution.
func (c *Conversation) trackQuestions(role Role, content string) {
	switch role {
	case RoleUser:
		if !strings.Contains(content, "?") {
			return
		}
		for _, q := range questionPattern.FindAllString(content, -1) {
			question := strings.TrimSpace(q)
			if question == "" || question == "?" {
				continue
			}
			c.unresolvedQuestions = appendCapped(c.unresolvedQuestions, question, MaxUnresolvedQuestions)
		}

	case RoleAgent:
		if len(c.unresolvedQuestions) == 0 {
			return
		}
		if len(content) < shortAnswerLimit || containsAny(strings.ToLower(content), uncertaintyMarkers) {
			c.unresolvedQuestions = nil
		}
	}
}

// appendCapped appends value, dropping duplicates and then the oldest
// entries beyond the cap.
func appendCapped(list []string, value string, limit int) []string {
	for i, existing := range list {
		if strings.EqualFold(existing, value) {
			// refresh recency instead of duplicating
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, value)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

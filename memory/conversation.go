// Package memory provides bounded conversational memory for one session.
//
// Information Hiding:
// - Pruning policy (message count and age limits) hidden
// - Extraction heuristics hidden behind AddMessage
// - Serialized wire shape hidden behind Export/Import
package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Bounds for the conversation context. Pruning runs after every append.
const (
	MaxMessages            = 20
	MaxMessageAge          = time.Hour
	MaxGoals               = 5
	MaxMentionedNotes      = 10
	MaxMentionedConcepts   = 10
	MaxUnresolvedQuestions = 3
)

// MessageMetadata carries optional per-message annotations.
type MessageMetadata struct {
	ToolsUsed  []string `json:"tools_used,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Intent     string   `json:"intent,omitempty"`
}

// Message is a single conversation turn. Immutable once appended.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// Conversation is a bounded session log with extracted context.
// Safe for concurrent use, though each conversation is normally
// owned by a single agent loop.
type Conversation struct {
	mu                  sync.RWMutex
	messages            []Message
	goals               []string
	mentionedNotes      []string
	mentionedConcepts   []string
	unresolvedQuestions []string
	preferences         map[string]string

	now func() time.Time // injectable clock for age-based pruning tests
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		preferences: make(map[string]string),
		now:         time.Now,
	}
}

// AddMessage appends a turn and runs the extraction passes.
// Extraction never fails; malformed or empty content is a no-op.
func (c *Conversation) AddMessage(role Role, content string, metadata *MessageMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
		Metadata:  metadata,
	})

	if content != "" {
		c.extractGoals(content)
		c.extractMentions(content)
		c.trackQuestions(role, content)
	}

	c.prune()
}

// SetPreference records a user preference.
func (c *Conversation) SetPreference(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferences[key] = value
}

// Preference returns a stored preference.
func (c *Conversation) Preference(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.preferences[key]
	return v, ok
}

// prune drops messages beyond the count cap and older than the age cap,
// oldest first. Callers must hold the write lock.
func (c *Conversation) prune() {
	if len(c.messages) > MaxMessages {
		c.messages = c.messages[len(c.messages)-MaxMessages:]
	}

	cutoff := c.now().Add(-MaxMessageAge)
	firstFresh := 0
	for firstFresh < len(c.messages) && c.messages[firstFresh].Timestamp.Before(cutoff) {
		firstFresh++
	}
	if firstFresh > 0 {
		c.messages = c.messages[firstFresh:]
	}
}

// Context returns a formatted summary of the accumulated context,
// or the empty string if nothing has accumulated.
func (c *Conversation) Context() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sections []string

	if len(c.goals) > 0 {
		sections = append(sections, "Current goals:\n- "+strings.Join(c.goals, "\n- "))
	}
	if len(c.mentionedNotes) > 0 {
		sections = append(sections, "Notes discussed: "+strings.Join(c.mentionedNotes, ", "))
	}
	if len(c.mentionedConcepts) > 0 {
		sections = append(sections, "Concepts discussed: "+strings.Join(c.mentionedConcepts, ", "))
	}
	if len(c.unresolvedQuestions) > 0 {
		sections = append(sections, "Open questions:\n- "+strings.Join(c.unresolvedQuestions, "\n- "))
	}
	if len(c.preferences) > 0 {
		var prefs []string
		for _, kv := range sortedPreferences(c.preferences) {
			prefs = append(prefs, kv.Key+": "+kv.Value)
		}
		sections = append(sections, "User preferences:\n- "+strings.Join(prefs, "\n- "))
	}

	return strings.Join(sections, "\n\n")
}

// History returns the last n messages (all of them when n exceeds the log).
func (c *Conversation) History(n int) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || n > len(c.messages) {
		n = len(c.messages)
	}
	out := make([]Message, n)
	copy(out, c.messages[len(c.messages)-n:])
	return out
}

// Len returns the number of retained messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Goals returns the extracted goals, most recent last.
func (c *Conversation) Goals() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.goals...)
}

// MentionedNotes returns note titles seen in [[wiki-link]] syntax.
func (c *Conversation) MentionedNotes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.mentionedNotes...)
}

// MentionedConcepts returns quoted concepts seen in the dialogue.
func (c *Conversation) MentionedConcepts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.mentionedConcepts...)
}

// UnresolvedQuestions returns the open questions from user turns.
func (c *Conversation) UnresolvedQuestions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.unresolvedQuestions...)
}

// WasDiscussed reports whether a topic appeared in the mentioned notes,
// mentioned concepts, or the last 10 messages. Case-insensitive substring.
func (c *Conversation) WasDiscussed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(topic)
	if needle == "" {
		return false
	}

	for _, n := range c.mentionedNotes {
		if strings.Contains(strings.ToLower(n), needle) {
			return true
		}
	}
	for _, concept := range c.mentionedConcepts {
		if strings.Contains(strings.ToLower(concept), needle) {
			return true
		}
	}

	start := len(c.messages) - 10
	if start < 0 {
		start = 0
	}
	for _, msg := range c.messages[start:] {
		if strings.Contains(strings.ToLower(msg.Content), needle) {
			return true
		}
	}

	return false
}

// Clear resets the conversation to its empty state.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
	c.goals = nil
	c.mentionedNotes = nil
	c.mentionedConcepts = nil
	c.unresolvedQuestions = nil
	c.preferences = make(map[string]string)
}

// preferencePair is one serialized preference entry. Preferences travel as
// an ordered list rather than a native map for cross-session portability.
type preferencePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// snapshot is the serialized shape of a conversation.
type snapshot struct {
	Messages            []Message        `json:"messages"`
	Goals               []string         `json:"goals,omitempty"`
	MentionedNotes      []string         `json:"mentioned_notes,omitempty"`
	MentionedConcepts   []string         `json:"mentioned_concepts,omitempty"`
	UnresolvedQuestions []string         `json:"unresolved_questions,omitempty"`
	Preferences         []preferencePair `json:"preferences,omitempty"`
}

// Export serializes the full conversation context to JSON.
func (c *Conversation) Export() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := snapshot{
		Messages:            c.messages,
		Goals:               c.goals,
		MentionedNotes:      c.mentionedNotes,
		MentionedConcepts:   c.mentionedConcepts,
		UnresolvedQuestions: c.unresolvedQuestions,
		Preferences:         sortedPreferences(c.preferences),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to export conversation: %w", err)
	}
	return data, nil
}

// Import replaces the conversation state with a previously exported snapshot.
func (c *Conversation) Import(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to import conversation: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = snap.Messages
	c.goals = snap.Goals
	c.mentionedNotes = snap.MentionedNotes
	c.mentionedConcepts = snap.MentionedConcepts
	c.unresolvedQuestions = snap.UnresolvedQuestions
	c.preferences = make(map[string]string, len(snap.Preferences))
	for _, kv := range snap.Preferences {
		c.preferences[kv.Key] = kv.Value
	}

	c.prune()
	return nil
}

func sortedPreferences(prefs map[string]string) []preferencePair {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]preferencePair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, preferencePair{Key: k, Value: prefs[k]})
	}
	return pairs
}

// Package model provides domain types shared across packages.
package model

import "time"

// Note is a single note in the vault.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Links     []string  `json:"links,omitempty"` // titles referenced via [[wiki-links]]
	UpdatedAt time.Time `json:"updated_at"`
}

// Step represents a single step in a reasoning run.
// Used by the agent loop for tracking progress across iterations.
type Step struct {
	Iteration   int
	Thought     string
	Action      string
	Observation string
}

// ToolCall contains metrics about a tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// EvidenceCounters accumulates retrieval evidence across one agent run.
// The confidence estimator consumes these when scoring the final answer.
type EvidenceCounters struct {
	VaultSearchResults int
	ToolsUsed          int
	ReasoningSteps     int
}

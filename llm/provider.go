// Package llm provides the completion-provider boundary.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
package llm

import "context"

// Request is a single completion request. The agent loop owns prompt
// assembly; providers only see the finished prompt text.
type Request struct {
	Prompt string
}

// Response is a completion response.
type Response struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// Add accumulates usage from another response, tolerating nil.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Provider defines the abstract interface for completion providers.
// Implementations hide provider-specific details while exposing a
// consistent request/response interface.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends a completion request and returns the generated text.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client - thin wrapper around providers.

package llm

import "context"

// Client wraps a Provider with a simple interface.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Complete sends a completion request and returns just the text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.provider.Complete(ctx, Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CompleteWithUsage sends a completion request and returns text with token usage.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	resp, err := c.provider.Complete(ctx, Request{Prompt: prompt})
	if err != nil {
		return "", nil, err
	}
	return resp.Text, resp.Usage, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

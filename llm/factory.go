// Provider factory - creates providers by name with env-based API keys.

package llm

import (
	"fmt"
	"os"
	"strings"
)

// providerInfo holds per-provider construction details.
type providerInfo struct {
	apiKeyEnv    string
	defaultModel string
	construct    func(apiKey, model string, maxTokens uint32, temperature float32) Provider
}

var providerTable = map[string]providerInfo{
	"anthropic": {"ANTHROPIC_API_KEY", "claude-sonnet-4-20250514",
		func(key, model string, maxTokens uint32, temp float32) Provider {
			return NewAnthropicProvider(key, model, maxTokens, float64(temp))
		}},
	"openai": {"OPENAI_API_KEY", "gpt-4o",
		func(key, model string, maxTokens uint32, temp float32) Provider {
			return NewOpenAIProvider(key, model, maxTokens, temp)
		}},
	"deepseek": {"DEEPSEEK_API_KEY", "deepseek-chat",
		func(key, model string, maxTokens uint32, temp float32) Provider {
			return NewDeepSeekProvider(key, model, maxTokens, temp)
		}},
	"gemini": {"GEMINI_API_KEY", "gemini-2.5-flash",
		func(key, model string, maxTokens uint32, temp float32) Provider {
			return NewGeminiProvider(key, model, maxTokens, temp)
		}},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// NewProvider creates a provider by name, reading the API key from the
// provider's environment variable. An empty model selects the default.
func NewProvider(name, model string, maxTokens uint32, temperature float32) (Provider, error) {
	canonical := normalizeProvider(name)

	info, ok := providerTable[canonical]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q (supported: %s)",
			name, strings.Join(SupportedProviders(), ", "))
	}

	apiKey := os.Getenv(info.apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}

	if model == "" {
		model = info.defaultModel
	}

	return info.construct(apiKey, model, maxTokens, temperature), nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	names := make([]string, 0, len(providerTable))
	for name := range providerTable {
		names = append(names, name)
	}
	return names
}

func normalizeProvider(name string) string {
	name = strings.ToLower(name)
	if canonical, ok := providerAliases[name]; ok {
		return canonical
	}
	return name
}

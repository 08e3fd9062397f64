// Package jsonutil extracts JSON payloads from LLM-produced text.
//
// Models often wrap tool inputs in prose or markdown fences. These
// helpers recover the JSON object so tools can parse structured input
// without demanding perfectly formatted replies.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract finds the JSON object inside text. It tries the whole text
// first, then strips markdown fences, then falls back to the span
// between the first '{' and the last '}'.
func Extract(text string) (string, error) {
	text = stripFences(text)

	var probe interface{}
	if err := json.Unmarshal([]byte(text), &probe); err == nil {
		return text, nil
	}

	start := strings.Index(text, "{")
	if start != -1 {
		end := strings.LastIndex(text, "}")
		if end > start {
			candidate := text[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
				return candidate, nil
			}
		}
	}

	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON found in %q", preview)
}

// Unmarshal extracts the JSON object inside text and decodes it into v.
func Unmarshal(text string, v interface{}) error {
	payload, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}

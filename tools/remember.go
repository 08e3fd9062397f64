// Preference capture tool backed by conversation memory.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagevault/sage/internal/jsonutil"
	"github.com/sagevault/sage/memory"
)

// RememberTool stores a user preference or fact into the conversation.
// The conversation owns the state; the tool is a thin adapter.
type RememberTool struct {
	BaseTool
	conv *memory.Conversation
}

func NewRememberTool(conv *memory.Conversation) *RememberTool {
	return &RememberTool{conv: conv}
}

func (t *RememberTool) Metadata() Metadata {
	return Metadata{
		Name:        "remember",
		Description: "Remember a user preference or fact for the rest of the conversation. Input is JSON with key and value fields.",
		Parameters: []Parameter{
			{Name: "key", ParamType: "string", Description: "Short name for the preference", Required: true},
			{Name: "value", ParamType: "string", Description: "What to remember", Required: true},
		},
	}
}

type rememberInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func parseRememberInput(input string) (rememberInput, error) {
	var payload rememberInput
	if err := jsonutil.Unmarshal(input, &payload); err == nil {
		if strings.TrimSpace(payload.Key) == "" || strings.TrimSpace(payload.Value) == "" {
			return payload, fmt.Errorf("key and value must both be present")
		}
		return payload, nil
	}

	// tolerate "key: value" and "key = value" shorthand
	for _, sep := range []string{":", "="} {
		if idx := strings.Index(input, sep); idx > 0 {
			key := strings.TrimSpace(input[:idx])
			value := strings.TrimSpace(input[idx+len(sep):])
			if key != "" && value != "" {
				return rememberInput{Key: key, Value: value}, nil
			}
		}
	}

	return payload, fmt.Errorf("expected JSON with key and value, or 'key: value'")
}

func (t *RememberTool) Validate(input string) error {
	_, err := parseRememberInput(input)
	return err
}

func (t *RememberTool) Execute(_ context.Context, input string) Result {
	payload, err := parseRememberInput(input)
	if err != nil {
		return Failuref(ErrInvalidInput, "%v", err)
	}

	t.conv.SetPreference(payload.Key, payload.Value)
	return OK(fmt.Sprintf("Noted: %s = %s", payload.Key, payload.Value))
}

var _ Tool = (*RememberTool)(nil)

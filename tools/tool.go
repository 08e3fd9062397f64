// Package tools provides the tool system for the assistant.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and input parsing hidden in implementations
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Parameter defines a parameter schema for a tool.
type Parameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Metadata describes what a tool does and how to use it.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// String returns a short representation of the tool metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// ErrorKind classifies a failed tool execution.
type ErrorKind string

const (
	ErrNotFound     ErrorKind = "not_found"
	ErrInvalidInput ErrorKind = "invalid_input"
	ErrTimeout      ErrorKind = "timeout"
	ErrInternal     ErrorKind = "internal"
)

// Result is the tagged outcome of a tool execution: either ok with
// output text, or an error with a kind and message. The reasoning loop
// consumes Observation(), which carries the same human-readable text
// for both variants so failures stay part of the visible trace.
type Result struct {
	ok      bool
	output  string
	kind    ErrorKind
	message string
}

// OK creates a successful result.
func OK(output string) Result {
	return Result{ok: true, output: output}
}

// Failure creates a failed result.
func Failure(kind ErrorKind, message string) Result {
	return Result{kind: kind, message: message}
}

// Failuref creates a failed result with a formatted message.
func Failuref(kind ErrorKind, format string, args ...interface{}) Result {
	return Result{kind: kind, message: fmt.Sprintf(format, args...)}
}

// IsOK reports whether the execution succeeded.
func (r Result) IsOK() bool {
	return r.ok
}

// Kind returns the error classification, empty for successful results.
func (r Result) Kind() ErrorKind {
	return r.kind
}

// Output returns the success output, empty for failures.
func (r Result) Output() string {
	return r.output
}

// Observation returns the text appended to the reasoning trace.
func (r Result) Observation() string {
	if r.ok {
		return r.output
	}
	return "Error: " + r.message
}

// MarshalJSON serializes the tagged result explicitly.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			Status string `json:"status"`
			Output string `json:"output"`
		}{Status: "ok", Output: r.output})
	}
	return json.Marshal(struct {
		Status  string    `json:"status"`
		Kind    ErrorKind `json:"kind"`
		Message string    `json:"message"`
	}{Status: "error", Kind: r.kind, Message: r.message})
}

// Tool is the interface all tools implement. Execute never returns a
// Go error: failures are encoded into the Result so the reasoning loop
// can keep going.
type Tool interface {
	// Metadata returns the tool's name, description, and parameters.
	Metadata() Metadata

	// Execute runs the tool against free-form input text.
	Execute(ctx context.Context, input string) Result

	// Validate checks input before execution (optional).
	Validate(input string) error
}

// BaseTool provides a default no-op Validate.
type BaseTool struct{}

func (BaseTool) Validate(input string) error {
	return nil
}

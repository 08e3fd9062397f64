// Tool executor with timeout support.
//
// Information Hiding:
// - Timeout strategy hidden from callers
// - Panic containment internalized

package tools

import (
	"context"
	"time"
)

// DefaultToolTimeout bounds a single tool execution.
const DefaultToolTimeout = 30 * time.Second

// Executor runs tools with a timeout budget.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an executor with the given timeout. A zero or
// negative timeout falls back to DefaultToolTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Executor{timeout: timeout}
}

// NewDefaultExecutor creates an executor with the default timeout.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultToolTimeout)
}

// Execute validates input and runs the tool under the timeout budget.
// A panicking tool or an expired deadline becomes a failed Result, not
// a crash: the reasoning loop treats both as observations.
func (e *Executor) Execute(ctx context.Context, tool Tool, input string) Result {
	name := tool.Metadata().Name

	if err := tool.Validate(input); err != nil {
		return Failuref(ErrInvalidInput, "invalid input for tool '%s': %v", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- Failuref(ErrInternal, "tool '%s' panicked: %v", name, rec)
			}
		}()
		done <- tool.Execute(ctx, input)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return Failuref(ErrTimeout, "tool '%s' timed out after %s: %v",
			name, e.timeout, ctx.Err())
	}
}

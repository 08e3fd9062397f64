// ReAct loop over the note vault.
//
// Information Hiding:
// - Loop internals and prompt assembly hidden
// - Tool execution coordination hidden
// - Momentum retry bookkeeping hidden
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sagevault/sage/confidence"
	"github.com/sagevault/sage/llm"
	"github.com/sagevault/sage/memory"
	"github.com/sagevault/sage/model"
	"github.com/sagevault/sage/tools"
)

// Agent runs one reasoning loop per query. One instance may serve many
// sequential queries of the same conversation; it must not be shared
// across conversations.
type Agent struct {
	client    *llm.Client
	registry  *tools.Registry
	executor  *tools.Executor
	conv      *memory.Conversation
	estimator *confidence.Estimator
	logger    *zap.Logger
	cfg       Config
}

// Answer is the outcome of one query.
type Answer struct {
	Text       string
	Confidence confidence.Score
	Steps      []model.Step
	ToolCalls  []model.ToolCall
	Usage      llm.TokenUsage
	Terminal   Termination
}

// Termination says how the loop ended.
type Termination string

const (
	TerminalAccepted  Termination = "accepted"
	TerminalMalformed Termination = "malformed"
	TerminalExhausted Termination = "exhausted"
)

// New creates an agent. Logger may be nil.
func New(client *llm.Client, registry *tools.Registry, conv *memory.Conversation, cfg Config, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		client:    client,
		registry:  registry,
		executor:  tools.NewDefaultExecutor(),
		conv:      conv,
		estimator: confidence.NewDefaultEstimator(),
		logger:    logger,
		cfg:       cfg.withDefaults(),
	}
}

// WithExecutor overrides the tool executor.
func (a *Agent) WithExecutor(executor *tools.Executor) *Agent {
	a.executor = executor
	return a
}

// WithEstimator overrides the confidence estimator.
func (a *Agent) WithEstimator(estimator *confidence.Estimator) *Agent {
	a.estimator = estimator
	return a
}

// Run answers one user query. An LLM failure ends the turn with an
// error; everything else, including malformed output and budget
// exhaustion, produces an Answer.
func (a *Agent) Run(ctx context.Context, query string) (*Answer, error) {
	a.conv.AddMessage(memory.RoleUser, query, nil)

	prompt := a.buildPrompt(query)
	answer := &Answer{}
	evidence := model.EvidenceCounters{}
	retries := 0

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		evidence.ReasoningSteps = step

		text, usage, err := a.client.CompleteWithUsage(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("llm call failed at step %d: %w", step, err)
		}
		answer.Usage.Add(usage)

		reply := ParseReply(text)

		switch reply.Tag {
		case TagToolCall:
			observation := a.handleToolCall(ctx, reply, answer, &evidence)
			answer.Steps = append(answer.Steps, model.Step{
				Iteration:   step,
				Thought:     reply.Thought,
				Action:      reply.ToolName,
				Observation: observation,
			})
			prompt += fmt.Sprintf("\n%s\nObservation: %s\n", strings.TrimSpace(reply.Raw), observation)

		case TagFinal:
			verdict := ValidateMomentum(reply.Answer)
			if !verdict.Accepted && retries < a.cfg.MaxRetries {
				retries++
				a.logger.Debug("final candidate rejected",
					zap.String("reason", string(verdict.Reason)),
					zap.Int("score", verdict.Score),
					zap.Int("retry", retries))
				prompt += retryInstruction(verdict)
				continue
			}
			// accepted, or retries exhausted: take the candidate as-is
			a.accept(reply.Answer, answer, evidence)
			return answer, nil

		case TagMalformed:
			// nothing to validate; hand the raw text back
			answer.Text = reply.Raw
			answer.Terminal = TerminalMalformed
			a.conv.AddMessage(memory.RoleAgent, reply.Raw, &memory.MessageMetadata{
				ToolsUsed: toolNames(answer.ToolCalls),
			})
			return answer, nil
		}
	}

	answer.Text = ExhaustedMessage
	answer.Terminal = TerminalExhausted
	a.conv.AddMessage(memory.RoleAgent, ExhaustedMessage, &memory.MessageMetadata{
		ToolsUsed: toolNames(answer.ToolCalls),
	})
	return answer, nil
}

// handleToolCall dispatches a tool call and returns the observation
// string appended to the prompt. Unknown tools and failed executions
// stay recoverable: the error becomes part of the trace.
func (a *Agent) handleToolCall(ctx context.Context, reply Reply, answer *Answer, evidence *model.EvidenceCounters) string {
	tool, ok := a.registry.Get(reply.ToolName)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q. Valid tools are: %s.",
			reply.ToolName, strings.Join(a.registry.Names(), ", "))
	}

	started := time.Now()
	result := a.executor.Execute(ctx, tool, reply.ToolInput)
	observation := result.Observation()

	answer.ToolCalls = append(answer.ToolCalls, model.ToolCall{
		Name:       reply.ToolName,
		InputSize:  len(reply.ToolInput),
		OutputSize: len(observation),
		DurationMs: time.Since(started).Milliseconds(),
		Success:    result.IsOK(),
	})
	evidence.ToolsUsed++

	if strings.Contains(reply.ToolName, "search") {
		if isEmptySearch(observation) {
			observation += "\nThe vault has nothing on this yet. Offer to create a note capturing what the user tells you, rather than just reporting that nothing was found."
		} else if result.IsOK() {
			evidence.VaultSearchResults += countResultLines(observation)
		}
	}

	return observation
}

// accept finalizes a candidate: score it, attach disclaimers, record
// the turn.
func (a *Agent) accept(candidate string, answer *Answer, evidence model.EvidenceCounters) {
	score := a.estimator.Estimate(candidate, evidence)

	answer.Text = candidate + confidence.FormatConfidence(score)
	answer.Confidence = score
	answer.Terminal = TerminalAccepted

	a.conv.AddMessage(memory.RoleAgent, answer.Text, &memory.MessageMetadata{
		ToolsUsed:  toolNames(answer.ToolCalls),
		Confidence: score.Overall,
	})

	a.logger.Info("answer accepted",
		zap.String("level", string(score.Level)),
		zap.Int("tool_calls", len(answer.ToolCalls)),
		zap.Int("steps", evidence.ReasoningSteps))
}

func (a *Agent) buildPrompt(query string) string {
	var b strings.Builder

	b.WriteString(systemPolicy)
	b.WriteString("\n\nAvailable tools:\n\n")
	b.WriteString(a.registry.Description())
	b.WriteString("\n\n")
	b.WriteString(replyFormat)

	if convCtx := a.conv.Context(); convCtx != "" {
		b.WriteString("\n\nConversation context:\n")
		b.WriteString(convCtx)
	}

	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}

const systemPolicy = `You are a personal knowledge assistant working over the user's note vault. Ground answers in the user's notes whenever possible, citing them as [[Note Title]]. Prefer searching before answering. When the vault has nothing relevant, say so and offer to capture the information as a new note.`

const replyFormat = `To use a tool, reply with exactly:
Thought: why this tool helps
Action: tool_name
Action Input: the input (JSON when the tool asks for fields)

To answer, reply with:
Final Answer: your answer, ending with a next-step block:
Next step: one concrete action, starting with a verb
Owner: who does it
Effort: rough time estimate
Success criteria: how to tell it worked
Alternatives: other options, if any`

// retryInstruction is appended to the prompt when a candidate is
// rejected, tagged with the failure reason.
func retryInstruction(v Verdict) string {
	var fix string
	switch v.Reason {
	case RejectDeadEnd:
		fix = "Your answer declared a dead end. There is always a next action, even if it is gathering more information. Propose one."
	case RejectMissingFields:
		fix = "Your answer is missing parts of the next-step block. " + v.Detail + "."
	default:
		fix = v.Detail + "."
	}
	return fmt.Sprintf("\n[validation:%s] The previous answer was not accepted. %s Reply again with a complete Final Answer.\n", v.Reason, fix)
}

func isEmptySearch(observation string) bool {
	if strings.TrimSpace(observation) == "" {
		return true
	}
	return strings.Contains(observation, "No results") || strings.Contains(observation, "not found")
}

// countResultLines counts the bulleted entries of a search observation.
func countResultLines(observation string) int {
	count := 0
	for _, line := range strings.Split(observation, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "- ") {
			count++
		}
	}
	return count
}

func toolNames(calls []model.ToolCall) []string {
	names := make([]string, 0, len(calls))
	seen := make(map[string]bool)
	for _, c := range calls {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	return names
}

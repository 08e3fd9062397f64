// Momentum policy for final candidates.
//
// An answer is only useful if it keeps the user moving: it must name
// a concrete next step, who does it, how much effort it takes, and
// how to tell it worked. The validator scores that block
// deterministically and rejects candidates that stall.

package agent

import (
	"fmt"
	"strings"
)

// NextStep is the parsed next-step block of a final candidate.
type NextStep struct {
	Action          string
	Owner           string
	Effort          string
	SuccessCriteria string
	Alternatives    string
}

// Momentum scoring constants.
const (
	MomentumThreshold = 8
	momentumMax       = 10

	actionPoints       = 3
	ownerPoints        = 2
	effortPoints       = 2
	successPoints      = 2
	alternativesPoints = 1

	minActionLength = 15
)

// RejectReason tags why a candidate failed validation.
type RejectReason string

const (
	RejectMissingFields RejectReason = "missing_fields"
	RejectLowMomentum   RejectReason = "low_momentum"
	RejectDeadEnd       RejectReason = "dead_end"
)

// Verdict is the outcome of momentum validation.
type Verdict struct {
	Accepted bool
	Score    int
	Reason   RejectReason
	Detail   string
}

// actionVerbs are the verbs that make a next step concrete. An action
// that opens with one of these earns the full action points.
var actionVerbs = []string{
	"add", "ask", "build", "check", "clean", "collect", "compare",
	"create", "draft", "email", "finish", "fix", "gather", "link",
	"list", "merge", "organize", "outline", "read", "refactor",
	"research", "review", "rewrite", "run", "schedule", "set up",
	"sketch", "split", "summarize", "tag", "test", "update", "write",
}

// deadEndMarkers signal that the text proposes no path forward.
var deadEndMarkers = []string{
	"nothing can be done",
	"no way to",
	"impossible to proceed",
	"give up",
}

// nextStepLabels map block labels to NextStep fields.
const (
	labelNextStep     = "next step:"
	labelOwner        = "owner:"
	labelEffort       = "effort:"
	labelSuccess      = "success criteria:"
	labelAlternatives = "alternatives:"
)

// ParseNextStep extracts the next-step block from candidate text.
// Labels are matched case-insensitively at the start of a line.
func ParseNextStep(text string) NextStep {
	var step NextStep
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, labelNextStep):
			step.Action = strings.TrimSpace(line[len(labelNextStep):])
		case strings.HasPrefix(lower, labelOwner):
			step.Owner = strings.TrimSpace(line[len(labelOwner):])
		case strings.HasPrefix(lower, labelEffort):
			step.Effort = strings.TrimSpace(line[len(labelEffort):])
		case strings.HasPrefix(lower, labelSuccess):
			step.SuccessCriteria = strings.TrimSpace(line[len(labelSuccess):])
		case strings.HasPrefix(lower, labelAlternatives):
			step.Alternatives = strings.TrimSpace(line[len(labelAlternatives):])
		}
	}
	return step
}

// MomentumScore rates how concrete a next step is, from 0 to 10.
func MomentumScore(step NextStep) int {
	score := 0

	if step.Action != "" && len(step.Action) >= minActionLength && startsWithActionVerb(step.Action) {
		score += actionPoints
	}
	if step.Owner != "" {
		score += ownerPoints
	}
	if step.Effort != "" {
		score += effortPoints
	}
	if step.SuccessCriteria != "" {
		score += successPoints
	}
	if step.Alternatives != "" {
		score += alternativesPoints
	}

	if score > momentumMax {
		score = momentumMax
	}
	return score
}

// IsDeadEnd reports whether the text declares there is no path forward
// while proposing no action of its own.
func IsDeadEnd(text string, step NextStep) bool {
	if step.Action != "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range deadEndMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ValidateMomentum applies the full policy to a final candidate.
func ValidateMomentum(text string) Verdict {
	step := ParseNextStep(text)

	if IsDeadEnd(text, step) {
		return Verdict{
			Reason: RejectDeadEnd,
			Detail: "the answer declares a dead end without proposing any action",
		}
	}

	var missing []string
	if step.Action == "" {
		missing = append(missing, "next step")
	}
	if step.Owner == "" {
		missing = append(missing, "owner")
	}
	if step.Effort == "" {
		missing = append(missing, "effort")
	}
	if step.SuccessCriteria == "" {
		missing = append(missing, "success criteria")
	}
	if len(missing) > 0 {
		return Verdict{
			Score:  MomentumScore(step),
			Reason: RejectMissingFields,
			Detail: fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
		}
	}

	score := MomentumScore(step)
	if score < MomentumThreshold {
		return Verdict{
			Score:  score,
			Reason: RejectLowMomentum,
			Detail: fmt.Sprintf("momentum score %d is below the threshold of %d; make the next step more concrete", score, MomentumThreshold),
		}
	}

	return Verdict{Accepted: true, Score: score}
}

func startsWithActionVerb(action string) bool {
	lower := strings.ToLower(strings.TrimSpace(action))
	for _, verb := range actionVerbs {
		if strings.HasPrefix(lower, verb+" ") || lower == verb {
			return true
		}
	}
	return false
}

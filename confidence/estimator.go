// Package confidence scores answers for trustworthiness.
//
// The estimator is a pure function over the answer text and the evidence
// accumulated during the run: no I/O, no shared state. The calibrator
// (calibrator.go) tunes the thresholds it is configured with offline.
package confidence

import (
	"regexp"
	"strings"

	"github.com/sagevault/sage/model"
)

// Level buckets for the overall score.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Overall-score thresholds for the levels.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// Signal weights for the overall blend.
const (
	factualWeight  = 0.4
	logicalWeight  = 0.3
	completeWeight = 0.3
)

// Score is the multi-signal trust score for one answer.
// Computed fresh per answer, never persisted mutably.
type Score struct {
	Factual     float64  `json:"factual"`
	Logical     float64  `json:"logical"`
	Complete    float64  `json:"complete"`
	Overall     float64  `json:"overall"`
	Level       Level    `json:"level"`
	Disclaimers []string `json:"disclaimers,omitempty"`
}

var (
	citationPattern    = regexp.MustCompile(`\[\[[^\[\]]+\]\]`)
	conditionalPattern = regexp.MustCompile(`(?i)\bif\b[^.!?\n]{0,80}\bthen\b`)
)

// Estimator computes trust scores from an injectable rule set.
type Estimator struct {
	rules RuleSet
}

// NewEstimator creates an estimator with the given rules.
func NewEstimator(rules RuleSet) *Estimator {
	return &Estimator{rules: rules}
}

// NewDefaultEstimator creates an estimator with the stock rule set.
func NewDefaultEstimator() *Estimator {
	return NewEstimator(DefaultRules())
}

// Estimate scores a single answer against the run's evidence counters.
func (e *Estimator) Estimate(responseText string, evidence model.EvidenceCounters) Score {
	citations := len(citationPattern.FindAllString(responseText, -1))

	factual := e.factualScore(responseText, evidence, citations)
	logical := e.logicalScore(responseText)
	complete := e.completeScore(responseText)

	overall := factualWeight*factual + logicalWeight*logical + completeWeight*complete

	score := Score{
		Factual:  factual,
		Logical:  logical,
		Complete: complete,
		Overall:  overall,
		Level:    levelFor(overall),
	}
	score.Disclaimers = e.disclaimers(score, evidence, citations)

	return score
}

func (e *Estimator) factualScore(text string, evidence model.EvidenceCounters, citations int) float64 {
	score := 0.5

	if evidence.VaultSearchResults > 0 {
		score += 0.3
	}

	citationBoost := 0.05 * float64(citations)
	if citationBoost > 0.2 {
		citationBoost = 0.2
	}
	score += citationBoost

	score += applyOnce(e.rules.Hedges, text)

	if evidence.VaultSearchResults == 0 && citations == 0 {
		score -= 0.2
	}

	return clamp01(score)
}

func (e *Estimator) logicalScore(text string) float64 {
	score := 0.6

	score += applyOnce(e.rules.Causal, text)
	score += applyOnce(e.rules.Contradictions, text)

	if len(conditionalPattern.FindAllString(text, -1)) > 2 {
		score -= 0.1
	}

	return clamp01(score)
}

func (e *Estimator) completeScore(text string) float64 {
	score := 0.5

	if len(text) > 300 {
		score += 0.2
	}

	score += applyOnce(e.rules.NextSteps, text)
	score += applyOnce(e.rules.Alternatives, text)

	if strings.HasSuffix(strings.TrimSpace(text), "?") {
		score -= 0.2
	}

	score += applyOnce(e.rules.Incompleteness, text)

	return clamp01(score)
}

// disclaimers builds level-and-cause-specific messages. High confidence
// yields none.
func (e *Estimator) disclaimers(score Score, evidence model.EvidenceCounters, citations int) []string {
	if score.Level == LevelHigh {
		return nil
	}

	var out []string

	if score.Factual < 0.5 {
		if evidence.VaultSearchResults == 0 && citations == 0 {
			out = append(out, "This answer is relying on general knowledge rather than your notes; I could not ground it in vault evidence.")
		} else {
			out = append(out, "Some of the claims above have limited support in your notes; verify them before acting.")
		}
	}

	if score.Logical < 0.5 {
		out = append(out, "The reasoning here may contain gaps or conflicting considerations.")
	}

	if score.Complete < 0.5 {
		out = append(out, "This answer may be incomplete; there may be relevant notes I did not surface.")
	}

	if len(out) == 0 && score.Level == LevelLow {
		out = append(out, "Treat this answer with caution; overall confidence is low.")
	}

	return out
}

// FormatConfidence renders the disclaimers as a trailing block for medium
// and low levels. High confidence renders nothing, to avoid noise.
func FormatConfidence(score Score) string {
	if score.Level == LevelHigh || len(score.Disclaimers) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n---\nConfidence: ")
	b.WriteString(string(score.Level))
	for _, d := range score.Disclaimers {
		b.WriteString("\n- ")
		b.WriteString(d)
	}
	return b.String()
}

// ShouldWarn reports whether the answer deserves an explicit warning.
func ShouldWarn(score Score) bool {
	return score.Level == LevelLow || score.Overall < MediumThreshold
}

func levelFor(overall float64) Level {
	switch {
	case overall >= HighThreshold:
		return LevelHigh
	case overall >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Scoring rules for the confidence estimator.
//
// Each signal is scored by a list of (pattern, weight) rules rather than
// hard-coded string checks, so rule sets are data: injectable per
// deployment and testable in isolation. A pattern contributes its weight
// at most once per response no matter how often it matches.

package confidence

import "regexp"

// Rule is one weighted pattern contributing to a signal.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  float64
}

// RuleSet holds the pattern rules for all three signals.
type RuleSet struct {
	// Factual signal.
	Hedges []Rule // negative weights

	// Logical signal.
	Causal         []Rule // positive weights
	Contradictions []Rule // negative weights

	// Completeness signal.
	NextSteps      []Rule // positive weights
	Alternatives   []Rule // positive weights
	Incompleteness []Rule // negative weights
}

// DefaultRules returns the stock rule set.
func DefaultRules() RuleSet {
	return RuleSet{
		Hedges: []Rule{
			hedge("i think"),
			hedge("probably"),
			hedge("might be"),
			hedge("not sure"),
			hedge("possibly"),
			hedge("maybe"),
			hedge("perhaps"),
		},
		Causal: []Rule{
			causal("because"),
			causal("therefore"),
			causal("this means"),
			causal("as a result"),
			causal("consequently"),
		},
		Contradictions: []Rule{
			{Name: "but-also", Pattern: regexp.MustCompile(`(?i)\bbut\b.{0,40}\b(also|still)\b`), Weight: -0.15},
			{Name: "however-also", Pattern: regexp.MustCompile(`(?i)\bhowever\b.{0,40}\b(also|still)\b`), Weight: -0.15},
			{Name: "on-the-other-hand", Pattern: regexp.MustCompile(`(?i)on the other hand`), Weight: -0.15},
		},
		NextSteps: []Rule{
			{Name: "next-step", Pattern: regexp.MustCompile(`(?i)\b(next step|you (should|could|can) (start|try|do)|i recommend|to get started)\b`), Weight: 0.2},
		},
		Alternatives: []Rule{
			{Name: "alternatives", Pattern: regexp.MustCompile(`(?i)\b(alternatively|another (option|approach)|you could also|instead,)\b`), Weight: 0.1},
		},
		Incompleteness: []Rule{
			incomplete("i couldn't find"),
			incomplete("i could not find"),
			incomplete("i don't have enough information"),
			incomplete("missing"),
			incomplete("unable to determine"),
			incomplete("no information available"),
		},
	}
}

func hedge(phrase string) Rule {
	return Rule{Name: phrase, Pattern: literalPattern(phrase), Weight: -0.1}
}

func causal(phrase string) Rule {
	return Rule{Name: phrase, Pattern: literalPattern(phrase), Weight: 0.1}
}

func incomplete(phrase string) Rule {
	return Rule{Name: phrase, Pattern: literalPattern(phrase), Weight: -0.15}
}

func literalPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
}

// applyOnce sums the weight of every rule whose pattern matches the text,
// counting each rule at most once.
func applyOnce(rules []Rule, text string) float64 {
	total := 0.0
	for _, rule := range rules {
		if rule.Pattern.MatchString(text) {
			total += rule.Weight
		}
	}
	return total
}

// countMatching reports how many rules in the list match the text.
func countMatching(rules []Rule, text string) int {
	n := 0
	for _, rule := range rules {
		if rule.Pattern.MatchString(text) {
			n++
		}
	}
	return n
}

// Retrieval strategy configuration.
//
// Information Hiding:
// - Weight tables are fixed at construction; no mutable package state
// - Config values are copied in, never shared

package retrieval

import (
	"fmt"
	"time"
)

// Strategy names a retrieval approach.
type Strategy string

const (
	KeywordOnly   Strategy = "keyword_only"
	SemanticOnly  Strategy = "semantic_only"
	GraphOnly     Strategy = "graph_only"
	HybridCurrent Strategy = "hybrid_current"
	HybridLearned Strategy = "hybrid_learned"
)

// Weights blends the three sources for hybrid strategies.
type Weights struct {
	Keyword  float64
	Semantic float64
	Graph    float64
}

// Default weight tables. hybrid_learned was tuned offline and is the
// default strategy.
var (
	hybridCurrentWeights = Weights{Keyword: 0.3, Semantic: 0.5, Graph: 0.2}
	hybridLearnedWeights = Weights{Keyword: 0.24, Semantic: 0.58, Graph: 0.18}
)

// DefaultWeights returns the fixed weight table for a strategy. Single
// source strategies weight their own source at 1.
func DefaultWeights(s Strategy) Weights {
	switch s {
	case KeywordOnly:
		return Weights{Keyword: 1}
	case SemanticOnly:
		return Weights{Semantic: 1}
	case GraphOnly:
		return Weights{Graph: 1}
	case HybridCurrent:
		return hybridCurrentWeights
	default:
		return hybridLearnedWeights
	}
}

// Triggers selects which conditions may fire the fallback.
type Triggers struct {
	Timeout       bool
	LowEvidence   bool
	LowConfidence bool
}

// Fallback configures the single secondary retrieval attempt.
type Fallback struct {
	Enabled             bool
	Strategy            Strategy
	Triggers            Triggers
	EvidenceThreshold   int
	ConfidenceThreshold float64
}

// Config is the full retrieval configuration. Build it once at startup
// and treat it as immutable afterwards.
type Config struct {
	Strategy      Strategy
	Weights       Weights
	Fallback      Fallback
	TopK          int
	MinScore      float64
	SourceTimeout time.Duration
}

// DefaultConfig returns the production defaults: the learned hybrid
// strategy with a keyword fallback on any trigger.
func DefaultConfig() Config {
	return Config{
		Strategy: HybridLearned,
		Weights:  DefaultWeights(HybridLearned),
		Fallback: Fallback{
			Enabled:             true,
			Strategy:            KeywordOnly,
			Triggers:            Triggers{Timeout: true, LowEvidence: true, LowConfidence: true},
			EvidenceThreshold:   1,
			ConfidenceThreshold: 0.2,
		},
		TopK:          5,
		MinScore:      0.05,
		SourceTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration's internal consistency.
func (c Config) Validate() error {
	if !validStrategy(c.Strategy) {
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.Fallback.Enabled {
		if !validStrategy(c.Fallback.Strategy) {
			return fmt.Errorf("unknown fallback strategy %q", c.Fallback.Strategy)
		}
		if c.Fallback.Strategy == c.Strategy {
			return fmt.Errorf("fallback strategy must differ from primary strategy %q", c.Strategy)
		}
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("minScore must be in [0,1], got %v", c.MinScore)
	}
	return nil
}

func validStrategy(s Strategy) bool {
	switch s {
	case KeywordOnly, SemanticOnly, GraphOnly, HybridCurrent, HybridLearned:
		return true
	}
	return false
}

// ParseStrategy converts a user-supplied name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !validStrategy(s) {
		return "", fmt.Errorf("unknown retrieval strategy %q", name)
	}
	return s, nil
}

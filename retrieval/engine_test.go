package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func staticSource(results ...Result) SourceFunc {
	return func(_ context.Context, _ string, _ int) ([]Result, error) {
		out := make([]Result, len(results))
		copy(out, results)
		return out, nil
	}
}

func emptySource() SourceFunc {
	return staticSource()
}

func failingSource(err error) SourceFunc {
	return func(_ context.Context, _ string, _ int) ([]Result, error) {
		return nil, err
	}
}

func blockingSource() SourceFunc {
	return func(ctx context.Context, _ string, _ int) ([]Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func countedSource(counter *int, inner SourceFunc) SourceFunc {
	return func(ctx context.Context, query string, limit int) ([]Result, error) {
		*counter++
		return inner(ctx, query, limit)
	}
}

func testConfig(strategy Strategy) Config {
	cfg := DefaultConfig()
	cfg.Strategy = strategy
	cfg.Weights = DefaultWeights(strategy)
	cfg.Fallback.Enabled = false
	cfg.MinScore = 0
	return cfg
}

func mustEngine(t *testing.T, sources Sources, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(sources, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func approx(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: expected %v, got %v", what, want, got)
	}
}

func TestHybridLearnedWeighting(t *testing.T) {
	sources := Sources{
		Keyword:  staticSource(Result{ID: "A", Score: 0.8}),
		Semantic: staticSource(Result{ID: "A", Score: 0.6}, Result{ID: "B", Score: 0.9}),
		Graph:    emptySource(),
	}
	e := mustEngine(t, sources, testConfig(HybridLearned))

	results, md, err := e.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "A" || results[1].ID != "B" {
		t.Errorf("expected rank [A, B], got [%s, %s]", results[0].ID, results[1].ID)
	}
	approx(t, results[0].Score, 0.54, "combined score for A")
	approx(t, results[1].Score, 0.522, "combined score for B")

	for _, r := range results {
		if r.Source != SourceHybrid {
			t.Errorf("expected hybrid source label, got %q", r.Source)
		}
	}
	if md.Strategy != HybridLearned || md.FallbackTriggered {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.ResultsCount != 2 {
		t.Errorf("expected resultsCount 2, got %d", md.ResultsCount)
	}
}

func TestSingleSourceStrategies(t *testing.T) {
	keywordCalls, semanticCalls, graphCalls := 0, 0, 0
	sources := Sources{
		Keyword:  countedSource(&keywordCalls, staticSource(Result{ID: "k", Score: 0.9})),
		Semantic: countedSource(&semanticCalls, staticSource(Result{ID: "s", Score: 0.9})),
		Graph:    countedSource(&graphCalls, staticSource(Result{ID: "g", Score: 0.9})),
	}

	tests := []struct {
		strategy Strategy
		wantID   string
		wantSrc  Source
	}{
		{KeywordOnly, "k", SourceKeyword},
		{SemanticOnly, "s", SourceSemantic},
		{GraphOnly, "g", SourceGraph},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			e := mustEngine(t, sources, testConfig(tt.strategy))
			results, _, err := e.Retrieve(context.Background(), "q")
			if err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}
			if len(results) != 1 || results[0].ID != tt.wantID {
				t.Fatalf("expected single result %q, got %v", tt.wantID, results)
			}
			if results[0].Source != tt.wantSrc {
				t.Errorf("expected source %q, got %q", tt.wantSrc, results[0].Source)
			}
		})
	}

	if keywordCalls != 1 || semanticCalls != 1 || graphCalls != 1 {
		t.Errorf("each source should be called exactly once: keyword=%d semantic=%d graph=%d",
			keywordCalls, semanticCalls, graphCalls)
	}
}

func TestMinScoreFiltersBeforeTopK(t *testing.T) {
	sources := Sources{
		Keyword: staticSource(
			Result{ID: "high", Score: 0.9},
			Result{ID: "mid", Score: 0.5},
			Result{ID: "low", Score: 0.1},
		),
	}
	cfg := testConfig(KeywordOnly)
	cfg.MinScore = 0.3
	cfg.TopK = 2
	e := mustEngine(t, sources, cfg)

	results, _, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Score < 0.3 {
			t.Errorf("result %q below minScore: %v", r.ID, r.Score)
		}
	}
	if results[0].ID != "high" || results[1].ID != "mid" {
		t.Errorf("expected [high, mid], got [%s, %s]", results[0].ID, results[1].ID)
	}
}

func TestTopKTruncates(t *testing.T) {
	sources := Sources{
		Keyword: staticSource(
			Result{ID: "a", Score: 0.9},
			Result{ID: "b", Score: 0.8},
			Result{ID: "c", Score: 0.7},
		),
	}
	cfg := testConfig(KeywordOnly)
	cfg.TopK = 2
	e := mustEngine(t, sources, cfg)

	results, _, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected topK=2 to truncate, got %d results", len(results))
	}
}

func TestFallbackLowEvidence(t *testing.T) {
	keywordCalls := 0
	sources := Sources{
		Semantic: emptySource(),
		Keyword:  countedSource(&keywordCalls, staticSource(Result{ID: "fb", Score: 0.7})),
	}
	cfg := testConfig(SemanticOnly)
	cfg.Fallback = Fallback{
		Enabled:           true,
		Strategy:          KeywordOnly,
		Triggers:          Triggers{LowEvidence: true},
		EvidenceThreshold: 1,
	}
	e := mustEngine(t, sources, cfg)

	results, md, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "fb" {
		t.Fatalf("expected fallback result, got %v", results)
	}
	if !md.FallbackTriggered {
		t.Error("expected fallbackTriggered=true")
	}
	if md.FallbackReason != ReasonLowEvidence {
		t.Errorf("expected reason low_evidence, got %q", md.FallbackReason)
	}
	if md.Strategy != KeywordOnly {
		t.Errorf("metadata should report the strategy that produced results, got %q", md.Strategy)
	}
	if keywordCalls != 1 {
		t.Errorf("fallback should run exactly once, ran %d times", keywordCalls)
	}
}

func TestFallbackLowConfidence(t *testing.T) {
	sources := Sources{
		Semantic: staticSource(Result{ID: "weak", Score: 0.1}),
		Keyword:  staticSource(Result{ID: "strong", Score: 0.8}),
	}
	cfg := testConfig(SemanticOnly)
	cfg.Fallback = Fallback{
		Enabled:             true,
		Strategy:            KeywordOnly,
		Triggers:            Triggers{LowConfidence: true},
		ConfidenceThreshold: 0.5,
	}
	e := mustEngine(t, sources, cfg)

	results, md, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "strong" {
		t.Fatalf("expected fallback result, got %v", results)
	}
	if md.FallbackReason != ReasonLowConfidence {
		t.Errorf("expected reason low_confidence, got %q", md.FallbackReason)
	}
}

func TestFallbackTimeout(t *testing.T) {
	sources := Sources{
		Semantic: blockingSource(),
		Keyword:  staticSource(Result{ID: "fb", Score: 0.7}),
	}
	cfg := testConfig(SemanticOnly)
	cfg.SourceTimeout = 10 * time.Millisecond
	cfg.Fallback = Fallback{
		Enabled:  true,
		Strategy: KeywordOnly,
		Triggers: Triggers{Timeout: true},
	}
	e := mustEngine(t, sources, cfg)

	results, md, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "fb" {
		t.Fatalf("expected fallback result after timeout, got %v", results)
	}
	if md.FallbackReason != ReasonTimeout {
		t.Errorf("expected reason timeout, got %q", md.FallbackReason)
	}
}

func TestFallbackRetrievalError(t *testing.T) {
	sources := Sources{
		Semantic: failingSource(errors.New("index corrupted")),
		Keyword:  staticSource(Result{ID: "fb", Score: 0.7}),
	}
	cfg := testConfig(SemanticOnly)
	cfg.Fallback = Fallback{
		Enabled:  true,
		Strategy: KeywordOnly,
		Triggers: Triggers{LowEvidence: true},
	}
	e := mustEngine(t, sources, cfg)

	results, md, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("expected fallback to absorb the primary error, got %v", err)
	}
	if len(results) != 1 || results[0].ID != "fb" {
		t.Fatalf("expected fallback result, got %v", results)
	}
	if md.FallbackReason != ReasonRetrievalError {
		t.Errorf("expected reason retrieval_error, got %q", md.FallbackReason)
	}
}

func TestFallbackRunsAtMostOnce(t *testing.T) {
	semanticCalls, keywordCalls := 0, 0
	sources := Sources{
		Semantic: countedSource(&semanticCalls, emptySource()),
		Keyword:  countedSource(&keywordCalls, emptySource()),
	}
	cfg := testConfig(SemanticOnly)
	cfg.Fallback = Fallback{
		Enabled:           true,
		Strategy:          KeywordOnly,
		Triggers:          Triggers{LowEvidence: true},
		EvidenceThreshold: 1,
	}
	e := mustEngine(t, sources, cfg)

	results, md, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("empty results after fallback must not be an error, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
	if semanticCalls != 1 || keywordCalls != 1 {
		t.Errorf("expected one primary and one fallback attempt, got %d + %d",
			semanticCalls, keywordCalls)
	}
	if !md.FallbackTriggered || md.ResultsCount != 0 {
		t.Errorf("unexpected metadata: %+v", md)
	}
}

func TestFallbackDisabled(t *testing.T) {
	keywordCalls := 0
	sources := Sources{
		Semantic: emptySource(),
		Keyword:  countedSource(&keywordCalls, staticSource(Result{ID: "fb", Score: 0.7})),
	}
	e := mustEngine(t, sources, testConfig(SemanticOnly))

	results, md, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
	if md.FallbackTriggered || md.FallbackReason != ReasonNone {
		t.Errorf("fallback should not run when disabled: %+v", md)
	}
	if keywordCalls != 0 {
		t.Errorf("keyword source should not be called, was called %d times", keywordCalls)
	}
}

func TestHybridSurvivesFailedSource(t *testing.T) {
	sources := Sources{
		Keyword:  staticSource(Result{ID: "A", Score: 0.8}),
		Semantic: failingSource(errors.New("embedding service down")),
		Graph:    staticSource(Result{ID: "A", Score: 0.5}),
	}
	e := mustEngine(t, sources, testConfig(HybridCurrent))

	results, _, err := e.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "A" {
		t.Fatalf("expected merge of surviving sources, got %v", results)
	}
	// keyword 0.3*0.8 + graph 0.2*0.5
	approx(t, results[0].Score, 0.34, "score without the failed source")
}

func TestHybridAllSourcesFailed(t *testing.T) {
	boom := errors.New("boom")
	sources := Sources{
		Keyword:  failingSource(boom),
		Semantic: failingSource(boom),
		Graph:    failingSource(boom),
	}
	e := mustEngine(t, sources, testConfig(HybridLearned))

	_, _, err := e.Retrieve(context.Background(), "q")
	if err == nil {
		t.Fatal("expected an error when every source fails and no fallback is configured")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "vibes" }, true},
		{"fallback same as primary", func(c *Config) { c.Fallback.Strategy = c.Strategy }, true},
		{"unknown fallback", func(c *Config) { c.Fallback.Strategy = "vibes" }, true},
		{"zero topK", func(c *Config) { c.TopK = 0 }, true},
		{"minScore above one", func(c *Config) { c.MinScore = 1.5 }, true},
		{"fallback disabled skips fallback checks", func(c *Config) {
			c.Fallback.Enabled = false
			c.Fallback.Strategy = "vibes"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	if _, err := ParseStrategy("hybrid_learned"); err != nil {
		t.Errorf("expected hybrid_learned to parse: %v", err)
	}
	if _, err := ParseStrategy("nonsense"); err == nil {
		t.Error("expected error for unknown strategy name")
	}
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights(HybridLearned)
	approx(t, w.Keyword, 0.24, "learned keyword weight")
	approx(t, w.Semantic, 0.58, "learned semantic weight")
	approx(t, w.Graph, 0.18, "learned graph weight")

	w = DefaultWeights(HybridCurrent)
	approx(t, w.Keyword, 0.3, "current keyword weight")
	approx(t, w.Semantic, 0.5, "current semantic weight")
	approx(t, w.Graph, 0.2, "current graph weight")

	if DefaultWeights(KeywordOnly).Keyword != 1 {
		t.Error("single source strategies weight their source at 1")
	}
}

// Retrieval strategy engine.
//
// Information Hiding:
// - Source fan-out, weighting, and fallback policy are internal
// - Callers see ranked results plus an audit metadata record

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source labels where a result's score came from.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceSemantic Source = "semantic"
	SourceGraph    Source = "graph"
	SourceHybrid   Source = "hybrid"
)

// Result is one ranked document.
type Result struct {
	ID     string
	Title  string
	Score  float64
	Source Source
}

// FallbackReason records why the fallback strategy ran.
type FallbackReason string

const (
	ReasonNone           FallbackReason = "none"
	ReasonTimeout        FallbackReason = "timeout"
	ReasonLowEvidence    FallbackReason = "low_evidence"
	ReasonLowConfidence  FallbackReason = "low_confidence"
	ReasonRetrievalError FallbackReason = "retrieval_error"
)

// Metadata is the per-call audit record. It is created once per call
// and never mutated afterwards.
type Metadata struct {
	Strategy          Strategy
	FallbackTriggered bool
	FallbackReason    FallbackReason
	ResultsCount      int
	ExecutionTimeMs   int64
}

// SourceFunc queries one underlying source. Scores must be in [0,1].
type SourceFunc func(ctx context.Context, query string, limit int) ([]Result, error)

// Sources supplies the three underlying query functions. A nil entry
// means the source is unavailable and contributes nothing.
type Sources struct {
	Keyword  SourceFunc
	Semantic SourceFunc
	Graph    SourceFunc
}

// Engine executes retrieval strategies over the configured sources.
type Engine struct {
	sources Sources
	cfg     Config
	logger  *zap.Logger
}

// NewEngine builds an engine. The config is validated and copied;
// changing the caller's copy later has no effect.
func NewEngine(sources Sources, cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retrieval config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{sources: sources, cfg: cfg, logger: logger}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Retrieve runs the configured strategy for a query, applying the
// fallback policy at most once. An empty result slice with a nil error
// is a valid outcome.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]Result, Metadata, error) {
	start := time.Now()

	results, timedOut, err := e.runStrategy(ctx, query, e.cfg.Strategy, e.cfg.Weights)

	reason := ReasonNone
	switch {
	case err != nil:
		reason = ReasonRetrievalError
	case timedOut && e.cfg.Fallback.Triggers.Timeout:
		reason = ReasonTimeout
	case e.cfg.Fallback.Triggers.LowEvidence && len(results) < e.cfg.Fallback.EvidenceThreshold:
		reason = ReasonLowEvidence
	case e.cfg.Fallback.Triggers.LowConfidence && len(results) > 0 && results[0].Score < e.cfg.Fallback.ConfidenceThreshold:
		reason = ReasonLowConfidence
	}

	strategy := e.cfg.Strategy
	triggered := false

	if reason != ReasonNone && e.cfg.Fallback.Enabled {
		e.logger.Info("retrieval fallback triggered",
			zap.String("primary", string(e.cfg.Strategy)),
			zap.String("fallback", string(e.cfg.Fallback.Strategy)),
			zap.String("reason", string(reason)))

		fbResults, _, fbErr := e.runStrategy(ctx, query, e.cfg.Fallback.Strategy, DefaultWeights(e.cfg.Fallback.Strategy))
		if fbErr != nil {
			if err != nil {
				// both attempts failed; surface the primary error
				return nil, e.metadata(strategy, true, reason, 0, start), err
			}
			return nil, e.metadata(strategy, true, reason, 0, start), fbErr
		}

		results = fbResults
		strategy = e.cfg.Fallback.Strategy
		triggered = true
		err = nil
	} else if err != nil {
		return nil, e.metadata(strategy, false, ReasonNone, 0, start), err
	} else {
		reason = ReasonNone
	}

	md := e.metadata(strategy, triggered, reason, len(results), start)

	e.logger.Debug("retrieval complete",
		zap.String("strategy", string(md.Strategy)),
		zap.Bool("fallback", md.FallbackTriggered),
		zap.Int("results", md.ResultsCount),
		zap.Int64("elapsed_ms", md.ExecutionTimeMs))

	return results, md, nil
}

func (e *Engine) metadata(s Strategy, triggered bool, reason FallbackReason, count int, start time.Time) Metadata {
	if !triggered {
		reason = ReasonNone
	}
	return Metadata{
		Strategy:          s,
		FallbackTriggered: triggered,
		FallbackReason:    reason,
		ResultsCount:      count,
		ExecutionTimeMs:   time.Since(start).Milliseconds(),
	}
}

// runStrategy executes one strategy and reports whether any source
// timed out while doing so.
func (e *Engine) runStrategy(ctx context.Context, query string, strategy Strategy, weights Weights) ([]Result, bool, error) {
	switch strategy {
	case KeywordOnly:
		return e.runSingle(ctx, query, e.sources.Keyword, SourceKeyword)
	case SemanticOnly:
		return e.runSingle(ctx, query, e.sources.Semantic, SourceSemantic)
	case GraphOnly:
		return e.runSingle(ctx, query, e.sources.Graph, SourceGraph)
	default:
		return e.runHybrid(ctx, query, weights)
	}
}

func (e *Engine) runSingle(ctx context.Context, query string, src SourceFunc, label Source) ([]Result, bool, error) {
	if src == nil {
		return nil, false, fmt.Errorf("%s source not configured", label)
	}

	results, timedOut, err := e.callSource(ctx, query, src, label)
	if err != nil {
		if timedOut {
			return nil, true, nil
		}
		return nil, false, err
	}

	return e.rank(results), timedOut, nil
}

// sourceOutcome holds one source's contribution to a hybrid merge.
type sourceOutcome struct {
	results  []Result
	timedOut bool
	err      error
}

func (e *Engine) runHybrid(ctx context.Context, query string, weights Weights) ([]Result, bool, error) {
	calls := []struct {
		src    SourceFunc
		label  Source
		weight float64
	}{
		{e.sources.Keyword, SourceKeyword, weights.Keyword},
		{e.sources.Semantic, SourceSemantic, weights.Semantic},
		{e.sources.Graph, SourceGraph, weights.Graph},
	}

	outcomes := make([]sourceOutcome, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		if call.src == nil || call.weight == 0 {
			continue
		}
		i, call := i, call
		g.Go(func() error {
			results, timedOut, err := e.callSource(gctx, query, call.src, call.label)
			outcomes[i] = sourceOutcome{results: results, timedOut: timedOut, err: err}
			// a failed source must not cancel its siblings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	type partial struct {
		title string
		score float64
	}
	combined := make(map[string]*partial)

	timedOut := false
	failures := 0
	active := 0

	for i, call := range calls {
		if call.src == nil || call.weight == 0 {
			continue
		}
		active++

		out := outcomes[i]
		if out.timedOut {
			timedOut = true
			continue
		}
		if out.err != nil {
			failures++
			e.logger.Warn("retrieval source failed",
				zap.String("source", string(call.label)),
				zap.Error(out.err))
			continue
		}

		for _, r := range out.results {
			p, ok := combined[r.ID]
			if !ok {
				p = &partial{title: r.Title}
				combined[r.ID] = p
			}
			if p.title == "" {
				p.title = r.Title
			}
			p.score += call.weight * r.Score
		}
	}

	if active > 0 && failures == active {
		return nil, timedOut, errors.New("all retrieval sources failed")
	}

	merged := make([]Result, 0, len(combined))
	for id, p := range combined {
		merged = append(merged, Result{ID: id, Title: p.title, Score: p.score, Source: SourceHybrid})
	}

	return e.rank(merged), timedOut, nil
}

// callSource runs one source under the per-source timeout budget.
func (e *Engine) callSource(ctx context.Context, query string, src SourceFunc, label Source) ([]Result, bool, error) {
	if e.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SourceTimeout)
		defer cancel()
	}

	results, err := src(ctx, query, e.cfg.TopK*3)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, true, err
		}
		return nil, false, fmt.Errorf("%s source: %w", label, err)
	}
	for i := range results {
		results[i].Source = label
	}
	return results, false, nil
}

// rank filters by minScore, sorts, and truncates to topK.
func (e *Engine) rank(results []Result) []Result {
	filtered := results[:0]
	for _, r := range results {
		if r.Score >= e.cfg.MinScore {
			filtered = append(filtered, r)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].ID < filtered[j].ID
	})

	if len(filtered) > e.cfg.TopK {
		filtered = filtered[:e.cfg.TopK]
	}
	return filtered
}

package ptv

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/velocity.ptv/internal/monitoring"
	"github.com/banshee-data/velocity.ptv/internal/timeutil"
)

// StageTimings records wall time spent in each stage of a run.
type StageTimings struct {
	Neighbors     time.Duration `json:"neighbors_ns"`
	Probabilities time.Duration `json:"probabilities_ns"`
	Compatibility time.Duration `json:"compatibility_ns"`
	Relaxation    time.Duration `json:"relaxation_ns"`
	Extraction    time.Duration `json:"extraction_ns"`
}

// Total sums all stages.
func (t StageTimings) Total() time.Duration {
	return t.Neighbors + t.Probabilities + t.Compatibility + t.Relaxation + t.Extraction
}

// Result is everything one correspondence run produced.
type Result struct {
	SourcePoints  int
	TargetPoints  int
	SelfNeighbors NeighborSet
	Candidates    NeighborSet
	Probabilities *ProbabilitySet
	Matches       []Match
	Iterations    int
	Timings       StageTimings
}

// Matched returns the number of source points that found a target.
func (r *Result) Matched() int { return MatchCount(r.Matches) }

// Engine runs the full correspondence pipeline for ordered frame pairs.
// An Engine holds no per-run state and may be reused, including from
// several goroutines when no Observer is attached.
type Engine struct {
	params   Params
	observer Observer
	clock    timeutil.Clock
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithObserver attaches an Observer to every solver run.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithClock replaces the clock used for StageTimings.
func WithClock(c timeutil.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// NewEngine validates params, filling zero-valued enums with defaults.
func NewEngine(params Params, opts ...EngineOption) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Index == "" {
		params.Index = IndexScan
	}
	if params.SelfRowPolicy == "" {
		params.SelfRowPolicy = SelfRowAbort
	}
	if params.Workers == 0 {
		params.Workers = 1
	}
	e := &Engine{params: params, clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the engine's effective parameters.
func (e *Engine) Params() Params { return e.params }

// Correspond matches every point of source (frame A) to at most one point
// of target (frame B).
func (e *Engine) Correspond(ctx context.Context, source, target Cloud) (*Result, error) {
	p := e.params
	res := &Result{SourcePoints: len(source), TargetPoints: len(target)}

	monitoring.Debugf("[ptv] Neighbor sets... (%d source, %d target points)", len(source), len(target))
	start := e.clock.Now()
	res.SelfNeighbors = BuildSelfNeighborSet(source, p.NeighborRadius, WithIndex(p.Index))
	res.Candidates = BuildNeighborSet(source, target, p.SearchRadius, WithIndex(p.Index))
	res.Timings.Neighbors = e.clock.Since(start)

	monitoring.Debugf("[ptv] Probability sets...")
	start = e.clock.Now()
	buf := NewProbabilitySets(res.SelfNeighbors, res.Candidates)
	res.Timings.Probabilities = e.clock.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	monitoring.Debugf("[ptv] Relaxation sets...")
	start = e.clock.Now()
	theta := BuildCompatibilitySets(source, target, res.SelfNeighbors, res.Candidates, p.Coefficients, p.Workers)
	res.Timings.Compatibility = e.clock.Since(start)

	monitoring.Debugf("[ptv] Solving... (%d iterations)", p.Iterations)
	start = e.clock.Now()
	solver, err := NewSolver(buf, theta, SolverConfig{
		A:          p.A,
		B:          p.B,
		Iterations: p.Iterations,
		Workers:    p.Workers,
		Observer:   e.observer,
	})
	if err != nil {
		return nil, err
	}
	res.Probabilities, err = solver.Run(ctx)
	res.Iterations = solver.Iteration()
	res.Timings.Relaxation = e.clock.Since(start)
	if err != nil {
		return nil, err
	}

	start = e.clock.Now()
	res.Matches, err = ExtractMatches(res.Probabilities, res.SelfNeighbors, res.Candidates, p.MatchThreshold, p.SelfRowPolicy)
	res.Timings.Extraction = e.clock.Since(start)
	if err != nil {
		return nil, fmt.Errorf("extract matches: %w", err)
	}

	monitoring.Logf("[ptv] matched %d/%d particles in %v", res.Matched(), len(source), res.Timings.Total())
	return res, nil
}

// Package debug provides instrumentation for the relaxation solver.
// The Collector captures per-iteration and per-anchor solver state for
// convergence plots and tuning of the relaxation coefficients.
package debug

import (
	"math"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
)

// defaultIterationCapacity matches the default solver budget.
const defaultIterationCapacity = ptv.DefaultIterations

// Collector accumulates debug artifacts during a single correspondence run.
// It implements ptv.Observer; attach it with ptv.WithObserver.
//
// The collector is stateful: call BeginRun() before solving, then Emit() once
// the run completes to extract the artifacts. Reset() discards a pending run.
type Collector struct {
	enabled       bool
	recordAnchors bool
	current       *RunTrace
}

// RunTrace contains all debug artifacts for one frame pair.
type RunTrace struct {
	RunID string

	// Iterations holds one summary per completed solver pass.
	Iterations []IterationRecord

	// Anchors holds per-anchor state, only when anchor recording is on.
	Anchors []AnchorRecord
}

// IterationRecord summarises the probability field after one pass.
type IterationRecord struct {
	Iteration  int
	Rows       int     // total rows across anchors
	MeanRowMax float64 // mean over rows of the largest candidate probability
	MeanNull   float64 // mean null-label probability
	// MaxRowSumError is max |Σ_j Pij + Pi - 1| over all rows.
	MaxRowSumError float64
	// Decided counts rows whose largest candidate exceeds the default
	// match threshold.
	Decided int
}

// AnchorRecord captures one anchor's state after one pass.
type AnchorRecord struct {
	Iteration int
	Anchor    int
	Rows      int
	Cols      int
	MaxProb   float64 // largest Pij entry of the anchor
	MeanNull  float64
}

// NewCollector creates a collector that's initially disabled.
// Call SetEnabled(true) to begin collecting artifacts.
func NewCollector() *Collector {
	return &Collector{}
}

// SetEnabled controls whether the collector records artifacts.
// When disabled, all observer calls are no-ops.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled returns true if the collector is actively recording.
func (c *Collector) IsEnabled() bool {
	return c.enabled
}

// SetRecordAnchors toggles per-anchor records. They grow with
// anchors × iterations, so they are off by default.
func (c *Collector) SetRecordAnchors(on bool) {
	c.recordAnchors = on
}

// BeginRun initialises collection for a new run.
// Must be called before the solver starts.
func (c *Collector) BeginRun(runID string) {
	if !c.enabled {
		return
	}
	c.current = &RunTrace{
		RunID:      runID,
		Iterations: make([]IterationRecord, 0, defaultIterationCapacity),
	}
}

// OnAnchor implements ptv.Observer.
func (c *Collector) OnAnchor(iteration, anchor int, p *ptv.AnchorProbabilities) {
	if !c.enabled || !c.recordAnchors || c.current == nil {
		return
	}
	rec := AnchorRecord{
		Iteration: iteration,
		Anchor:    anchor,
		Rows:      p.Rows(),
		Cols:      p.Cols(),
	}
	for i := 0; i < p.Rows(); i++ {
		for _, v := range p.Row(i) {
			rec.MaxProb = math.Max(rec.MaxProb, v)
		}
		rec.MeanNull += p.Pi[i]
	}
	if p.Rows() > 0 {
		rec.MeanNull /= float64(p.Rows())
	}
	c.current.Anchors = append(c.current.Anchors, rec)
}

// OnIteration implements ptv.Observer.
func (c *Collector) OnIteration(iteration int, current *ptv.ProbabilitySet) {
	if !c.enabled || c.current == nil {
		return
	}
	rec := IterationRecord{Iteration: iteration}
	var sumMax, sumNull float64
	for k := range current.Anchors {
		a := current.Anchor(k)
		for i := 0; i < a.Rows(); i++ {
			rowMax := 0.0
			for _, v := range a.Row(i) {
				rowMax = math.Max(rowMax, v)
			}
			sumMax += rowMax
			sumNull += a.Pi[i]
			if rowMax > ptv.DefaultMatchThreshold {
				rec.Decided++
			}
			rec.MaxRowSumError = math.Max(rec.MaxRowSumError, math.Abs(a.RowSum(i)-1))
			rec.Rows++
		}
	}
	if rec.Rows > 0 {
		rec.MeanRowMax = sumMax / float64(rec.Rows)
		rec.MeanNull = sumNull / float64(rec.Rows)
	}
	c.current.Iterations = append(c.current.Iterations, rec)
}

// Emit returns the accumulated trace and prepares for the next run.
// Returns nil if collection is disabled or no run was begun.
func (c *Collector) Emit() *RunTrace {
	if !c.enabled || c.current == nil {
		return nil
	}
	trace := c.current
	c.current = nil
	return trace
}

// Reset clears any pending artifacts without emitting them.
func (c *Collector) Reset() {
	c.current = nil
}

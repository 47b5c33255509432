package ptv

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// SolverState is the relaxation solver's lifecycle.
type SolverState int

const (
	// Iterating: fewer than Iterations passes have completed.
	Iterating SolverState = iota
	// Converged: the fixed iteration budget is spent. No tolerance test is
	// involved; oscillating problems are reported as converged too.
	Converged
)

func (s SolverState) String() string {
	switch s {
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	}
	return fmt.Sprintf("SolverState(%d)", int(s))
}

// Observer receives the solver's intermediate state. Calls are made from the
// solving goroutine, after the iteration barrier, in anchor order. The
// probability sets passed in must not be retained or mutated.
type Observer interface {
	// OnAnchor is called once per anchor per iteration with the anchor's
	// freshly normalised matrices.
	OnAnchor(iteration, anchor int, p *AnchorProbabilities)
	// OnIteration is called after every normalise-and-swap with the new
	// current set.
	OnIteration(iteration int, current *ProbabilitySet)
}

// SolverConfig holds the update-rule weights and iteration budget.
type SolverConfig struct {
	A          float64
	B          float64
	Iterations int
	Workers    int
	Observer   Observer
}

// Solver runs the synchronous relaxation update over a double buffer.
type Solver struct {
	cfg   SolverConfig
	buf   ProbabilityBuffers
	theta []CompatibilitySet
	n     int
}

// NewSolver validates that buf and theta describe the same anchors.
func NewSolver(buf ProbabilityBuffers, theta []CompatibilitySet, cfg SolverConfig) (*Solver, error) {
	if buf.Current == nil || buf.Next == nil {
		return nil, fmt.Errorf("%w: nil probability buffer", ErrShapeMismatch)
	}
	if len(buf.Current.Anchors) != len(theta) || len(buf.Next.Anchors) != len(theta) {
		return nil, fmt.Errorf("%w: %d/%d anchors vs %d compatibility sets",
			ErrShapeMismatch, len(buf.Current.Anchors), len(buf.Next.Anchors), len(theta))
	}
	for k := range theta {
		a := &buf.Current.Anchors[k]
		if a.Rows() != theta[k].Rows || a.Cols() != theta[k].Cols {
			return nil, fmt.Errorf("%w: anchor %d is %dx%d, compatibility set is %dx%d",
				ErrShapeMismatch, k, a.Rows(), a.Cols(), theta[k].Rows, theta[k].Cols)
		}
	}
	return &Solver{cfg: cfg, buf: buf, theta: theta}, nil
}

// State reports whether the iteration budget is exhausted.
func (s *Solver) State() SolverState {
	if s.n >= s.cfg.Iterations {
		return Converged
	}
	return Iterating
}

// Iteration returns the number of completed passes.
func (s *Solver) Iteration() int { return s.n }

// Current returns the latest row-stochastic probability set.
func (s *Solver) Current() *ProbabilitySet { return s.buf.Current }

// updateAnchor writes
//
//	next(i,j) = cur(i,j) · (A + B · Σ_{(p,q) ∈ theta[k][i][j]} cur(p,q))
//
// for every candidate pair, carries the null column over unchanged and
// renormalises. It reads only cur.
func (s *Solver) updateAnchor(k int) {
	cur := &s.buf.Current.Anchors[k]
	next := &s.buf.Next.Anchors[k]
	theta := &s.theta[k]

	for i := 0; i < cur.Rows(); i++ {
		for j := 0; j < cur.Cols(); j++ {
			support := 0.0
			for _, pq := range theta.Compatible(i, j) {
				support += cur.Pij.At(pq.Row, pq.Col)
			}
			next.Pij.Set(i, j, cur.Pij.At(i, j)*(s.cfg.A+s.cfg.B*support))
		}
	}
	copy(next.Pi, cur.Pi)
	next.normalize()
}

// Step performs one synchronous iteration. It is a no-op once Converged.
func (s *Solver) Step() {
	if s.State() == Converged {
		return
	}

	anchors := len(s.theta)
	if s.cfg.Workers <= 1 {
		for k := 0; k < anchors; k++ {
			s.updateAnchor(k)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.cfg.Workers)
		for k := 0; k < anchors; k++ {
			g.Go(func() error {
				s.updateAnchor(k)
				return nil
			})
		}
		_ = g.Wait() // barrier between iterations
	}

	s.buf.swap()
	s.n++

	if obs := s.cfg.Observer; obs != nil {
		for k := range s.buf.Current.Anchors {
			obs.OnAnchor(s.n, k, &s.buf.Current.Anchors[k])
		}
		obs.OnIteration(s.n, s.buf.Current)
	}
}

// Run steps until Converged, checking ctx between iterations. On
// cancellation the current set is the last completed iteration and still
// row-stochastic.
func (s *Solver) Run(ctx context.Context) (*ProbabilitySet, error) {
	for s.State() == Iterating {
		if err := ctx.Err(); err != nil {
			return s.buf.Current, fmt.Errorf("relaxation stopped after %d of %d iterations: %w",
				s.n, s.cfg.Iterations, err)
		}
		s.Step()
	}
	return s.buf.Current, nil
}

// Relax runs cfg.Iterations synchronous updates of buf using theta and
// returns the converged set.
func Relax(ctx context.Context, buf ProbabilityBuffers, theta []CompatibilitySet, cfg SolverConfig) (*ProbabilitySet, error) {
	s, err := NewSolver(buf, theta, cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

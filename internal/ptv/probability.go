package ptv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AnchorProbabilities is the local correspondence problem of one anchor k.
// Row i is the i-th neighbour of k in the source frame, column j the j-th
// candidate of k in the target frame, and Pi[i] the null label ("no match")
// of row i.
//
// Invariant after every normalisation: Σ_j Pij(i,j) + Pi[i] == 1.
type AnchorProbabilities struct {
	// Pij is nil when the anchor has no rows or no candidates; gonum
	// matrices cannot have a zero dimension.
	Pij *mat.Dense
	Pi  []float64

	rows, cols int
}

func newAnchorProbabilities(rows, cols int) AnchorProbabilities {
	a := AnchorProbabilities{
		Pi:   make([]float64, rows),
		rows: rows,
		cols: cols,
	}
	uniform := 1.0 / float64(cols+1)
	for i := range a.Pi {
		a.Pi[i] = uniform
	}
	if rows > 0 && cols > 0 {
		data := make([]float64, rows*cols)
		for i := range data {
			data[i] = uniform
		}
		a.Pij = mat.NewDense(rows, cols, data)
	}
	return a
}

// Rows returns the number of neighbours of the anchor.
func (a *AnchorProbabilities) Rows() int { return a.rows }

// Cols returns the number of candidates of the anchor.
func (a *AnchorProbabilities) Cols() int { return a.cols }

// At returns Pij(i, j).
func (a *AnchorProbabilities) At(i, j int) float64 { return a.Pij.At(i, j) }

// Row returns the candidate probabilities of row i without copying. The
// slice is empty for an anchor with no candidates.
func (a *AnchorProbabilities) Row(i int) []float64 {
	if a.Pij == nil {
		return nil
	}
	return a.Pij.RawRowView(i)
}

// RowSum returns Σ_j Pij(i,j) + Pi[i].
func (a *AnchorProbabilities) RowSum(i int) float64 {
	return floats.Sum(a.Row(i)) + a.Pi[i]
}

// copyFrom overwrites a with src. Shapes must match.
func (a *AnchorProbabilities) copyFrom(src *AnchorProbabilities) {
	if a.Pij != nil {
		a.Pij.Copy(src.Pij)
	}
	copy(a.Pi, src.Pi)
}

// normalize rescales every row (plus its null entry) to sum to one. A row
// whose total is zero is left untouched.
func (a *AnchorProbabilities) normalize() {
	for i := 0; i < a.rows; i++ {
		sum := a.RowSum(i)
		if sum == 0 || math.IsNaN(sum) {
			continue
		}
		if row := a.Row(i); len(row) > 0 {
			floats.Scale(1/sum, row)
		}
		a.Pi[i] /= sum
	}
}

// ProbabilitySet holds the matrices of every anchor of one run.
type ProbabilitySet struct {
	Anchors []AnchorProbabilities
}

// Anchor returns the matrices of anchor k.
func (p *ProbabilitySet) Anchor(k int) *AnchorProbabilities { return &p.Anchors[k] }

// Normalize re-establishes the row-stochastic invariant on every anchor.
// Normalising an already row-stochastic set is a no-op up to rounding.
func (p *ProbabilitySet) Normalize() {
	for k := range p.Anchors {
		p.Anchors[k].normalize()
	}
}

// CheckStochastic returns an error naming the first row whose sum deviates
// from one by more than tol.
func (p *ProbabilitySet) CheckStochastic(tol float64) error {
	for k := range p.Anchors {
		a := &p.Anchors[k]
		for i := 0; i < a.rows; i++ {
			if s := a.RowSum(i); math.Abs(s-1) > tol {
				return fmt.Errorf("anchor %d row %d sums to %.12f", k, i, s)
			}
		}
	}
	return nil
}

// ProbabilityBuffers is the double buffer the solver iterates over: Current
// is read, Next is written, and the two are swapped after each pass.
type ProbabilityBuffers struct {
	Current *ProbabilitySet
	Next    *ProbabilitySet
}

func (b *ProbabilityBuffers) swap() {
	b.Current, b.Next = b.Next, b.Current
}

// NewProbabilitySets allocates, for each anchor k, a |sr[k]|×|sc[k]| matrix
// and a null vector with every entry 1/(|sc[k]|+1). Current and Next start
// identical and share no storage. An anchor without candidates gets a null
// vector of ones.
func NewProbabilitySets(sr, sc NeighborSet) ProbabilityBuffers {
	n := sr.Len()
	cur := &ProbabilitySet{Anchors: make([]AnchorProbabilities, n)}
	next := &ProbabilitySet{Anchors: make([]AnchorProbabilities, n)}
	for k := 0; k < n; k++ {
		rows, cols := len(sr.Of(k)), 0
		if k < sc.Len() {
			cols = len(sc.Of(k))
		}
		cur.Anchors[k] = newAnchorProbabilities(rows, cols)
		next.Anchors[k] = newAnchorProbabilities(rows, cols)
	}
	return ProbabilityBuffers{Current: cur, Next: next}
}

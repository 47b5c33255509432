package ptv

import (
	"golang.org/x/sync/errgroup"
)

// Pair addresses one candidate correspondence (neighbour row, candidate
// column) inside an anchor's local problem.
type Pair struct {
	Row, Col int
}

// CompatibilitySet is theta[k] for one anchor: for each candidate pair
// (i,j), the pairs (p,q) whose implied displacement agrees with it. Built
// once per run and read-only while solving.
type CompatibilitySet struct {
	Anchor int
	Rows   int
	Cols   int

	pairs map[Pair][]Pair
}

// Compatible returns theta[k][i][j]. The pair itself is always a member.
func (c *CompatibilitySet) Compatible(i, j int) []Pair {
	return c.pairs[Pair{Row: i, Col: j}]
}

// Size returns the total number of (i,j)→(p,q) relations in the set.
func (c *CompatibilitySet) Size() int {
	n := 0
	for _, v := range c.pairs {
		n += len(v)
	}
	return n
}

// buildAnchorCompatibility evaluates the rigid-local-motion test for every
// ordered pair of candidate correspondences of anchor k:
//
//	d_ij = source[S_r[k][i]] - target[S_c[k][j]]
//	(p,q) ∈ theta[k][i][j]  ⇔  |d_ij - d_pq| < E + F·|d_ij|
//
// The tolerance grows with the displacement magnitude, absorbing
// measurement noise that scales with particle motion. C and D do not enter
// the test.
func buildAnchorCompatibility(source, target Cloud, rows, cols []int, k int, e, f float64) CompatibilitySet {
	nr, nc := len(rows), len(cols)
	set := CompatibilitySet{
		Anchor: k,
		Rows:   nr,
		Cols:   nc,
		pairs:  make(map[Pair][]Pair, nr*nc),
	}

	d := make([]Point, nr*nc)
	mag := make([]float64, nr*nc)
	for i, si := range rows {
		for j, tj := range cols {
			d[i*nc+j] = Displacement(source[si], target[tj])
			mag[i*nc+j] = Distance(source[si], target[tj])
		}
	}

	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			ij := i*nc + j
			tol := e + f*mag[ij]
			var members []Pair
			for p := 0; p < nr; p++ {
				for q := 0; q < nc; q++ {
					if Distance(d[ij], d[p*nc+q]) < tol {
						members = append(members, Pair{Row: p, Col: q})
					}
				}
			}
			set.pairs[Pair{Row: i, Col: j}] = members
		}
	}
	return set
}

// BuildCompatibilitySets returns theta for every anchor of sr. Anchors are
// independent, so with workers > 1 they are built concurrently; the result
// is identical to the sequential build.
//
// This is the dominant cost of the engine: O(|S_r[k]|²·|S_c[k]|²) distance
// tests and up to as many stored pairs per anchor.
func BuildCompatibilitySets(source, target Cloud, sr, sc NeighborSet, c Coefficients, workers int) []CompatibilitySet {
	theta := make([]CompatibilitySet, sr.Len())
	build := func(k int) {
		var cols []int
		if k < sc.Len() {
			cols = sc.Of(k)
		}
		theta[k] = buildAnchorCompatibility(source, target, sr.Of(k), cols, k, c.E, c.F)
	}

	if workers <= 1 {
		for k := range theta {
			build(k)
		}
		return theta
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for k := range theta {
		g.Go(func() error {
			build(k)
			return nil
		})
	}
	_ = g.Wait() // build never fails
	return theta
}

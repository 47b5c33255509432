package ptv_test

import (
	"github.com/banshee-data/velocity.ptv/internal/ptv"
	"github.com/banshee-data/velocity.ptv/internal/testutil"
)

// fourPointPair is four particles and their +1 unit translation along x.
func fourPointPair() (a, b ptv.Cloud) {
	a = ptv.Cloud{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
		{X: 0, Y: 0, Z: 2},
	}
	return a, testutil.Translate(a, ptv.Point{X: 1})
}

// solveSetup builds every input the solver needs for a frame pair.
func solveSetup(a, b ptv.Cloud, rn, rs float64) (sr, sc ptv.NeighborSet, buf ptv.ProbabilityBuffers, theta []ptv.CompatibilitySet) {
	sr = ptv.BuildSelfNeighborSet(a, rn)
	sc = ptv.BuildNeighborSet(a, b, rs)
	buf = ptv.NewProbabilitySets(sr, sc)
	theta = ptv.BuildCompatibilitySets(a, b, sr, sc, ptv.DefaultCoefficients(), 1)
	return sr, sc, buf, theta
}

// stochasticObserver records the worst row-sum error seen at each iteration.
type stochasticObserver struct {
	iterations []int
	anchors    int
	worst      []error
}

func (o *stochasticObserver) OnAnchor(iteration, anchor int, p *ptv.AnchorProbabilities) {
	o.anchors++
}

func (o *stochasticObserver) OnIteration(iteration int, current *ptv.ProbabilitySet) {
	o.iterations = append(o.iterations, iteration)
	o.worst = append(o.worst, current.CheckStochastic(1e-9))
}

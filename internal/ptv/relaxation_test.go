package ptv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
	"github.com/banshee-data/velocity.ptv/internal/testutil"
)

func defaultSolverConfig() ptv.SolverConfig {
	c := ptv.DefaultCoefficients()
	return ptv.SolverConfig{A: c.A, B: c.B, Iterations: ptv.DefaultIterations}
}

func TestRelax_RowStochasticAfterEveryIteration(t *testing.T) {
	a := testutil.PseudoRandomCloud(30, 17, 10)
	b := testutil.Translate(a, ptv.Point{X: 0.5, Y: -0.3})
	_, _, buf, theta := solveSetup(a, b, 4, 2)

	obs := &stochasticObserver{}
	cfg := defaultSolverConfig()
	cfg.Observer = obs

	p, err := ptv.Relax(context.Background(), buf, theta, cfg)
	require.NoError(t, err)
	require.NoError(t, p.CheckStochastic(1e-9))

	require.Len(t, obs.iterations, ptv.DefaultIterations)
	for n, err := range obs.worst {
		assert.NoError(t, err, "iteration %d", n+1)
	}
	assert.Equal(t, 1, obs.iterations[0])
	assert.Equal(t, ptv.DefaultIterations, obs.iterations[len(obs.iterations)-1])
	assert.Equal(t, len(a)*ptv.DefaultIterations, obs.anchors)
}

func TestSolver_StateMachine(t *testing.T) {
	a, b := fourPointPair()
	_, _, buf, theta := solveSetup(a, b, 5, 5)

	cfg := defaultSolverConfig()
	cfg.Iterations = 3
	s, err := ptv.NewSolver(buf, theta, cfg)
	require.NoError(t, err)

	assert.Equal(t, ptv.Iterating, s.State())
	assert.Equal(t, "iterating", s.State().String())
	s.Step()
	s.Step()
	assert.Equal(t, 2, s.Iteration())
	assert.Equal(t, ptv.Iterating, s.State())
	s.Step()
	assert.Equal(t, ptv.Converged, s.State())
	assert.Equal(t, "converged", s.State().String())

	// Further steps are no-ops.
	before := s.Current().Anchor(0).At(0, 0)
	s.Step()
	assert.Equal(t, 3, s.Iteration())
	assert.Equal(t, before, s.Current().Anchor(0).At(0, 0))
}

func TestSolver_FirstIterationValues(t *testing.T) {
	// Worked by hand: every entry starts at 1/5. A true pair has four
	// compatible pairs (support 0.8), a wrong pair only itself (0.2).
	//   true  = 0.2·(0.3 + 3·0.8) = 0.54
	//   wrong = 0.2·(0.3 + 3·0.2) = 0.18
	//   null  = 0.2
	// Row total = 0.54 + 3·0.18 + 0.2 = 1.28.
	a, b := fourPointPair()
	_, _, buf, theta := solveSetup(a, b, 5, 5)

	cfg := defaultSolverConfig()
	cfg.Iterations = 1
	p, err := ptv.Relax(context.Background(), buf, theta, cfg)
	require.NoError(t, err)

	an := p.Anchor(0)
	assert.InDelta(t, 0.54/1.28, an.At(0, 0), 1e-12)
	assert.InDelta(t, 0.18/1.28, an.At(0, 1), 1e-12)
	assert.InDelta(t, 0.2/1.28, an.Pi[0], 1e-12)
}

func TestRelax_ParallelMatchesSequential(t *testing.T) {
	a := testutil.PseudoRandomCloud(35, 23, 10)
	b := testutil.Translate(a, ptv.Point{Z: 0.7})

	_, _, buf1, theta1 := solveSetup(a, b, 4, 2)
	_, _, buf2, theta2 := solveSetup(a, b, 4, 2)

	cfg := defaultSolverConfig()
	seq, err := ptv.Relax(context.Background(), buf1, theta1, cfg)
	require.NoError(t, err)

	cfg.Workers = 4
	par, err := ptv.Relax(context.Background(), buf2, theta2, cfg)
	require.NoError(t, err)

	for k := range seq.Anchors {
		s, p := seq.Anchor(k), par.Anchor(k)
		require.Equal(t, s.Rows(), p.Rows())
		for i := 0; i < s.Rows(); i++ {
			assert.Equal(t, s.Row(i), p.Row(i), "anchor %d row %d", k, i)
			assert.Equal(t, s.Pi[i], p.Pi[i])
		}
	}
}

func TestRelax_Cancelled(t *testing.T) {
	a, b := fourPointPair()
	_, _, buf, theta := solveSetup(a, b, 5, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := ptv.Relax(ctx, buf, theta, defaultSolverConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, p)
	assert.NoError(t, p.CheckStochastic(1e-9))
}

func TestNewSolver_ShapeMismatch(t *testing.T) {
	a, b := fourPointPair()
	_, _, buf, theta := solveSetup(a, b, 5, 5)

	_, err := ptv.NewSolver(buf, theta[:2], defaultSolverConfig())
	assert.ErrorIs(t, err, ptv.ErrShapeMismatch)

	_, _, _, other := solveSetup(a, b, 5, 1.5)
	_, err = ptv.NewSolver(buf, other, defaultSolverConfig())
	assert.ErrorIs(t, err, ptv.ErrShapeMismatch)

	_, err = ptv.NewSolver(ptv.ProbabilityBuffers{}, theta, defaultSolverConfig())
	assert.ErrorIs(t, err, ptv.ErrShapeMismatch)
}

func TestRelax_ZeroIterations(t *testing.T) {
	a, b := fourPointPair()
	_, _, buf, theta := solveSetup(a, b, 5, 5)
	cfg := defaultSolverConfig()
	cfg.Iterations = 0

	p, err := ptv.Relax(context.Background(), buf, theta, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, p.Anchor(0).At(0, 0), 1e-15)
}

package ptv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRow overwrites row i of anchor k with cells followed by the null entry.
func setRow(p *ProbabilitySet, k, i int, cells []float64, null float64) {
	a := p.Anchor(k)
	for j, v := range cells {
		a.Pij.Set(i, j, v)
	}
	a.Pi[i] = null
}

func TestExtractMatches_Threshold(t *testing.T) {
	sr := neighborSetOf([]int{0, 1}, []int{0, 1})
	sr.SelfRow = []int{0, 1}
	sc := neighborSetOf([]int{7, 9}, []int{3, 4})
	p := NewProbabilitySets(sr, sc).Current

	setRow(p, 0, 0, []float64{0.001, 0.995}, 0.004)
	setRow(p, 1, 1, []float64{0.98, 0.01}, 0.01)

	matches, err := ExtractMatches(p, sr, sc, DefaultMatchThreshold, SelfRowAbort)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, 0, matches[0].Source)
	assert.Equal(t, 9, matches[0].Target, "column index must map to an absolute target index")
	assert.InDelta(t, 0.995, matches[0].Probability, 1e-15)
	assert.True(t, matches[0].Matched())

	assert.Equal(t, Unmatched, matches[1].Target, "0.98 does not exceed 0.99")
	assert.Zero(t, matches[1].Probability)
	assert.Equal(t, 1, MatchCount(matches))
}

func TestExtractMatches_UsesSelfRowOnly(t *testing.T) {
	// Anchor 0 sits in row 1 of its own list; row 0 is decisive but belongs
	// to a different particle.
	sr := neighborSetOf([]int{3, 0})
	sr.SelfRow = []int{1}
	sc := neighborSetOf([]int{5, 6})
	p := NewProbabilitySets(sr, sc).Current

	setRow(p, 0, 0, []float64{1, 0}, 0)
	setRow(p, 0, 1, []float64{0.2, 0.3}, 0.5)

	matches, err := ExtractMatches(p, sr, sc, DefaultMatchThreshold, SelfRowAbort)
	require.NoError(t, err)
	assert.Equal(t, Unmatched, matches[0].Target)
}

func TestExtractMatches_FirstColumnWins(t *testing.T) {
	// Not reachable from a row-stochastic set with threshold > 0.5, but a
	// lower threshold exposes the scan order.
	sr := neighborSetOf([]int{0})
	sr.SelfRow = []int{0}
	sc := neighborSetOf([]int{2, 1})
	p := NewProbabilitySets(sr, sc).Current
	setRow(p, 0, 0, []float64{0.45, 0.45}, 0.1)

	matches, err := ExtractMatches(p, sr, sc, 0.4, SelfRowAbort)
	require.NoError(t, err)
	assert.Equal(t, 2, matches[0].Target)
}

func TestExtractMatches_NoCandidates(t *testing.T) {
	sr := neighborSetOf([]int{0})
	sr.SelfRow = []int{0}
	sc := neighborSetOf([]int{})
	p := NewProbabilitySets(sr, sc).Current

	matches, err := ExtractMatches(p, sr, sc, DefaultMatchThreshold, SelfRowAbort)
	require.NoError(t, err)
	assert.Equal(t, Unmatched, matches[0].Target)
	assert.NoError(t, matches[0].Err)
}

func TestExtractMatches_SelfRowMissing(t *testing.T) {
	sr := neighborSetOf([]int{0}, []int{})
	sr.SelfRow = []int{0, -1}
	sc := neighborSetOf([]int{0}, []int{0})
	p := NewProbabilitySets(sr, sc).Current
	setRow(p, 0, 0, []float64{1}, 0)

	t.Run("abort", func(t *testing.T) {
		_, err := ExtractMatches(p, sr, sc, DefaultMatchThreshold, SelfRowAbort)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSelfRowMissing)
		var sre *SelfRowError
		require.True(t, errors.As(err, &sre))
		assert.Equal(t, 1, sre.Anchor)
	})

	t.Run("skip", func(t *testing.T) {
		matches, err := ExtractMatches(p, sr, sc, DefaultMatchThreshold, SelfRowSkip)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, 0, matches[0].Target)
		assert.Equal(t, Unmatched, matches[1].Target)
		assert.ErrorIs(t, matches[1].Err, ErrSelfRowMissing)
	})
}

func TestExtractMatches_ShapeMismatch(t *testing.T) {
	sr := neighborSetOf([]int{0}, []int{1})
	sc := neighborSetOf([]int{0})
	p := NewProbabilitySets(sr, sr).Current

	_, err := ExtractMatches(p, sr, sc, DefaultMatchThreshold, SelfRowAbort)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

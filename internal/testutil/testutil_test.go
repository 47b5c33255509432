package testutil

import (
	"errors"
	"testing"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	AssertError(t, errors.New("boom"))
}

func TestPseudoRandomCloud_Deterministic(t *testing.T) {
	a := PseudoRandomCloud(16, 42, 10)
	b := PseudoRandomCloud(16, 42, 10)
	c := PseudoRandomCloud(16, 43, 10)

	require.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, p := range a {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 10.0)
		assert.GreaterOrEqual(t, p.Z, 0.0)
		assert.Less(t, p.Z, 10.0)
	}
}

func TestTranslateAndReverse(t *testing.T) {
	c := ptv.Cloud{{X: 0}, {X: 1}, {X: 2}}
	moved := Translate(c, ptv.Point{X: 1, Y: -1})
	assert.Equal(t, ptv.Point{X: 3, Y: -1}, moved[2])
	assert.Equal(t, ptv.Point{X: 0}, c[0], "input must not be modified")

	r := Reverse(c)
	assert.Equal(t, ptv.Cloud{{X: 2}, {X: 1}, {X: 0}}, r)
}

func TestLattice(t *testing.T) {
	c := Lattice(2, 3, 4, 1.5)
	require.Len(t, c, 24)
	assert.Equal(t, ptv.Point{}, c[0])
	assert.Equal(t, ptv.Point{X: 1.5, Y: 3, Z: 4.5}, c[len(c)-1])
}

// Package testutil provides shared test utilities and fixtures.
//
// The cloud generators are deterministic across platforms (a 64-bit LCG,
// no math/rand) so that expected correspondences can be worked out once and
// pinned in tests.
package testutil

import (
	"testing"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// lcg is Knuth's MMIX linear congruential generator.
type lcg struct {
	state uint64
}

func (g *lcg) float64() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / float64(1<<53)
}

// PseudoRandomCloud returns n points uniformly spread over [0, extent)³.
// The same seed always yields the same cloud.
func PseudoRandomCloud(n int, seed uint64, extent float64) ptv.Cloud {
	g := lcg{state: seed}
	c := make(ptv.Cloud, n)
	for i := range c {
		c[i].X = g.float64() * extent
		c[i].Y = g.float64() * extent
		c[i].Z = g.float64() * extent
	}
	return c
}

// Translate returns c shifted by d.
func Translate(c ptv.Cloud, d ptv.Point) ptv.Cloud {
	out := make(ptv.Cloud, len(c))
	for i, p := range c {
		out[i] = ptv.Point{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z + d.Z}
	}
	return out
}

// Reverse returns c in reverse order, so that point i of the input is point
// len(c)-1-i of the output.
func Reverse(c ptv.Cloud) ptv.Cloud {
	out := make(ptv.Cloud, len(c))
	for i, p := range c {
		out[len(c)-1-i] = p
	}
	return out
}

// Lattice returns an nx×ny×nz grid with the given spacing, x-major.
func Lattice(nx, ny, nz int, spacing float64) ptv.Cloud {
	c := make(ptv.Cloud, 0, nx*ny*nz)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				c = append(c, ptv.Point{X: float64(i) * spacing, Y: float64(j) * spacing, Z: float64(k) * spacing})
			}
		}
	}
	return c
}

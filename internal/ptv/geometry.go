package ptv

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a particle position in reconstructed volume coordinates.
type Point = r3.Vec

// Cloud is the ordered set of particles detected in one frame. A particle's
// index is its identity for the duration of one correspondence run.
type Cloud []Point

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return r3.Norm(r3.Sub(p, q))
}

// Displacement returns the component-wise vector p - q.
func Displacement(p, q Point) Point {
	return r3.Sub(p, q)
}

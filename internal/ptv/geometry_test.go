package ptv

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p, q Point
		want float64
	}{
		{"same point", Point{X: 1, Y: 2, Z: 3}, Point{X: 1, Y: 2, Z: 3}, 0},
		{"unit x", Point{}, Point{X: 1}, 1},
		{"3-4-12", Point{X: 3, Y: 4, Z: 12}, Point{}, 13},
		{"negative coords", Point{X: -1, Y: -1, Z: -1}, Point{X: 1, Y: 1, Z: 1}, math.Sqrt(12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.p, tt.q); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Distance(%v, %v) = %v, want %v", tt.p, tt.q, got, tt.want)
			}
			if got := Distance(tt.q, tt.p); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Distance is not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisplacement(t *testing.T) {
	got := Displacement(Point{X: 1, Y: 5, Z: -2}, Point{X: 2, Y: 1, Z: -2})
	want := Point{X: -1, Y: 4, Z: 0}
	if got != want {
		t.Errorf("Displacement = %v, want %v", got, want)
	}
}

package ptv

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Vector is the motion recovered from one match.
type Vector struct {
	Source       int   `json:"source"`
	Target       int   `json:"target"`
	Position     Point `json:"position"`     // source-frame position
	Displacement Point `json:"displacement"` // target - source
	Velocity     Point `json:"velocity"`     // displacement / dt
}

// Velocities converts matches into motion vectors over a frame interval of
// dt (in whatever time unit the caller uses). Unmatched entries are skipped.
func Velocities(matches []Match, source, target Cloud, dt float64) ([]Vector, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %g", dt)
	}
	out := make([]Vector, 0, len(matches))
	for _, m := range matches {
		if !m.Matched() {
			continue
		}
		if m.Source < 0 || m.Source >= len(source) || m.Target >= len(target) {
			return nil, fmt.Errorf("match %d→%d out of range (%d source, %d target points)",
				m.Source, m.Target, len(source), len(target))
		}
		d := r3.Sub(target[m.Target], source[m.Source])
		out = append(out, Vector{
			Source:       m.Source,
			Target:       m.Target,
			Position:     source[m.Source],
			Displacement: d,
			Velocity:     r3.Scale(1/dt, d),
		})
	}
	return out, nil
}

// DisplacementSummary describes the recovered displacement field.
type DisplacementSummary struct {
	Count         int     `json:"count"`
	MatchRatio    float64 `json:"match_ratio"`
	Mean          Point   `json:"mean"`
	StdDev        Point   `json:"stddev"`
	MeanMagnitude float64 `json:"mean_magnitude"`
	MaxMagnitude  float64 `json:"max_magnitude"`
}

// SummarizeDisplacements computes per-axis mean and standard deviation of
// the displacements in vs. total is the number of source points, used for
// the match ratio.
func SummarizeDisplacements(vs []Vector, total int) DisplacementSummary {
	s := DisplacementSummary{Count: len(vs)}
	if total > 0 {
		s.MatchRatio = float64(len(vs)) / float64(total)
	}
	if len(vs) == 0 {
		return s
	}

	xs := make([]float64, len(vs))
	ys := make([]float64, len(vs))
	zs := make([]float64, len(vs))
	mags := make([]float64, len(vs))
	for i, v := range vs {
		xs[i], ys[i], zs[i] = v.Displacement.X, v.Displacement.Y, v.Displacement.Z
		mags[i] = r3.Norm(v.Displacement)
		s.MaxMagnitude = max(s.MaxMagnitude, mags[i])
	}

	// stat.MeanStdDev is NaN for a single sample; report zero spread.
	if len(vs) == 1 {
		s.Mean = vs[0].Displacement
		s.MeanMagnitude = mags[0]
		return s
	}
	s.Mean.X, s.StdDev.X = stat.MeanStdDev(xs, nil)
	s.Mean.Y, s.StdDev.Y = stat.MeanStdDev(ys, nil)
	s.Mean.Z, s.StdDev.Z = stat.MeanStdDev(zs, nil)
	s.MeanMagnitude = stat.Mean(mags, nil)
	return s
}

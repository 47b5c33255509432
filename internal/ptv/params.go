package ptv

import (
	"fmt"
)

// Defaults taken from the reference tracking rig.
const (
	DefaultNeighborRadius = 20.0
	DefaultSearchRadius   = 20.0
	DefaultIterations     = 20
	DefaultMatchThreshold = 0.99
)

// Coefficients are the relaxation weights. A and B drive the update rule,
// E and F the compatibility test. C and D are accepted for compatibility
// with existing tuning files but are not consumed by any stage.
type Coefficients struct {
	A float64 `json:"a"` // baseline kept regardless of support
	B float64 `json:"b"` // reward for compatible, confident support
	C float64 `json:"c"` // reserved
	D float64 `json:"d"` // reserved
	E float64 `json:"e"` // constant compatibility tolerance
	F float64 `json:"f"` // tolerance growth per unit displacement
}

// DefaultCoefficients returns the reference coefficient set.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		A: 0.3,
		B: 3.0,
		C: 0.1,
		D: 5.0,
		E: 1.0,
		F: 0.05,
	}
}

// Validate requires A, B, E and F to be positive. With E = 0 a pair with
// zero displacement has zero tolerance and is not compatible with itself,
// so a stationary field could never be matched.
func (c Coefficients) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"a", c.A}, {"b", c.B}, {"e", c.E}, {"f", c.F}} {
		if !(v.val > 0) {
			return fmt.Errorf("%w: coefficient %s must be positive, got %f", ErrInvalidParams, v.name, v.val)
		}
	}
	return nil
}

// SelfRowPolicy decides what ExtractMatches does with an anchor whose own
// row is missing from the self-neighbour set.
type SelfRowPolicy string

const (
	// SelfRowAbort fails the whole extraction with a *SelfRowError.
	SelfRowAbort SelfRowPolicy = "abort"
	// SelfRowSkip reports the anchor unmatched and sets Match.Err.
	SelfRowSkip SelfRowPolicy = "skip"
)

// Params configures one Engine.
type Params struct {
	NeighborRadius float64 `json:"neighbor_radius"` // R_n, self-neighbour radius in frame A
	SearchRadius   float64 `json:"search_radius"`   // R_s, candidate radius into frame B
	Coefficients
	Iterations     int           `json:"iterations"` // N, fixed solver budget
	MatchThreshold float64       `json:"match_threshold"`
	Workers        int           `json:"workers"`
	Index          IndexStrategy `json:"index"`
	SelfRowPolicy  SelfRowPolicy `json:"self_row_policy"`
}

// DefaultParams returns the reference parameter set, running sequentially
// with the linear-scan neighbour search.
func DefaultParams() Params {
	return Params{
		NeighborRadius: DefaultNeighborRadius,
		SearchRadius:   DefaultSearchRadius,
		Coefficients:   DefaultCoefficients(),
		Iterations:     DefaultIterations,
		MatchThreshold: DefaultMatchThreshold,
		Workers:        1,
		Index:          IndexScan,
		SelfRowPolicy:  SelfRowAbort,
	}
}

// Validate checks the parameters the solver cannot run without. Radii are
// not checked: a non-positive radius degrades to empty neighbour sets.
func (p Params) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidParams, p.Iterations)
	}
	if p.MatchThreshold <= 0 || p.MatchThreshold >= 1 {
		return fmt.Errorf("%w: match_threshold must be in (0, 1), got %f", ErrInvalidParams, p.MatchThreshold)
	}
	if err := p.Coefficients.Validate(); err != nil {
		return err
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidParams, p.Workers)
	}
	if p.Index != "" && !p.Index.Valid() {
		return fmt.Errorf("%w: unknown index strategy %q", ErrInvalidParams, p.Index)
	}
	switch p.SelfRowPolicy {
	case "", SelfRowAbort, SelfRowSkip:
	default:
		return fmt.Errorf("%w: unknown self_row_policy %q", ErrInvalidParams, p.SelfRowPolicy)
	}
	return nil
}

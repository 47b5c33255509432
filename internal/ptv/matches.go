package ptv

import (
	"fmt"
)

// Unmatched is the Target of a Match whose anchor found no correspondence.
const Unmatched = -1

// Match is the extraction result for one source point.
type Match struct {
	Source      int     `json:"source"`
	Target      int     `json:"target"`      // absolute index in the target frame, or Unmatched
	Probability float64 `json:"probability"` // Pij of the chosen column, 0 when unmatched
	Err         error   `json:"-"`           // set for anchors skipped under SelfRowSkip
}

// Matched reports whether the source point was assigned a target.
func (m Match) Matched() bool { return m.Target != Unmatched }

// ExtractMatches reads each anchor's self row and reports the first
// candidate column, in S_c order, whose probability exceeds threshold.
// Ties above the threshold go to the earliest column. An anchor with no
// candidates is reported Unmatched.
//
// An anchor missing from its own neighbour list aborts the pass with a
// *SelfRowError under SelfRowAbort; under SelfRowSkip it is reported
// Unmatched with Match.Err set and extraction continues.
func ExtractMatches(p *ProbabilitySet, sr, sc NeighborSet, threshold float64, policy SelfRowPolicy) ([]Match, error) {
	if len(p.Anchors) != sr.Len() || sr.Len() != sc.Len() {
		return nil, fmt.Errorf("%w: %d anchors, %d neighbour lists, %d candidate lists",
			ErrShapeMismatch, len(p.Anchors), sr.Len(), sc.Len())
	}

	matches := make([]Match, 0, len(p.Anchors))
	for k := range p.Anchors {
		m := Match{Source: k, Target: Unmatched}

		row, ok := sr.SelfRowOf(k)
		if !ok {
			err := &SelfRowError{Anchor: k}
			if policy != SelfRowSkip {
				return nil, err
			}
			m.Err = err
			matches = append(matches, m)
			continue
		}

		a := p.Anchor(k)
		for j, prob := range a.Row(row) {
			if prob > threshold {
				m.Target = sc.Of(k)[j]
				m.Probability = prob
				break
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// MatchCount returns how many matches carry a target.
func MatchCount(matches []Match) int {
	n := 0
	for _, m := range matches {
		if m.Matched() {
			n++
		}
	}
	return n
}

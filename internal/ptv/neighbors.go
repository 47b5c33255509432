package ptv

// NeighborSet maps each source index to the ordered target indices that lie
// strictly within Radius of it. Order is target scan order.
type NeighborSet struct {
	Radius float64
	Lists  [][]int

	// SelfRow[k] is the position of k inside Lists[k], or -1 when k is not
	// its own neighbour. Only populated by BuildSelfNeighborSet; nil for
	// cross-frame sets.
	SelfRow []int
}

// Len returns the number of source points covered by the set.
func (s NeighborSet) Len() int { return len(s.Lists) }

// Of returns the neighbour list of source index k.
func (s NeighborSet) Of(k int) []int { return s.Lists[k] }

// SelfRowOf returns the anchor's own row in Lists[k] and whether it exists.
func (s NeighborSet) SelfRowOf(k int) (int, bool) {
	if k < 0 || k >= len(s.SelfRow) || s.SelfRow[k] < 0 {
		return -1, false
	}
	return s.SelfRow[k], true
}

type neighborOptions struct {
	index IndexStrategy
}

// NeighborOption configures BuildNeighborSet.
type NeighborOption func(*neighborOptions)

// WithIndex selects the spatial index used for radius queries.
func WithIndex(s IndexStrategy) NeighborOption {
	return func(o *neighborOptions) {
		if s.Valid() {
			o.index = s
		}
	}
}

// BuildNeighborSet returns, for every point in source, the indices of the
// target points at distance < radius. A non-positive radius or an empty
// frame yields empty lists; neither is an error.
func BuildNeighborSet(source, target Cloud, radius float64, opts ...NeighborOption) NeighborSet {
	o := neighborOptions{index: IndexScan}
	for _, opt := range opts {
		opt(&o)
	}

	set := NeighborSet{
		Radius: radius,
		Lists:  make([][]int, len(source)),
	}
	if radius <= 0 || len(target) == 0 {
		for i := range set.Lists {
			set.Lists[i] = []int{}
		}
		return set
	}

	idx := newRadiusIndex(o.index, target, radius)
	for i, p := range source {
		list := idx.within(p, radius)
		if list == nil {
			list = []int{}
		}
		set.Lists[i] = list
	}
	return set
}

// BuildSelfNeighborSet builds the neighbour set of a frame against itself
// and records each anchor's self row. Distance to self is 0, so every anchor
// has a self row whenever radius > 0.
func BuildSelfNeighborSet(frame Cloud, radius float64, opts ...NeighborOption) NeighborSet {
	set := BuildNeighborSet(frame, frame, radius, opts...)
	set.SelfRow = make([]int, len(set.Lists))
	for k, list := range set.Lists {
		set.SelfRow[k] = -1
		for row, j := range list {
			if j == k {
				set.SelfRow[k] = row
				break
			}
		}
	}
	return set
}

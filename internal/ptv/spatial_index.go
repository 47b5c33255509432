package ptv

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// IndexStrategy selects how BuildNeighborSet finds target points within the
// radius. Every strategy returns the same membership and order as the
// linear scan; the indexed ones only skip distance tests that cannot pass.
type IndexStrategy string

const (
	// IndexScan tests every (source, target) pair. O(|source|·|target|).
	IndexScan IndexStrategy = "scan"
	// IndexGrid buckets target points into cubic cells of side r.
	IndexGrid IndexStrategy = "grid"
	// IndexKDTree queries a gonum k-d tree built over the target points.
	IndexKDTree IndexStrategy = "kdtree"
)

// Valid reports whether s names a known strategy.
func (s IndexStrategy) Valid() bool {
	switch s {
	case IndexScan, IndexGrid, IndexKDTree:
		return true
	}
	return false
}

// radiusIndex answers "which target indices lie strictly within r of q",
// ascending by index.
type radiusIndex interface {
	within(q Point, r float64) []int
}

// scanIndex is the reference implementation.
type scanIndex struct {
	points Cloud
}

func (s scanIndex) within(q Point, r float64) []int {
	var out []int
	for j, p := range s.points {
		if Distance(q, p) < r {
			out = append(out, j)
		}
	}
	return out
}

// =============================================================================
// Uniform grid
// =============================================================================

type cellKey struct {
	X, Y, Z int64
}

// gridIndex buckets points into cubic cells. With cell size equal to the
// query radius, every point within r of q lives in the 3×3×3 block of cells
// around q's cell.
type gridIndex struct {
	points   Cloud
	cellSize float64
	cells    map[cellKey][]int
}

// estimatedPointsPerCell sizes the initial cell map.
const estimatedPointsPerCell = 4

func newGridIndex(points Cloud, cellSize float64) *gridIndex {
	g := &gridIndex{
		points:   points,
		cellSize: cellSize,
		cells:    make(map[cellKey][]int, len(points)/estimatedPointsPerCell+1),
	}
	for i, p := range points {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *gridIndex) key(p Point) cellKey {
	return cellKey{
		X: int64(math.Floor(p.X / g.cellSize)),
		Y: int64(math.Floor(p.Y / g.cellSize)),
		Z: int64(math.Floor(p.Z / g.cellSize)),
	}
}

func (g *gridIndex) within(q Point, r float64) []int {
	base := g.key(q)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				k := cellKey{X: base.X + dx, Y: base.Y + dy, Z: base.Z + dz}
				for _, j := range g.cells[k] {
					if Distance(q, g.points[j]) < r {
						out = append(out, j)
					}
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// =============================================================================
// k-d tree
// =============================================================================

// indexedPoint carries its position in the original cloud through the tree,
// since kdtree.New reorders the slice it is given.
type indexedPoint struct {
	Point
	Index int
}

// Compare implements kdtree.Comparable.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic("ptv: illegal kd-tree dimension")
}

// Dims implements kdtree.Comparable.
func (p indexedPoint) Dims() int { return 3 }

// Distance implements kdtree.Comparable. Squared, to match the keeper bound.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return dx*dx + dy*dy + dz*dz
}

// indexedPoints satisfies kdtree.Interface.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(indexedPlane{indexedPoints: p, Dim: d}, kdtree.MedianOfMedians(indexedPlane{indexedPoints: p, Dim: d}))
}

// indexedPlane implements kdtree.SortSlicer along one dimension.
type indexedPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p indexedPlane) Less(i, j int) bool {
	return p.indexedPoints[i].Compare(p.indexedPoints[j], p.Dim) < 0
}

func (p indexedPlane) Slice(start, end int) kdtree.SortSlicer {
	return indexedPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p indexedPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

type kdIndex struct {
	points Cloud
	tree   *kdtree.Tree
}

func newKDIndex(points Cloud) *kdIndex {
	ip := make(indexedPoints, len(points))
	for i, p := range points {
		ip[i] = indexedPoint{Point: p, Index: i}
	}
	return &kdIndex{points: points, tree: kdtree.New(ip, false)}
}

func (t *kdIndex) within(q Point, r float64) []int {
	if len(t.points) == 0 {
		return nil
	}
	// Slightly widened so rounding in the squared distance never drops a
	// point the exact predicate below would accept.
	keep := kdtree.NewDistKeeper(r * r * (1 + 1e-9))
	t.tree.NearestSet(keep, indexedPoint{Point: q, Index: -1})

	var out []int
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue // keeper sentinel
		}
		j := c.Comparable.(indexedPoint).Index
		// The squared bound is inclusive; re-test with the exact predicate.
		if Distance(q, t.points[j]) < r {
			out = append(out, j)
		}
	}
	sort.Ints(out)
	return out
}

func newRadiusIndex(s IndexStrategy, target Cloud, r float64) radiusIndex {
	switch s {
	case IndexGrid:
		return newGridIndex(target, r)
	case IndexKDTree:
		return newKDIndex(target)
	default:
		return scanIndex{points: target}
	}
}

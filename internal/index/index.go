// Package index provides a bounding-box spatial index over a polygon
// collection for fast candidate-pair queries.
//
// The index answers "which features could intersect these bounds" with no
// false negatives: every true intersector is among the candidates. False
// positives are expected (the index only compares bounding boxes), so
// callers must always follow a query with a precise geometric test.
package index

import (
	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geos"
)

// Bounds is an axis-aligned bounding box in the working CRS.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf returns the bounding box of a geometry.
func BoundsOf(g *geos.Geom) Bounds {
	box := g.Bounds()
	return Bounds{MinX: box.MinX, MinY: box.MinY, MaxX: box.MaxX, MaxY: box.MaxY}
}

// Intersects reports whether two boxes share any space.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// entry wraps a feature index for R-tree storage.
type entry struct {
	idx  int
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index is an R-tree over the bounding boxes of a geometry slice. Query
// results are positions in the slice the index was built from.
//
// The index is stage-local: build it, run the stage's candidate queries, and
// discard it.
type Index struct {
	rtree *rtreego.Rtree
	size  int
}

// rectEpsilon pads zero-extent boxes; R-tree rectangles need a positive
// extent in every dimension.
const rectEpsilon = 1e-9

func toRect(b Bounds) rtreego.Rect {
	point := rtreego.Point{b.MinX, b.MinY}
	lengths := []float64{b.MaxX - b.MinX, b.MaxY - b.MinY}
	for i := range lengths {
		if lengths[i] < rectEpsilon {
			lengths[i] = rectEpsilon
		}
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// New builds an index over geoms. Nil geometries are skipped and never
// appear as candidates.
func New(geoms []*geos.Geom) *Index {
	rtree := rtreego.NewTree(2, 25, 50)
	size := 0
	for i, g := range geoms {
		if g == nil || g.IsEmpty() {
			continue
		}
		rtree.Insert(&entry{idx: i, rect: toRect(BoundsOf(g))})
		size++
	}
	return &Index{rtree: rtree, size: size}
}

// Query returns the indices of all geometries whose bounding box intersects
// b, in no particular order.
func (idx *Index) Query(b Bounds) []int {
	spatials := idx.rtree.SearchIntersect(toRect(b))
	out := make([]int, 0, len(spatials))
	for _, s := range spatials {
		out = append(out, s.(*entry).idx)
	}
	return out
}

// QueryGeom returns the candidate indices for a geometry's bounding box.
func (idx *Index) QueryGeom(g *geos.Geom) []int {
	return idx.Query(BoundsOf(g))
}

// Size returns the number of indexed geometries.
func (idx *Index) Size() int {
	return idx.size
}

package navigation

import (
	"sort"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/dhconnelly/rtreego"
)

// DefaultNeighbors is the k used for the k-nearest query.
const DefaultNeighbors = 5

// R-tree fan-out; the tree is bulk loaded so these only bound node size.
const (
	minChildren = 2
	maxChildren = 8
)

// Candidate is one object returned by a query.
type Candidate struct {
	ID       graph.ObjectID `json:"id"`
	Kind     graph.Kind     `json:"kind"`
	Position geometry.Point `json:"position"`
	Distance float64        `json:"distance"`
}

// entry is a SpatialIndexEntry: an object's position at index build time.
type entry struct {
	id    graph.ObjectID
	kind  graph.Kind
	pos   geometry.Point
	order int
}

func (e *entry) Bounds() rtreego.Rect {
	return rtreego.Point{e.pos.X, e.pos.Y}.ToRect(0)
}

// Index is an immutable spatial index over one graph snapshot. It is built
// once per query batch and never updated.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// BuildIndex bulk loads an R-tree over the positions in s. Objects with
// non-finite coordinates are skipped.
func BuildIndex(s graph.Snapshot) *Index {
	objs := make([]rtreego.Spatial, 0, s.Len())
	for i, o := range s.Objects {
		p := o.Position()
		if !finite(p) {
			continue
		}
		objs = append(objs, &entry{id: o.ID, kind: o.Kind, pos: p, order: i})
	}
	return &Index{
		tree: rtreego.NewTree(2, minChildren, maxChildren, objs...),
		size: len(objs),
	}
}

// Len returns the number of indexed objects.
func (ix *Index) Len() int {
	return ix.size
}

// Neighbors returns up to k objects nearest to ref that lie in direction d,
// excluding the object self, in ascending distance. Equal distances keep
// snapshot order.
func (ix *Index) Neighbors(self graph.ObjectID, ref geometry.Point, d Direction, k int) []Candidate {
	if ix.size == 0 || !finite(ref) {
		return nil
	}
	if k <= 0 {
		k = DefaultNeighbors
	}

	skipSelf := func(_ []rtreego.Spatial, obj rtreego.Spatial) (refuse, abort bool) {
		return obj.(*entry).id == self, false
	}
	near := ix.tree.NearestNeighbors(k, rtreego.Point{ref.X, ref.Y}, skipSelf)

	type ranked struct {
		Candidate
		order int
	}
	var out []ranked
	for _, s := range near {
		e, ok := s.(*entry)
		if !ok || e == nil {
			continue
		}
		if !d.Allows(ref, e.pos) {
			continue
		}
		out = append(out, ranked{
			Candidate: Candidate{ID: e.id, Kind: e.kind, Position: e.pos, Distance: geometry.Distance(ref, e.pos)},
			order:     e.order,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].order < out[j].order
	})

	cands := make([]Candidate, len(out))
	for i, r := range out {
		cands[i] = r.Candidate
	}
	return cands
}

// Nearest returns the closest object in direction d, if any.
func (ix *Index) Nearest(self graph.ObjectID, ref geometry.Point, d Direction, k int) (Candidate, bool) {
	cands := ix.Neighbors(self, ref, d, k)
	if len(cands) == 0 {
		return Candidate{}, false
	}
	return cands[0], true
}

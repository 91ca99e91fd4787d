package scene

import (
	"sync"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

// Layer names, in draw order.
const (
	LayerObjects  = "objects"
	LayerOutlines = "outlines"
	LayerDrag     = "drag"
)

// Visual is the render representation of one graph object.
type Visual struct {
	ID      graph.ObjectID
	Kind    graph.Kind
	Size    geometry.Point
	Body    *Node
	Outline *Node
}

// Scene owns the tree: a root (the camera) holding the object, outline and
// drag layers.
type Scene struct {
	mu sync.Mutex

	root     *Node
	objects  *Node
	outlines *Node
	drag     *DragLayer

	visuals map[graph.ObjectID]*Visual
	// order is the object order of the last synced snapshot, which is also
	// the draw order within each layer.
	order []graph.ObjectID
}

// New creates an empty scene.
func New() *Scene {
	s := &Scene{
		root:     NewNode("root"),
		objects:  NewNode(LayerObjects),
		outlines: NewNode(LayerOutlines),
		visuals:  make(map[graph.ObjectID]*Visual),
	}
	s.drag = &DragLayer{scene: s, node: NewNode(LayerDrag)}
	s.root.AddChild(s.objects)
	s.root.AddChild(s.outlines)
	s.root.AddChild(s.drag.node)
	return s
}

// DragLayer returns the scene's drag layer.
func (s *Scene) DragLayer() *DragLayer {
	return s.drag
}

// SetCamera sets the root translation (the pan offset).
func (s *Scene) SetCamera(p geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.Position = p
}

// Sync reconciles visuals with a snapshot: new objects get visuals, known
// objects get the snapshot position, vanished objects lose their visuals.
// Objects currently in the drag layer keep their preview position; the layer
// puts them back when the drag finishes.
func (s *Scene) Sync(snap graph.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[graph.ObjectID]bool, snap.Len())
	s.order = s.order[:0]
	for _, o := range snap.Objects {
		seen[o.ID] = true
		s.order = append(s.order, o.ID)

		v, ok := s.visuals[o.ID]
		if !ok {
			v = s.newVisual(o)
			s.visuals[o.ID] = v
		}
		v.Size = geometry.Point{X: o.Bounds.Width, Y: o.Bounds.Height}
		if s.drag.holds(o.ID) {
			delete(s.drag.gone, o.ID)
			continue
		}
		v.Body.Position = o.Position()
		if v.Outline != nil {
			v.Outline.Position = o.Position()
		}
	}

	for id, v := range s.visuals {
		if seen[id] {
			continue
		}
		if s.drag.holds(id) {
			// Deleted mid-drag; the layer drops it on finish.
			s.drag.gone[id] = true
			continue
		}
		v.Body.RemoveFromParent()
		if v.Outline != nil {
			v.Outline.RemoveFromParent()
		}
		delete(s.visuals, id)
	}
	s.restackLocked()
}

// restackLocked orders the object and outline layers by snapshot order.
// Children that belong to no synced visual keep their relative order after
// the rest.
func (s *Scene) restackLocked() {
	s.objects.children = s.stacked(s.objects, func(v *Visual) *Node { return v.Body })
	s.outlines.children = s.stacked(s.outlines, func(v *Visual) *Node { return v.Outline })
}

func (s *Scene) stacked(layer *Node, pick func(*Visual) *Node) []*Node {
	out := make([]*Node, 0, len(layer.children))
	placed := make(map[*Node]bool, len(layer.children))
	for _, id := range s.order {
		v, ok := s.visuals[id]
		if !ok {
			continue
		}
		if n := pick(v); n != nil && n.parent == layer && !placed[n] {
			placed[n] = true
			out = append(out, n)
		}
	}
	for _, c := range layer.children {
		if !placed[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scene) newVisual(o graph.SnapshotObject) *Visual {
	v := &Visual{ID: o.ID, Kind: o.Kind, Body: NewNode(string(o.ID))}
	s.objects.AddChild(v.Body)
	v.Outline = NewNode(string(o.ID) + "/outline")
	v.Outline.Hidden = true
	s.outlines.AddChild(v.Outline)
	return v
}

// Visual returns the visual for id.
func (s *Scene) Visual(id graph.ObjectID) (*Visual, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visuals[id]
	return v, ok
}

// Len returns the number of visuals.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visuals)
}

// ShowOutlines makes the outlines of ids visible and hides every other one.
func (s *Scene) ShowOutlines(ids []graph.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	on := make(map[graph.ObjectID]bool, len(ids))
	for _, id := range ids {
		on[id] = true
	}
	for id, v := range s.visuals {
		if v.Outline != nil {
			v.Outline.Hidden = !on[id]
		}
	}
}

// Cull marks bodies and outlines whose rendered bounds miss the viewport.
// Viewport is in screen space, so the camera translation applies. Objects in
// the drag layer are never culled.
func (s *Scene) Cull(viewport geometry.Bounds) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	culled := 0
	for id, v := range s.visuals {
		if s.drag.holds(id) {
			v.Body.Culled = false
			if v.Outline != nil {
				v.Outline.Culled = false
			}
			continue
		}
		p := v.Body.WorldPosition()
		b := geometry.Bounds{X: p.X, Y: p.Y, Width: v.Size.X, Height: v.Size.Y}
		_, visible := geometry.RectangleIntersection(b, viewport)
		v.Body.Culled = !visible
		if v.Outline != nil {
			v.Outline.Culled = !visible
		}
		if !visible {
			culled++
		}
	}
	return culled
}

// RenderedPosition returns where the body of id is drawn, in graph space
// (the camera translation excluded).
func (s *Scene) RenderedPosition(id graph.ObjectID) (geometry.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visuals[id]
	if !ok {
		return geometry.Point{}, false
	}
	return v.Body.WorldPosition().Sub(s.root.Position), true
}

// DrawItem is one entry of a draw list.
type DrawItem struct {
	Name     string
	Position geometry.Point
}

// DrawList returns the visible nodes that carry content, in draw order, with
// their screen positions. Containers are not listed.
func (s *Scene) DrawList() []DrawItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []DrawItem
	walk(s.root, &translationStack{}, func(n *Node, world geometry.Point) bool {
		if n.Hidden || n.Culled {
			return false
		}
		if len(n.children) == 0 && !s.isLayer(n) {
			items = append(items, DrawItem{Name: n.Name, Position: world})
		}
		return true
	})
	return items
}

func (s *Scene) isLayer(n *Node) bool {
	return n == s.root || n == s.objects || n == s.outlines || n == s.drag.node
}

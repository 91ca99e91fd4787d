package graph

import (
	"fmt"

	"github.com/chazu/flowcanvas/pkg/geometry"
)

// Workflow is the plain container of graph objects. It is not safe for
// concurrent use; MemoryStore guards one behind a lock.
type Workflow struct {
	Nodes       map[ObjectID]*Node
	Connections map[ObjectID]*Connection
	Annotations map[ObjectID]*Annotation
	PortBars    map[PortBarSide]*PortBar

	// order keeps insertion order so snapshots and hit tests are stable.
	order []ObjectID
}

// New creates an empty Workflow.
func New() *Workflow {
	return &Workflow{
		Nodes:       make(map[ObjectID]*Node),
		Connections: make(map[ObjectID]*Connection),
		Annotations: make(map[ObjectID]*Annotation),
		PortBars:    make(map[PortBarSide]*PortBar),
	}
}

// AddNode adds a node. It does not check for duplicates.
func (w *Workflow) AddNode(n *Node) {
	if _, ok := w.Nodes[n.ID]; !ok {
		w.order = append(w.order, n.ID)
	}
	w.Nodes[n.ID] = n
}

// AddConnection adds a connection.
func (w *Workflow) AddConnection(c *Connection) {
	if _, ok := w.Connections[c.ID]; !ok {
		w.order = append(w.order, c.ID)
	}
	w.Connections[c.ID] = c
}

// AddAnnotation adds an annotation.
func (w *Workflow) AddAnnotation(a *Annotation) {
	if _, ok := w.Annotations[a.ID]; !ok {
		w.order = append(w.order, a.ID)
	}
	w.Annotations[a.ID] = a
}

// SetPortBar installs or replaces the bar for p.Side.
func (w *Workflow) SetPortBar(p *PortBar) {
	if _, ok := w.PortBars[p.Side]; !ok {
		w.order = append(w.order, p.ID())
	}
	w.PortBars[p.Side] = p
}

// Remove deletes the object with the given id, whatever its kind. Removing a
// node also removes the connections attached to it.
func (w *Workflow) Remove(id ObjectID) bool {
	kind, ok := w.Kind(id)
	if !ok {
		return false
	}
	switch kind {
	case KindNode:
		delete(w.Nodes, id)
		for cid, c := range w.Connections {
			if c.Source == id || c.Target == id {
				delete(w.Connections, cid)
				w.dropOrder(cid)
			}
		}
	case KindConnection:
		delete(w.Connections, id)
	case KindAnnotation:
		delete(w.Annotations, id)
	case KindPortBar:
		side, _ := PortBarSideOf(id)
		delete(w.PortBars, side)
	}
	w.dropOrder(id)
	return true
}

func (w *Workflow) dropOrder(id ObjectID) {
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

// Kind resolves the kind of id.
func (w *Workflow) Kind(id ObjectID) (Kind, bool) {
	if _, ok := w.Nodes[id]; ok {
		return KindNode, true
	}
	if _, ok := w.Annotations[id]; ok {
		return KindAnnotation, true
	}
	if _, ok := w.Connections[id]; ok {
		return KindConnection, true
	}
	if side, ok := PortBarSideOf(id); ok {
		if _, exists := w.PortBars[side]; exists {
			return KindPortBar, true
		}
	}
	return 0, false
}

// Position returns the top-left position of a movable object.
func (w *Workflow) Position(id ObjectID) (geometry.Point, bool) {
	b, ok := w.Bounds(id)
	if !ok {
		return geometry.Point{}, false
	}
	return b.Origin(), true
}

// Bounds returns the rectangle of a movable object.
func (w *Workflow) Bounds(id ObjectID) (geometry.Bounds, bool) {
	if n, ok := w.Nodes[id]; ok {
		return n.Bounds(), true
	}
	if a, ok := w.Annotations[id]; ok {
		return a.Bounds, true
	}
	if side, ok := PortBarSideOf(id); ok {
		if p, exists := w.PortBars[side]; exists {
			return p.Bounds, true
		}
	}
	return geometry.Bounds{}, false
}

// Translate moves a movable object by delta.
func (w *Workflow) Translate(id ObjectID, delta geometry.Point) error {
	if n, ok := w.Nodes[id]; ok {
		n.Position = n.Position.Add(delta)
		return nil
	}
	if a, ok := w.Annotations[id]; ok {
		a.Bounds = a.Bounds.Translate(delta)
		return nil
	}
	if side, ok := PortBarSideOf(id); ok {
		if p, exists := w.PortBars[side]; exists {
			p.Bounds = p.Bounds.Translate(delta)
			return nil
		}
	}
	if _, ok := w.Connections[id]; ok {
		return fmt.Errorf("graph: connection %s cannot be moved", id.Short())
	}
	return fmt.Errorf("graph: %s: %w", id.Short(), ErrNotFound)
}

// IDs returns every object id in insertion order.
func (w *Workflow) IDs() []ObjectID {
	out := make([]ObjectID, len(w.order))
	copy(out, w.order)
	return out
}

// NodeCount returns the number of nodes.
func (w *Workflow) NodeCount() int {
	return len(w.Nodes)
}

// Clone returns a deep copy of w.
func (w *Workflow) Clone() *Workflow {
	c := New()
	for _, id := range w.order {
		if n, ok := w.Nodes[id]; ok {
			cp := *n
			c.AddNode(&cp)
			continue
		}
		if a, ok := w.Annotations[id]; ok {
			cp := *a
			c.AddAnnotation(&cp)
			continue
		}
		if cn, ok := w.Connections[id]; ok {
			cp := *cn
			c.AddConnection(&cp)
			continue
		}
		if side, ok := PortBarSideOf(id); ok {
			if p, exists := w.PortBars[side]; exists {
				cp := *p
				c.SetPortBar(&cp)
			}
		}
	}
	return c
}

// Snapshot captures the positions of every node and annotation, in insertion
// order.
func (w *Workflow) Snapshot() Snapshot {
	var s Snapshot
	for _, id := range w.order {
		if n, ok := w.Nodes[id]; ok {
			s.Objects = append(s.Objects, SnapshotObject{ID: id, Kind: KindNode, Bounds: n.Bounds()})
			continue
		}
		if a, ok := w.Annotations[id]; ok {
			s.Objects = append(s.Objects, SnapshotObject{ID: id, Kind: KindAnnotation, Bounds: a.Bounds})
		}
	}
	return s
}

package scene

import (
	"errors"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

// ErrDragLayerBusy is returned by Begin while a previous drag is still
// populated.
var ErrDragLayerBusy = errors.New("drag layer already populated")

// home records where a reparented node came from.
type home struct {
	id     graph.ObjectID
	node   *Node
	parent *Node
}

// DragLayer is a transient container for the visuals of moving objects. Its
// own translation is the preview delta; the visuals inside it are not touched
// per frame.
type DragLayer struct {
	scene  *Scene
	node   *Node
	ids    map[graph.ObjectID]bool
	gone   map[graph.ObjectID]bool
	homes  []home
	active bool
}

// Begin reparents the body and outline of every id into the layer. Ids
// without a visual are skipped. Reparented nodes keep their on-screen
// position and are forced visible.
func (d *DragLayer) Begin(ids []graph.ObjectID) error {
	d.scene.mu.Lock()
	defer d.scene.mu.Unlock()

	if d.active {
		return ErrDragLayerBusy
	}
	d.active = true
	d.ids = make(map[graph.ObjectID]bool, len(ids))
	d.gone = make(map[graph.ObjectID]bool)
	d.node.Position = geometry.Point{}

	var homes []home
	for _, id := range ids {
		v, ok := d.scene.visuals[id]
		if !ok || d.ids[id] {
			continue
		}
		d.ids[id] = true
		for _, n := range []*Node{v.Body, v.Outline} {
			if n == nil || n.parent == nil {
				continue
			}
			homes = append(homes, home{id: id, node: n, parent: n.parent})
		}
	}

	layerOrigin := d.graphOrigin(d.node.parent)
	for _, h := range homes {
		h.node.Culled = false
		h.node.Position = h.node.Position.Add(d.graphOrigin(h.parent).Sub(layerOrigin))
		h.parent.RemoveChild(h.node)
	}
	for _, h := range homes {
		d.node.children = append(d.node.children, h.node)
		h.node.parent = d.node
	}
	d.homes = homes
	return nil
}

// Apply sets the layer translation to delta.
func (d *DragLayer) Apply(delta geometry.Point) {
	d.scene.mu.Lock()
	defer d.scene.mu.Unlock()
	d.node.Position = delta
}

// Finish puts every visual back where it came from with the position given
// in finals (graph space). Ids missing from finals return to their position
// before the drag. Afterwards the layer is empty with an identity transform.
func (d *DragLayer) Finish(finals map[graph.ObjectID]geometry.Point) {
	d.scene.mu.Lock()
	defer d.scene.mu.Unlock()

	if !d.active {
		d.reset()
		return
	}

	// Graph-space origin of the layer at identity.
	base := d.graphOrigin(d.node.parent)

	d.node.children = nil
	for _, h := range d.homes {
		h.node.parent = nil
		if d.gone[h.id] {
			delete(d.scene.visuals, h.id)
			continue
		}
		pos := h.node.Position.Add(base)
		if final, ok := finals[h.id]; ok {
			pos = final
		}
		h.node.Position = pos.Sub(d.graphOrigin(h.parent))
		h.parent.AddChild(h.node)
	}
	// Siblings may have been added or deleted while the drag ran, so slots
	// recorded at Begin are stale. Draw order comes from the last sync.
	d.scene.restackLocked()

	d.reset()
}

// graphOrigin is the world position of n without the camera translation.
func (d *DragLayer) graphOrigin(n *Node) geometry.Point {
	return n.WorldPosition().Sub(d.scene.root.Position)
}

func (d *DragLayer) reset() {
	d.node.RemoveAllChildren()
	d.node.Position = geometry.Point{}
	d.homes = nil
	d.ids = nil
	d.gone = nil
	d.active = false
}

// holds reports whether id is in the layer. Callers hold the scene lock.
func (d *DragLayer) holds(id graph.ObjectID) bool {
	return d.active && d.ids[id]
}

// Active reports whether a drag populated the layer.
func (d *DragLayer) Active() bool {
	d.scene.mu.Lock()
	defer d.scene.mu.Unlock()
	return d.active
}

// Len returns the number of child nodes in the layer.
func (d *DragLayer) Len() int {
	d.scene.mu.Lock()
	defer d.scene.mu.Unlock()
	return len(d.node.children)
}

// Transform returns the layer translation.
func (d *DragLayer) Transform() geometry.Point {
	d.scene.mu.Lock()
	defer d.scene.mu.Unlock()
	return d.node.Position
}

// IsIdentity reports whether the layer has no translation.
func (d *DragLayer) IsIdentity() bool {
	return d.Transform().IsZero()
}

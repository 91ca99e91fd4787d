package graph

import "github.com/chazu/flowcanvas/pkg/geometry"

// DefaultNodeSize is the rendered size of a node when none is recorded.
var DefaultNodeSize = geometry.Point{X: 100, Y: 100}

// Node is a processing step placed on the canvas.
type Node struct {
	ID       ObjectID       `json:"id"`
	Name     string         `json:"name,omitempty"`
	Type     string         `json:"type,omitempty"`
	Position geometry.Point `json:"position"`
	Size     geometry.Point `json:"size,omitempty"`
}

// Bounds returns the node's rectangle, falling back to DefaultNodeSize.
func (n Node) Bounds() geometry.Bounds {
	size := n.Size
	if size.X <= 0 || size.Y <= 0 {
		size = DefaultNodeSize
	}
	return geometry.Bounds{X: n.Position.X, Y: n.Position.Y, Width: size.X, Height: size.Y}
}

// Connection links an output of one node to an input of another.
type Connection struct {
	ID     ObjectID `json:"id"`
	Source ObjectID `json:"source"`
	Target ObjectID `json:"target"`
}

// Annotation is a free-floating note with explicit bounds.
type Annotation struct {
	ID     ObjectID        `json:"id"`
	Text   string          `json:"text,omitempty"`
	Bounds geometry.Bounds `json:"bounds"`
}

// PortBar is the input or output bar of the container being edited.
type PortBar struct {
	Side   PortBarSide     `json:"side"`
	Bounds geometry.Bounds `json:"bounds"`
}

// ID returns the object id of the bar.
func (p PortBar) ID() ObjectID {
	return PortBarID(p.Side)
}

// Package scene is a small retained-mode scene graph for canvas objects.
// Every object has a body visual and, when it can be selected, an outline
// visual. Both live under layer containers; during a drag they are moved
// into the drag layer so a group move costs one transform update per frame.
//
// Scene methods are safe for concurrent use. Node values are only touched
// while the owning Scene holds its lock.
package scene

import "github.com/chazu/flowcanvas/pkg/geometry"

// Node is one element of the tree. Position is a translation relative to the
// parent.
type Node struct {
	Name     string
	Position geometry.Point
	// Culled marks the node as skipped by the renderer because it is off
	// screen.
	Culled bool
	// Hidden marks the node as not drawn regardless of culling.
	Hidden bool

	parent   *Node
	children []*Node
}

// NewNode creates a detached node.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// Parent returns the containing node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the child list in draw order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// NumChildren returns the number of direct children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// IndexOf returns the draw-order index of c, or -1.
func (n *Node) IndexOf(c *Node) int {
	for i, child := range n.children {
		if child == c {
			return i
		}
	}
	return -1
}

// AddChild appends c, detaching it from its current parent first.
func (n *Node) AddChild(c *Node) {
	n.InsertChild(c, len(n.children))
}

// InsertChild places c at index i (clamped to the child range), detaching it
// from its current parent first.
func (n *Node) InsertChild(c *Node, i int) {
	c.RemoveFromParent()
	if i < 0 {
		i = 0
	}
	if i > len(n.children) {
		i = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
	c.parent = n
}

// RemoveChild detaches c. It reports whether c was a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	i := n.IndexOf(c)
	if i < 0 {
		return false
	}
	n.children = append(n.children[:i], n.children[i+1:]...)
	c.parent = nil
	return true
}

// RemoveFromParent detaches n from its parent, if any.
func (n *Node) RemoveFromParent() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// RemoveAllChildren detaches every child.
func (n *Node) RemoveAllChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// WorldPosition returns the sum of translations from the root down to n.
func (n *Node) WorldPosition() geometry.Point {
	var p geometry.Point
	for cur := n; cur != nil; cur = cur.parent {
		p = p.Add(cur.Position)
	}
	return p
}

// translationStack accumulates parent translations during a depth-first walk.
type translationStack struct {
	offsets []geometry.Point
}

func (ts *translationStack) push(p geometry.Point) {
	ts.offsets = append(ts.offsets, p)
}

func (ts *translationStack) pop() {
	if len(ts.offsets) > 0 {
		ts.offsets = ts.offsets[:len(ts.offsets)-1]
	}
}

func (ts *translationStack) accumulated() geometry.Point {
	var sum geometry.Point
	for _, o := range ts.offsets {
		sum = sum.Add(o)
	}
	return sum
}

// walk visits n and its descendants in draw order, passing each node's world
// position. Returning false from fn skips the node's subtree.
func walk(n *Node, ts *translationStack, fn func(*Node, geometry.Point) bool) {
	ts.push(n.Position)
	defer ts.pop()

	if !fn(n, ts.accumulated()) {
		return
	}
	for _, c := range n.children {
		walk(c, ts, fn)
	}
}

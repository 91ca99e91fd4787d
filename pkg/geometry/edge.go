package geometry

import "math"

// Edge names one of the eight resize/connect zones around a rectangle.
type Edge int

const (
	EdgeTop Edge = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
	EdgeTopRight
	EdgeBottomRight
	EdgeBottomLeft
	EdgeTopLeft
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeRight:
		return "right"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeTopRight:
		return "top-right"
	case EdgeBottomRight:
		return "bottom-right"
	case EdgeBottomLeft:
		return "bottom-left"
	case EdgeTopLeft:
		return "top-left"
	default:
		return "unknown"
	}
}

// IsCorner reports whether e is one of the four corner zones.
func (e Edge) IsCorner() bool {
	return e >= EdgeTopRight
}

// EdgeNearPoint classifies p as near one of the edges or corners of b, within
// offset pixels. Corners win over edges and are checked in the order
// top-right, bottom-right, bottom-left, top-left.
func EdgeNearPoint(p Point, b Bounds, offset float64) (Edge, bool) {
	if b.hasNaN() || math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return 0, false
	}

	left, right := b.X, b.X+b.Width
	top, bottom := b.Y, b.Y+b.Height

	// The point must sit inside the rectangle grown by offset.
	grown := Bounds{X: left - offset, Y: top - offset, Width: b.Width + 2*offset, Height: b.Height + 2*offset}
	if !IsPointInsideBounds(p, grown) {
		return 0, false
	}

	nearTop := math.Abs(p.Y-top) <= offset
	nearBottom := math.Abs(p.Y-bottom) <= offset
	nearLeft := math.Abs(p.X-left) <= offset
	nearRight := math.Abs(p.X-right) <= offset

	switch {
	case nearTop && nearRight:
		return EdgeTopRight, true
	case nearBottom && nearRight:
		return EdgeBottomRight, true
	case nearBottom && nearLeft:
		return EdgeBottomLeft, true
	case nearTop && nearLeft:
		return EdgeTopLeft, true
	case nearTop:
		return EdgeTop, true
	case nearRight:
		return EdgeRight, true
	case nearBottom:
		return EdgeBottom, true
	case nearLeft:
		return EdgeLeft, true
	}
	return 0, false
}

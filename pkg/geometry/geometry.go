// Package geometry holds the pure 2D helpers used by the canvas: rectangle
// overlap, grid snapping, containment and edge detection. Everything here is
// stateless and safe to call from any goroutine.
package geometry

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Point is a position in graph space (not screen space).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// IsZero reports whether both coordinates are exactly zero.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

func (p Point) vec() v2.Vec {
	return v2.Vec{X: p.X, Y: p.Y}
}

// Bounds is an axis-aligned rectangle anchored at its top-left corner.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Origin returns the top-left corner.
func (b Bounds) Origin() Point {
	return Point{X: b.X, Y: b.Y}
}

// Area returns Width*Height.
func (b Bounds) Area() float64 {
	return b.Width * b.Height
}

// Translate returns b moved by d.
func (b Bounds) Translate(d Point) Bounds {
	b.X += d.X
	b.Y += d.Y
	return b
}

func (b Bounds) box() sdf.Box2 {
	return sdf.Box2{
		Min: v2.Vec{X: b.X, Y: b.Y},
		Max: v2.Vec{X: b.X + b.Width, Y: b.Y + b.Height},
	}
}

func (b Bounds) hasNaN() bool {
	return math.IsNaN(b.X) || math.IsNaN(b.Y) || math.IsNaN(b.Width) || math.IsNaN(b.Height)
}

// RectangleIntersection returns the overlap of a and b. The second result is
// false when the rectangles are disjoint, only touch, or when the computed
// overlap contains NaN (malformed input bounds).
func RectangleIntersection(a, b Bounds) (Bounds, bool) {
	if a.hasNaN() || b.hasNaN() {
		return Bounds{}, false
	}
	ab, bb := a.box(), b.box()
	lo := ab.Min.Max(bb.Min)
	hi := ab.Max.Min(bb.Max)

	out := Bounds{X: lo.X, Y: lo.Y, Width: hi.X - lo.X, Height: hi.Y - lo.Y}
	if out.hasNaN() || out.Width <= 0 || out.Height <= 0 {
		return Bounds{}, false
	}
	return out, true
}

// AreaCoverage returns the fraction of a's area covered by b, in [0,1].
func AreaCoverage(a, b Bounds) float64 {
	overlap, ok := RectangleIntersection(a, b)
	if !ok {
		return 0
	}
	area := a.Area()
	if area <= 0 {
		return 0
	}
	return math.Min(1, overlap.Area()/area)
}

// SnapToGrid rounds value to the nearest multiple of gridSize. A grid size
// of 1 only removes sub-pixel offsets; non-positive sizes leave value as is.
func SnapToGrid(value, gridSize float64) float64 {
	if gridSize <= 0 {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}

// SnapPoint snaps both coordinates of p.
func SnapPoint(p Point, gridSize float64) Point {
	return Point{X: SnapToGrid(p.X, gridSize), Y: SnapToGrid(p.Y, gridSize)}
}

// IsPointInsideBounds reports whether p lies in b, boundary included.
func IsPointInsideBounds(p Point, b Bounds) bool {
	return b.box().Contains(p.vec())
}

// IsPointOutsideBounds is the negation of IsPointInsideBounds.
func IsPointOutsideBounds(p Point, b Bounds) bool {
	return !IsPointInsideBounds(p, b)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return a.vec().Sub(b.vec()).Length()
}

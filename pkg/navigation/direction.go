package navigation

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/flowcanvas/pkg/geometry"
)

// Direction is a keyboard navigation direction. Graph space grows downward,
// so Bottom means increasing Y.
type Direction string

const (
	Top    Direction = "top"
	Bottom Direction = "bottom"
	Left   Direction = "left"
	Right  Direction = "right"
)

// ParseDirection accepts the four names plus the arrow-key aliases up/down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "up":
		return Top, nil
	case "bottom", "down":
		return Bottom, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return "", fmt.Errorf("invalid direction %q, expected top, bottom, left or right", s)
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Top, Bottom, Left, Right:
		return true
	}
	return false
}

// Allows reports whether a candidate at c lies in direction d from ref. The
// axis with the larger deviation decides; an exact diagonal counts as
// horizontal. A candidate at the reference point lies in no direction.
func (d Direction) Allows(ref, c geometry.Point) bool {
	dx := c.X - ref.X
	dy := c.Y - ref.Y
	if dx == 0 && dy == 0 {
		return false
	}

	if math.Abs(dx) >= math.Abs(dy) {
		switch d {
		case Right:
			return dx > 0
		case Left:
			return dx < 0
		}
		return false
	}

	switch d {
	case Bottom:
		return dy > 0
	case Top:
		return dy < 0
	}
	return false
}

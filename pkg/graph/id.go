package graph

import "strings"

// ObjectID identifies a graph object. It is unique within one workflow and
// opaque to the canvas; the kind of an id is resolved through the store.
type ObjectID string

// ZeroID is the empty object id.
const ZeroID ObjectID = ""

// IsZero reports whether the id is empty.
func (id ObjectID) IsZero() bool {
	return id == ZeroID
}

// Short returns at most the first 12 characters of the id, for log lines.
func (id ObjectID) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:12])
}

// Kind enumerates the kinds of graph objects.
type Kind int

const (
	KindNode Kind = iota
	KindConnection
	KindAnnotation
	KindPortBar
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindConnection:
		return "connection"
	case KindAnnotation:
		return "annotation"
	case KindPortBar:
		return "port-bar"
	default:
		return "unknown"
	}
}

// Movable reports whether objects of this kind carry their own position.
// Connections follow their endpoints and are never dragged directly.
func (k Kind) Movable() bool {
	return k != KindConnection
}

// PortBarSide names one of the two port-bars of a container.
type PortBarSide string

const (
	PortBarIn  PortBarSide = "in"
	PortBarOut PortBarSide = "out"
)

// Valid reports whether s is a known side.
func (s PortBarSide) Valid() bool {
	return s == PortBarIn || s == PortBarOut
}

const portBarPrefix = "__portbar:"

// PortBarID returns the object id under which a port-bar side is addressed.
func PortBarID(side PortBarSide) ObjectID {
	return ObjectID(portBarPrefix + string(side))
}

// PortBarSideOf returns the side encoded in a port-bar id.
func PortBarSideOf(id ObjectID) (PortBarSide, bool) {
	s, ok := strings.CutPrefix(string(id), portBarPrefix)
	if !ok {
		return "", false
	}
	side := PortBarSide(s)
	return side, side.Valid()
}

package graph

import "github.com/chazu/flowcanvas/pkg/geometry"

// SnapshotObject is the read-only record of one positioned object.
type SnapshotObject struct {
	ID     ObjectID        `json:"id"`
	Kind   Kind            `json:"kind"`
	Bounds geometry.Bounds `json:"bounds"`
}

// Position returns the object's top-left corner.
func (o SnapshotObject) Position() geometry.Point {
	return o.Bounds.Origin()
}

// Snapshot is a point-in-time copy of node and annotation positions. It is
// never updated after creation.
type Snapshot struct {
	Objects []SnapshotObject `json:"objects"`
}

// Len returns the number of objects.
func (s Snapshot) Len() int {
	return len(s.Objects)
}

// Find returns the object with the given id.
func (s Snapshot) Find(id ObjectID) (SnapshotObject, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return SnapshotObject{}, false
}

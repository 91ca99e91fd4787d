// Package move implements dragging of canvas objects: arming on
// pointer-down, a preview-only delta while dragging, and a single commit
// through the graph store on release. At most one drag runs at a time.
package move

import (
	"errors"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

// State is the engine's position in the drag lifecycle.
type State int

const (
	Idle State = iota
	// Armed: pointer is down, no move has been applied yet.
	Armed
	// Dragging: the preview shows a delta; the graph is untouched.
	Dragging
	// Settling: released, waiting out the settle delay before committing.
	Settling
	// Committing: the commit request is in flight.
	Committing
	// Aborting: originals are being restored.
	Aborting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Settling:
		return "settling"
	case Committing:
		return "committing"
	case Aborting:
		return "aborting"
	}
	return "unknown"
}

var (
	// ErrSessionActive is returned when a drag is requested while another
	// one is running.
	ErrSessionActive = errors.New("a move session is already active")
	// ErrReadOnly is returned when the graph does not accept mutations.
	ErrReadOnly = errors.New("graph is read-only")
	// ErrCommitInFlight is returned when the commit was already dispatched.
	ErrCommitInFlight = errors.New("move commit in flight")
	// ErrNoSession is returned when there is no drag to act on.
	ErrNoSession = errors.New("no active move session")
	// ErrNotMovable is returned for targets that cannot be dragged.
	ErrNotMovable = errors.New("target is not movable")
)

// Modifiers are the keys held during a pointer event.
type Modifiers struct {
	// Additive extends the selection instead of replacing it.
	Additive bool
	// Fine snaps to a 1 unit grid instead of the configured one.
	Fine bool
}

// PointerEvent is a pointer event already converted to graph space.
type PointerEvent struct {
	PointerID int
	Target    graph.ObjectID
	Position  geometry.Point
	Modifiers Modifiers
}

// Preview renders the in-progress delta without touching the graph.
type Preview interface {
	Begin(ids []graph.ObjectID) error
	Apply(delta geometry.Point)
	// Finish puts every object at its final position and clears the
	// preview.
	Finish(finals map[graph.ObjectID]geometry.Point)
}

// Notifier surfaces failures to the user.
type Notifier interface {
	MoveFailed(ids []graph.ObjectID, err error)
}

// PointerCapturer routes a pointer to the originating element until
// released.
type PointerCapturer interface {
	Capture(pointerID int)
	Release(pointerID int)
}

// Selection is the part of the selection model the engine drives.
type Selection interface {
	IsSelected(id graph.ObjectID) bool
	SelectOnly(ids ...graph.ObjectID)
	Toggle(id graph.ObjectID) bool
	MovableIDs() []graph.ObjectID
}

// boundsReader is implemented by stores that expose object rectangles. The
// engine needs it to pin port-bars.
type boundsReader interface {
	ObjectBounds(id graph.ObjectID) (geometry.Bounds, bool)
}

type nopPreview struct{}

func (nopPreview) Begin([]graph.ObjectID) error { return nil }

func (nopPreview) Apply(geometry.Point) {}

func (nopPreview) Finish(map[graph.ObjectID]geometry.Point) {}

type nopCapturer struct{}

func (nopCapturer) Capture(int) {}
func (nopCapturer) Release(int) {}

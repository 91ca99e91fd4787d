package graph

import (
	"fmt"
	"math"

	"github.com/chazu/flowcanvas/pkg/geometry"
)

// ValidationSeverity indicates whether a finding rejects the graph or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // rejects the graph
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ObjectID ObjectID           // offending object (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.ObjectID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] object %s: %s", e.Severity, e.ObjectID.Short(), e.Message)
}

// Validate runs the structural checks on w. An empty slice means the graph
// is usable by the canvas. It never mutates w.
func Validate(w *Workflow) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateIDs(w)...)
	errs = append(errs, validateCoordinates(w)...)
	errs = append(errs, validateConnections(w)...)
	return errs
}

// validateIDs rejects empty ids and ids shared between kinds.
func validateIDs(w *Workflow) []ValidationError {
	var errs []ValidationError
	seen := make(map[ObjectID]Kind)

	check := func(id ObjectID, k Kind) {
		if id.IsZero() {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("%s with empty id", k),
				Severity: SeverityError,
			})
			return
		}
		if prev, dup := seen[id]; dup {
			errs = append(errs, ValidationError{
				ObjectID: id,
				Message:  fmt.Sprintf("id used by both a %s and a %s", prev, k),
				Severity: SeverityError,
			})
			return
		}
		seen[id] = k
	}

	for _, id := range w.order {
		if _, ok := w.Nodes[id]; ok {
			check(id, KindNode)
		}
		if _, ok := w.Annotations[id]; ok {
			check(id, KindAnnotation)
		}
		if _, ok := w.Connections[id]; ok {
			check(id, KindConnection)
		}
	}
	return errs
}

func badFloat(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

func badBounds(b geometry.Bounds) bool {
	return badFloat(b.X) || badFloat(b.Y) || badFloat(b.Width) || badFloat(b.Height)
}

// validateCoordinates rejects non-finite coordinates and warns on empty
// rectangles, which can never be hit or intersected.
func validateCoordinates(w *Workflow) []ValidationError {
	var errs []ValidationError

	for _, id := range w.order {
		b, ok := w.Bounds(id)
		if !ok {
			continue
		}
		if badBounds(b) {
			errs = append(errs, ValidationError{
				ObjectID: id,
				Message:  fmt.Sprintf("non-finite bounds %+v", b),
				Severity: SeverityError,
			})
			continue
		}
		if b.Width < 0 || b.Height < 0 {
			errs = append(errs, ValidationError{
				ObjectID: id,
				Message:  fmt.Sprintf("negative size %.1fx%.1f", b.Width, b.Height),
				Severity: SeverityError,
			})
			continue
		}
		if b.Width == 0 || b.Height == 0 {
			errs = append(errs, ValidationError{
				ObjectID: id,
				Message:  "zero-area bounds",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateConnections checks that both endpoints reference existing nodes.
func validateConnections(w *Workflow) []ValidationError {
	var errs []ValidationError

	for _, id := range w.order {
		c, ok := w.Connections[id]
		if !ok {
			continue
		}
		for _, end := range []ObjectID{c.Source, c.Target} {
			if _, exists := w.Nodes[end]; !exists {
				errs = append(errs, ValidationError{
					ObjectID: id,
					Message:  fmt.Sprintf("endpoint %s is not a node", end.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

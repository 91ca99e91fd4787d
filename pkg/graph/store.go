package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/flowcanvas/pkg/geometry"
)

var (
	// ErrNotFound is returned for ids absent from the graph.
	ErrNotFound = errors.New("object not found")
	// ErrReadOnly is returned when the graph rejects mutations.
	ErrReadOnly = errors.New("graph is read-only")
)

// MoveResult reports which ids a commit actually moved. Ids deleted by a
// concurrent edit before the commit landed are listed in Rejected.
type MoveResult struct {
	Moved    []ObjectID
	Rejected []ObjectID
}

// Partial reports whether some ids were rejected.
func (r MoveResult) Partial() bool {
	return len(r.Rejected) > 0
}

// Store is the persisted-graph collaborator the canvas writes through. It
// owns the authoritative object state; the canvas only holds derived views.
type Store interface {
	ObjectPosition(id ObjectID) (geometry.Point, bool)
	CommitMove(ctx context.Context, ids []ObjectID, delta geometry.Point) (MoveResult, error)
	CommitTransform(ctx context.Context, id ObjectID, bounds geometry.Bounds) error
	IsWritable() bool
}

// Reader exposes existence-checked lookups over the current graph.
type Reader interface {
	Kind(id ObjectID) (Kind, bool)
	Node(id ObjectID) (Node, bool)
	Connection(id ObjectID) (Connection, bool)
	Annotation(id ObjectID) (Annotation, bool)
	PortBar(side PortBarSide) (PortBar, bool)
	Snapshot() Snapshot
}

// Compile-time interface checks.
var (
	_ Store  = (*MemoryStore)(nil)
	_ Reader = (*MemoryStore)(nil)
)

// MemoryStore is a Store backed by an in-process Workflow. It is safe for
// concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	wf       *Workflow
	readOnly bool

	listenMu  sync.Mutex
	listeners []func()
}

// NewMemoryStore wraps wf. A nil wf starts an empty graph.
func NewMemoryStore(wf *Workflow) *MemoryStore {
	if wf == nil {
		wf = New()
	}
	return &MemoryStore{wf: wf}
}

// OnChange registers fn to run after every mutation.
func (s *MemoryStore) OnChange(fn func()) {
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

func (s *MemoryStore) changed() {
	s.listenMu.Lock()
	fns := make([]func(), len(s.listeners))
	copy(fns, s.listeners)
	s.listenMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetWritable toggles read-only mode.
func (s *MemoryStore) SetWritable(writable bool) {
	s.mu.Lock()
	s.readOnly = !writable
	s.mu.Unlock()
}

// IsWritable reports whether commits are accepted.
func (s *MemoryStore) IsWritable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.readOnly
}

// Replace swaps the whole workflow, e.g. after loading a fixture.
func (s *MemoryStore) Replace(wf *Workflow) {
	s.mu.Lock()
	s.wf = wf
	s.mu.Unlock()
	s.changed()
}

// Workflow returns a deep copy of the current graph.
func (s *MemoryStore) Workflow() *Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wf.Clone()
}

// AddNode inserts or replaces a node.
func (s *MemoryStore) AddNode(n Node) {
	s.mu.Lock()
	s.wf.AddNode(&n)
	s.mu.Unlock()
	s.changed()
}

// AddAnnotation inserts or replaces an annotation.
func (s *MemoryStore) AddAnnotation(a Annotation) {
	s.mu.Lock()
	s.wf.AddAnnotation(&a)
	s.mu.Unlock()
	s.changed()
}

// AddConnection inserts or replaces a connection.
func (s *MemoryStore) AddConnection(c Connection) {
	s.mu.Lock()
	s.wf.AddConnection(&c)
	s.mu.Unlock()
	s.changed()
}

// SetPortBar installs or replaces a port-bar.
func (s *MemoryStore) SetPortBar(p PortBar) {
	s.mu.Lock()
	s.wf.SetPortBar(&p)
	s.mu.Unlock()
	s.changed()
}

// Remove deletes any object by id.
func (s *MemoryStore) Remove(id ObjectID) bool {
	s.mu.Lock()
	ok := s.wf.Remove(id)
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

// Kind resolves the kind of id.
func (s *MemoryStore) Kind(id ObjectID) (Kind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wf.Kind(id)
}

// Node returns a copy of the node with the given id.
func (s *MemoryStore) Node(id ObjectID) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.wf.Nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Connection returns a copy of the connection with the given id.
func (s *MemoryStore) Connection(id ObjectID) (Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.wf.Connections[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Annotation returns a copy of the annotation with the given id.
func (s *MemoryStore) Annotation(id ObjectID) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.wf.Annotations[id]
	if !ok {
		return Annotation{}, false
	}
	return *a, true
}

// PortBar returns a copy of the bar on the given side.
func (s *MemoryStore) PortBar(side PortBarSide) (PortBar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.wf.PortBars[side]
	if !ok {
		return PortBar{}, false
	}
	return *p, true
}

// ObjectPosition returns the top-left corner of a movable object.
func (s *MemoryStore) ObjectPosition(id ObjectID) (geometry.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wf.Position(id)
}

// ObjectBounds returns the rectangle of a movable object.
func (s *MemoryStore) ObjectBounds(id ObjectID) (geometry.Bounds, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wf.Bounds(id)
}

// Snapshot returns a read-only copy of node and annotation positions.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wf.Snapshot()
}

// CommitMove translates every id by delta. Ids that no longer exist are
// rejected individually; the rest of the batch still applies.
func (s *MemoryStore) CommitMove(ctx context.Context, ids []ObjectID, delta geometry.Point) (MoveResult, error) {
	if err := ctx.Err(); err != nil {
		return MoveResult{}, err
	}

	s.mu.Lock()
	if s.readOnly {
		s.mu.Unlock()
		return MoveResult{}, fmt.Errorf("commit move: %w", ErrReadOnly)
	}

	var res MoveResult
	for _, id := range ids {
		if err := s.wf.Translate(id, delta); err != nil {
			res.Rejected = append(res.Rejected, id)
			continue
		}
		res.Moved = append(res.Moved, id)
	}
	s.mu.Unlock()

	if len(res.Moved) > 0 {
		s.changed()
	}
	return res, nil
}

// CommitTransform replaces the bounds of an annotation or port-bar. For a
// node only the origin of bounds is applied.
func (s *MemoryStore) CommitTransform(ctx context.Context, id ObjectID, bounds geometry.Bounds) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.readOnly {
		s.mu.Unlock()
		return fmt.Errorf("commit transform: %w", ErrReadOnly)
	}
	err := s.setBounds(id, bounds)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *MemoryStore) setBounds(id ObjectID, bounds geometry.Bounds) error {
	if n, ok := s.wf.Nodes[id]; ok {
		n.Position = bounds.Origin()
		return nil
	}
	if a, ok := s.wf.Annotations[id]; ok {
		a.Bounds = bounds
		return nil
	}
	if side, ok := PortBarSideOf(id); ok {
		if p, exists := s.wf.PortBars[side]; exists {
			p.Bounds = bounds
			return nil
		}
	}
	return fmt.Errorf("commit transform %s: %w", id.Short(), ErrNotFound)
}

package move

import (
	"sync"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/google/uuid"
)

// Session is one drag from pointer-down until the commit resolves or the
// drag is aborted.
type Session struct {
	ID        string
	PointerID int
	// IDs is the moved object set, fixed at arm time.
	IDs []graph.ObjectID
	// Originals holds each object's persisted position before the drag.
	Originals map[graph.ObjectID]geometry.Point

	start      geometry.Point // pointer position at arm time
	base       geometry.Point // delta carried over from a resumed drag
	delta      geometry.Point // current preview delta
	moves      int            // move events seen since arming
	previewing bool
	aborted    bool
}

func newSession(pointerID int, ids []graph.ObjectID, originals map[graph.ObjectID]geometry.Point, start geometry.Point) *Session {
	return &Session{
		ID:        uuid.NewString(),
		PointerID: pointerID,
		IDs:       ids,
		Originals: originals,
		start:     start,
	}
}

// Delta returns the current preview delta.
func (s *Session) Delta() geometry.Point {
	return s.delta
}

// Contains reports whether id is part of the moved set.
func (s *Session) Contains(id graph.ObjectID) bool {
	_, ok := s.Originals[id]
	return ok
}

// finals returns the position every moved id should end up at when only the
// ids in accepted received delta. A nil accepted set means none did.
func (s *Session) finals(accepted []graph.ObjectID, delta geometry.Point) map[graph.ObjectID]geometry.Point {
	out := make(map[graph.ObjectID]geometry.Point, len(s.Originals))
	for id, p := range s.Originals {
		out[id] = p
	}
	for _, id := range accepted {
		if p, ok := s.Originals[id]; ok {
			out[id] = p.Add(delta)
		}
	}
	return out
}

// Manager guards the single active session. Every surface that can start a
// drag shares one Manager.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

// NewManager returns an idle manager.
func NewManager() *Manager {
	return &Manager{}
}

// TryAcquire makes s the active session. It fails if another session holds
// the manager.
func (m *Manager) TryAcquire(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active != s {
		return false
	}
	m.active = s
	return true
}

// Release frees the manager if s is the active session.
func (m *Manager) Release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}

// Active returns the active session, if any.
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Package selection tracks which graph objects are selected. Membership is
// kept independently of the graph's own lifecycle; every getter cross-checks
// against the current graph so objects deleted by a concurrent edit drop out
// without an explicit deselect.
package selection

import (
	"log"
	"slices"
	"sync"

	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/samber/lo"
)

// Change is delivered to subscribers after a mutation that altered
// membership.
type Change struct {
	Nodes       []graph.ObjectID
	Connections []graph.ObjectID
	Annotations []graph.ObjectID
	PortBars    []graph.PortBarSide
}

// Empty reports whether nothing is selected.
func (c Change) Empty() bool {
	return len(c.Nodes) == 0 && len(c.Connections) == 0 && len(c.Annotations) == 0 && len(c.PortBars) == 0
}

// Options configures a Model.
type Options struct {
	// Logger receives debug lines for absorbed no-op mutations. Nil drops them.
	Logger *log.Logger
}

// Model is the single source of truth for what is selected. It is safe for
// concurrent use; subscribers run synchronously on the mutating goroutine,
// after the lock is released.
type Model struct {
	reader graph.Reader
	logger *log.Logger

	mu          sync.RWMutex
	nodes       map[graph.ObjectID]bool
	connections map[graph.ObjectID]bool
	annotations map[graph.ObjectID]bool
	portBars    map[graph.PortBarSide]bool

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New creates an empty selection over reader.
func New(reader graph.Reader, opts Options) *Model {
	return &Model{
		reader:      reader,
		logger:      opts.Logger,
		nodes:       make(map[graph.ObjectID]bool),
		connections: make(map[graph.ObjectID]bool),
		annotations: make(map[graph.ObjectID]bool),
		portBars:    make(map[graph.PortBarSide]bool),
		subs:        make(map[int]func(Change)),
	}
}

func (m *Model) debugf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// Subscribe registers fn for change notifications and returns a func that
// removes it.
func (m *Model) Subscribe(fn func(Change)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Model) notify() {
	change := m.Current()

	m.subMu.Lock()
	keys := lo.Keys(m.subs)
	slices.Sort(keys)
	fns := make([]func(Change), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, m.subs[k])
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

// membership returns the map an id of kind k belongs in.
func (m *Model) membership(k graph.Kind) map[graph.ObjectID]bool {
	switch k {
	case graph.KindNode:
		return m.nodes
	case graph.KindConnection:
		return m.connections
	case graph.KindAnnotation:
		return m.annotations
	}
	return nil
}

// add inserts id into its membership map. Callers hold m.mu.
func (m *Model) add(id graph.ObjectID) bool {
	kind, ok := m.reader.Kind(id)
	if !ok {
		m.debugf("selection: ignoring unknown id %s", id.Short())
		return false
	}
	if kind == graph.KindPortBar {
		side, _ := graph.PortBarSideOf(id)
		if m.portBars[side] {
			return false
		}
		m.portBars[side] = true
		return true
	}
	set := m.membership(kind)
	if set[id] {
		return false
	}
	set[id] = true
	return true
}

// remove deletes id from whichever map holds it. Callers hold m.mu.
func (m *Model) remove(id graph.ObjectID) bool {
	if side, ok := graph.PortBarSideOf(id); ok {
		if !m.portBars[side] {
			return false
		}
		delete(m.portBars, side)
		return true
	}
	for _, set := range []map[graph.ObjectID]bool{m.nodes, m.connections, m.annotations} {
		if set[id] {
			delete(set, id)
			return true
		}
	}
	return false
}

// emptyLocked reports whether no member still exists in the graph. Members
// deleted from the graph do not count.
func (m *Model) emptyLocked() bool {
	return len(m.liveIDs(m.nodes, graph.KindNode)) == 0 &&
		len(m.liveIDs(m.connections, graph.KindConnection)) == 0 &&
		len(m.liveIDs(m.annotations, graph.KindAnnotation)) == 0 &&
		len(m.livePortBars()) == 0
}

func (m *Model) clearLocked() {
	clear(m.nodes)
	clear(m.connections)
	clear(m.annotations)
	clear(m.portBars)
}

// Select adds ids to the selection. Ids missing from the graph are ignored.
// Subscribers are notified at most once, and only if membership changed.
func (m *Model) Select(ids ...graph.ObjectID) {
	m.mu.Lock()
	changed := false
	for _, id := range ids {
		if m.add(id) {
			changed = true
		}
	}
	m.mu.Unlock()

	if !changed {
		m.debugf("selection: select of %d id(s) changed nothing", len(ids))
		return
	}
	m.notify()
}

// Deselect removes ids from the selection.
func (m *Model) Deselect(ids ...graph.ObjectID) {
	m.mu.Lock()
	changed := false
	for _, id := range ids {
		if m.remove(id) {
			changed = true
		}
	}
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// Toggle flips the membership of id and reports whether it is now selected.
func (m *Model) Toggle(id graph.ObjectID) bool {
	m.mu.Lock()
	var selected bool
	changed := m.remove(id)
	if !changed {
		changed = m.add(id)
		selected = changed
	}
	m.mu.Unlock()

	if changed {
		m.notify()
	}
	return selected
}

// SelectOnly replaces the whole selection with ids in one notification.
func (m *Model) SelectOnly(ids ...graph.ObjectID) {
	m.mu.Lock()
	before := m.snapshotLocked()
	m.clearLocked()
	for _, id := range ids {
		m.add(id)
	}
	changed := !sameMembership(before, m.snapshotLocked())
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// ClearAll empties the selection. Clearing an empty selection does not
// notify subscribers.
func (m *Model) ClearAll() {
	m.mu.Lock()
	empty := m.emptyLocked()
	m.clearLocked()
	m.mu.Unlock()

	if empty {
		m.debugf("selection: redundant clear")
		return
	}
	m.notify()
}

// SelectPortBar adds the bar on side to the selection if it exists.
func (m *Model) SelectPortBar(side graph.PortBarSide) {
	m.Select(graph.PortBarID(side))
}

// DeselectPortBar removes the bar on side from the selection.
func (m *Model) DeselectPortBar(side graph.PortBarSide) {
	m.Deselect(graph.PortBarID(side))
}

type membershipSnapshot struct {
	nodes, connections, annotations []graph.ObjectID
	portBars                        []graph.PortBarSide
}

func (m *Model) snapshotLocked() membershipSnapshot {
	s := membershipSnapshot{
		nodes:       lo.Keys(m.nodes),
		connections: lo.Keys(m.connections),
		annotations: lo.Keys(m.annotations),
		portBars:    lo.Keys(m.portBars),
	}
	slices.Sort(s.nodes)
	slices.Sort(s.connections)
	slices.Sort(s.annotations)
	slices.Sort(s.portBars)
	return s
}

func sameMembership(a, b membershipSnapshot) bool {
	return slices.Equal(a.nodes, b.nodes) &&
		slices.Equal(a.connections, b.connections) &&
		slices.Equal(a.annotations, b.annotations) &&
		slices.Equal(a.portBars, b.portBars)
}

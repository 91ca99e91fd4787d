package selection

import (
	"slices"

	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/samber/lo"
)

// liveIDs returns the members of set that still exist in the graph as kind,
// sorted.
func (m *Model) liveIDs(set map[graph.ObjectID]bool, kind graph.Kind) []graph.ObjectID {
	ids := lo.Filter(lo.Keys(set), func(id graph.ObjectID, _ int) bool {
		k, ok := m.reader.Kind(id)
		return ok && k == kind
	})
	slices.Sort(ids)
	return ids
}

func (m *Model) livePortBars() []graph.PortBarSide {
	sides := lo.Filter(lo.Keys(m.portBars), func(side graph.PortBarSide, _ int) bool {
		_, ok := m.reader.PortBar(side)
		return ok
	})
	slices.Sort(sides)
	return sides
}

// Current returns the existence-filtered selection.
func (m *Model) Current() Change {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Change{
		Nodes:       m.liveIDs(m.nodes, graph.KindNode),
		Connections: m.liveIDs(m.connections, graph.KindConnection),
		Annotations: m.liveIDs(m.annotations, graph.KindAnnotation),
		PortBars:    m.livePortBars(),
	}
}

// SelectedNodes returns the selected nodes that still exist, ordered by id.
func (m *Model) SelectedNodes() []graph.Node {
	m.mu.RLock()
	ids := lo.Keys(m.nodes)
	m.mu.RUnlock()
	slices.Sort(ids)

	out := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := m.reader.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// SelectedConnections returns the selected connections that still exist.
func (m *Model) SelectedConnections() []graph.Connection {
	m.mu.RLock()
	ids := lo.Keys(m.connections)
	m.mu.RUnlock()
	slices.Sort(ids)

	out := make([]graph.Connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.reader.Connection(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// SelectedAnnotations returns the selected annotations that still exist.
func (m *Model) SelectedAnnotations() []graph.Annotation {
	m.mu.RLock()
	ids := lo.Keys(m.annotations)
	m.mu.RUnlock()
	slices.Sort(ids)

	out := make([]graph.Annotation, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.reader.Annotation(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// SelectedPortBars returns the selected port-bar sides whose bar exists.
func (m *Model) SelectedPortBars() []graph.PortBarSide {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.livePortBars()
}

// SingleSelectedNode returns the selected node only when exactly one node is
// selected.
func (m *Model) SingleSelectedNode() (graph.Node, bool) {
	nodes := m.SelectedNodes()
	if len(nodes) != 1 {
		return graph.Node{}, false
	}
	return nodes[0], true
}

// MovableIDs returns every selected object that carries its own position:
// nodes, annotations and port-bars. Connections are excluded.
func (m *Model) MovableIDs() []graph.ObjectID {
	cur := m.Current()
	ids := make([]graph.ObjectID, 0, len(cur.Nodes)+len(cur.Annotations)+len(cur.PortBars))
	ids = append(ids, cur.Nodes...)
	ids = append(ids, cur.Annotations...)
	for _, side := range cur.PortBars {
		ids = append(ids, graph.PortBarID(side))
	}
	return ids
}

// IsNodeSelected reports membership of a node id. It does not consult the
// graph.
func (m *Model) IsNodeSelected(id graph.ObjectID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[id]
}

// IsAnnotationSelected reports membership of an annotation id.
func (m *Model) IsAnnotationSelected(id graph.ObjectID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.annotations[id]
}

// IsConnectionSelected reports membership of a connection id.
func (m *Model) IsConnectionSelected(id graph.ObjectID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[id]
}

// IsPortBarSelected reports membership of a port-bar side.
func (m *Model) IsPortBarSelected(side graph.PortBarSide) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.portBars[side]
}

// IsSelected reports membership of any id.
func (m *Model) IsSelected(id graph.ObjectID) bool {
	if side, ok := graph.PortBarSideOf(id); ok {
		return m.IsPortBarSelected(side)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[id] || m.annotations[id] || m.connections[id]
}

// Prune drops members that no longer exist in the graph. The filtered view
// is unchanged by this, so subscribers are not notified.
func (m *Model) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for _, kind := range []graph.Kind{graph.KindNode, graph.KindConnection, graph.KindAnnotation} {
		set := m.membership(kind)
		for id := range set {
			if k, ok := m.reader.Kind(id); !ok || k != kind {
				delete(set, id)
				dropped++
			}
		}
	}
	for side := range m.portBars {
		if _, ok := m.reader.PortBar(side); !ok {
			delete(m.portBars, side)
			dropped++
		}
	}
	if dropped > 0 {
		m.debugf("selection: pruned %d dangling id(s)", dropped)
	}
	return dropped
}

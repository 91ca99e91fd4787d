package canvas

import (
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/scene"
)

// dragPreview drives the scene's drag layer for the move engine. Syncs that
// land mid-drag leave held visuals alone, so once the layer lets go the
// scene is reconciled with the store again.
type dragPreview struct {
	layer *scene.DragLayer
	scene *scene.Scene
	store graph.Reader
}

func (p dragPreview) Begin(ids []graph.ObjectID) error { return p.layer.Begin(ids) }

func (p dragPreview) Apply(delta geometry.Point) { p.layer.Apply(delta) }

func (p dragPreview) Finish(finals map[graph.ObjectID]geometry.Point) {
	p.layer.Finish(finals)
	p.scene.Sync(p.store.Snapshot())
}

// Package canvas wires the graph store, selection, scene, drag engine and
// spatial navigation into one Canvas that outer surfaces drive.
package canvas

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/chazu/flowcanvas/pkg/config"
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/move"
	"github.com/chazu/flowcanvas/pkg/navigation"
	"github.com/chazu/flowcanvas/pkg/scene"
	"github.com/chazu/flowcanvas/pkg/selection"
	"github.com/samber/lo"
)

// ErrNoReference is returned by Navigate when the selection does not name a
// single object to navigate from.
var ErrNoReference = errors.New("navigation needs exactly one selected node or annotation")

// Backend is the persisted graph the canvas edits.
type Backend interface {
	graph.Store
	graph.Reader
	OnChange(fn func())
}

// Options configures a Canvas.
type Options struct {
	GridSize      float64
	SettleDelay   time.Duration
	FrameInterval time.Duration
	EdgeOffset    float64
	Neighbors     int
	QueueSize     int

	Notifier move.Notifier
	Capturer move.PointerCapturer
	// Manager is shared with any other canvas that may start drags.
	Manager *move.Manager
	// Logger receives debug output from every component. Nil disables it.
	Logger *log.Logger
}

// OptionsFromConfig maps a loaded configuration onto canvas options. Debug
// logging goes to logger only when cfg enables it.
func OptionsFromConfig(cfg *config.Config, logger *log.Logger) Options {
	opts := Options{
		GridSize:      cfg.Canvas.GridSize,
		SettleDelay:   cfg.Canvas.SettleDelay.Duration,
		FrameInterval: cfg.Canvas.FrameInterval.Duration,
		EdgeOffset:    cfg.Canvas.EdgeOffset,
		Neighbors:     cfg.Navigation.Neighbors,
		QueueSize:     cfg.Navigation.QueueSize,
	}
	if cfg.Log.Debug {
		opts.Logger = logger
	}
	return opts
}

// Canvas is the interaction core for one graph.
type Canvas struct {
	store  Backend
	opts   Options
	sel    *selection.Model
	scene  *scene.Scene
	moves  *move.Engine
	nav    *navigation.Navigator
	unsub  func()
	logger *log.Logger
}

// New builds a canvas over store. Call Start to run the background parts.
func New(store Backend, opts Options) *Canvas {
	c := &Canvas{
		store:  store,
		opts:   opts,
		sel:    selection.New(store, selection.Options{Logger: opts.Logger}),
		scene:  scene.New(),
		logger: opts.Logger,
	}
	c.moves = move.New(store, c.sel, move.Options{
		GridSize:    opts.GridSize,
		SettleDelay: opts.SettleDelay,
		Preview:     dragPreview{layer: c.scene.DragLayer(), scene: c.scene, store: store},
		Notifier:    opts.Notifier,
		Capturer:    opts.Capturer,
		Manager:     opts.Manager,
		Logger:      opts.Logger,
	})
	c.nav = navigation.NewNavigator(navigation.NewService(navigation.Options{
		Neighbors: opts.Neighbors,
		QueueSize: opts.QueueSize,
		Logger:    opts.Logger,
	}), nil)

	c.scene.Sync(store.Snapshot())
	c.unsub = c.sel.Subscribe(c.selectionChanged)
	store.OnChange(c.graphChanged)
	return c
}

// Start runs the navigation worker and, when a frame interval is set, the
// drag frame loop. Both stop with ctx.
func (c *Canvas) Start(ctx context.Context) {
	c.nav.Start(ctx)
	if c.opts.FrameInterval > 0 {
		go c.moves.RunFrames(ctx, c.opts.FrameInterval)
	}
}

// Close detaches the canvas from selection updates.
func (c *Canvas) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

func (c *Canvas) debugf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func (c *Canvas) graphChanged() {
	if n := c.sel.Prune(); n > 0 {
		c.debugf("canvas: pruned %d deleted objects from selection", n)
	}
	c.scene.Sync(c.store.Snapshot())
	c.showOutlines(c.sel.Current())
}

func (c *Canvas) selectionChanged(ch selection.Change) {
	c.showOutlines(ch)
}

func (c *Canvas) showOutlines(ch selection.Change) {
	ids := make([]graph.ObjectID, 0, len(ch.Nodes)+len(ch.Annotations))
	ids = append(ids, ch.Nodes...)
	ids = append(ids, ch.Annotations...)
	c.scene.ShowOutlines(ids)
}

// Store returns the backing graph.
func (c *Canvas) Store() Backend { return c.store }

// Selection returns the selection model.
func (c *Canvas) Selection() *selection.Model { return c.sel }

// Scene returns the scene graph.
func (c *Canvas) Scene() *scene.Scene { return c.scene }

// Moves returns the drag engine.
func (c *Canvas) Moves() *move.Engine { return c.moves }

// ObjectAt returns the topmost node or annotation containing p.
func (c *Canvas) ObjectAt(p geometry.Point) (graph.ObjectID, bool) {
	objs := c.store.Snapshot().Objects
	for i := len(objs) - 1; i >= 0; i-- {
		if geometry.IsPointInsideBounds(p, objs[i].Bounds) {
			return objs[i].ID, true
		}
	}
	return graph.ZeroID, false
}

// EdgeAt reports which edge or corner of object id lies under p, within the
// configured edge offset.
func (c *Canvas) EdgeAt(id graph.ObjectID, p geometry.Point) (geometry.Edge, bool) {
	o, ok := c.store.Snapshot().Find(id)
	if !ok {
		return 0, false
	}
	return geometry.EdgeNearPoint(p, o.Bounds, c.opts.EdgeOffset)
}

// PointerDown hit-tests p and arms a drag on whatever is there. Pressing
// empty canvas clears the selection unless the additive modifier is held.
func (c *Canvas) PointerDown(pointerID int, p geometry.Point, mods move.Modifiers) error {
	id, ok := c.ObjectAt(p)
	if !ok {
		if !mods.Additive {
			c.sel.ClearAll()
		}
		return nil
	}
	return c.PointerDownOn(pointerID, id, p, mods)
}

// PointerDownOn arms a drag on a known target, for surfaces that hit-test
// themselves (port-bars, connections).
func (c *Canvas) PointerDownOn(pointerID int, id graph.ObjectID, p geometry.Point, mods move.Modifiers) error {
	return c.moves.PointerDown(move.PointerEvent{PointerID: pointerID, Target: id, Position: p, Modifiers: mods})
}

// PointerMove feeds a pointer position to the drag engine.
func (c *Canvas) PointerMove(pointerID int, p geometry.Point, mods move.Modifiers) {
	c.moves.PointerMove(move.PointerEvent{PointerID: pointerID, Position: p, Modifiers: mods})
}

// PointerUp releases the drag.
func (c *Canvas) PointerUp(pointerID int, p geometry.Point) {
	c.moves.PointerUp(move.PointerEvent{PointerID: pointerID, Position: p})
}

// Abort cancels the current drag.
func (c *Canvas) Abort() error {
	return c.moves.Abort()
}

// reference returns the single selected node or annotation.
func (c *Canvas) reference() (navigation.Reference, error) {
	cur := c.sel.Current()
	ids := lo.Union(cur.Nodes, cur.Annotations)
	if len(ids) != 1 {
		return navigation.Reference{}, ErrNoReference
	}
	p, ok := c.store.ObjectPosition(ids[0])
	if !ok {
		return navigation.Reference{}, ErrNoReference
	}
	return navigation.Reference{ID: ids[0], Position: p}, nil
}

// Nearest returns the closest object to id in direction d without touching
// the selection.
func (c *Canvas) Nearest(ctx context.Context, id graph.ObjectID, d navigation.Direction) (navigation.Candidate, bool, error) {
	p, ok := c.store.ObjectPosition(id)
	if !ok {
		return navigation.Candidate{}, false, graph.ErrNotFound
	}
	return c.nav.Await(ctx, c.store.Snapshot(), navigation.Reference{ID: id, Position: p}, d)
}

// Navigate moves the selection from the single selected object to its
// nearest neighbour in direction d. With no neighbour the selection stays.
func (c *Canvas) Navigate(ctx context.Context, d navigation.Direction) (navigation.Candidate, bool, error) {
	ref, err := c.reference()
	if err != nil {
		return navigation.Candidate{}, false, err
	}
	cand, ok, err := c.nav.Await(ctx, c.store.Snapshot(), ref, d)
	if err != nil || !ok {
		return cand, ok, err
	}
	c.sel.SelectOnly(cand.ID)
	return cand, true, nil
}

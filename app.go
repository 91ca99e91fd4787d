package main

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/chazu/flowcanvas/pkg/canvas"
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/move"
	"github.com/chazu/flowcanvas/pkg/navigation"
	"github.com/chazu/flowcanvas/pkg/script"
	"github.com/chazu/flowcanvas/pkg/selection"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Events emitted to the frontend.
const (
	EventSelectionChanged = "selection:changed"
	EventToast            = "toast"
	EventPointerCapture   = "pointer:capture"
	EventPointerRelease   = "pointer:release"
	EventGraphChanged     = "graph:changed"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	cancel  context.CancelFunc
	store   *graph.MemoryStore
	canvas  *canvas.Canvas
	console *script.Console

	// emit sends an event to the frontend. Tests replace it.
	emitMu sync.Mutex
	emit   func(name string, data ...any)
}

// ToastData is a user-visible notification.
type ToastData struct {
	Level   string   `json:"level"`
	Message string   `json:"message"`
	IDs     []string `json:"ids,omitempty"`
}

// SelectionData is the JSON form of the selection.
type SelectionData struct {
	Nodes       []string `json:"nodes"`
	Connections []string `json:"connections"`
	Annotations []string `json:"annotations"`
	PortBars    []string `json:"portBars"`
}

// PointerResult is returned from PointerDown.
type PointerResult struct {
	// Target is the object under the pointer, empty for bare canvas.
	Target string `json:"target"`
	Error  string `json:"error,omitempty"`
}

// NavigateResult is returned from Navigate.
type NavigateResult struct {
	Found    bool    `json:"found"`
	ID       string  `json:"id,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// DrawItemData is one visible scene entry with its screen position.
type DrawItemData struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Value  string          `json:"value"`
	Output []string        `json:"output"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates an App editing store. opts.Notifier and opts.Capturer are
// replaced by hooks that emit frontend events.
func NewApp(store *graph.MemoryStore, opts canvas.Options) *App {
	a := &App{store: store}
	hooks := frontendHooks{app: a}
	opts.Notifier = hooks
	opts.Capturer = hooks
	a.canvas = canvas.New(store, opts)
	a.console = script.New(a.canvas)

	a.canvas.Selection().Subscribe(func(ch selection.Change) {
		a.send(EventSelectionChanged, selectionData(ch))
	})
	store.OnChange(func() {
		a.send(EventGraphChanged)
	})
	return a
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.emitMu.Lock()
	a.ctx = ctx
	a.emitMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.canvas.Start(runCtx)
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.canvas.Close()
}

// send emits an event. Before startup there is no frontend to receive it.
func (a *App) send(name string, data ...any) {
	a.emitMu.Lock()
	emit, ctx := a.emit, a.ctx
	a.emitMu.Unlock()

	if emit != nil {
		emit(name, data...)
		return
	}
	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, name, data...)
}

// frontendHooks delivers move engine callbacks to the frontend. It is kept
// off App so Wails does not bind the callbacks as frontend-callable methods.
type frontendHooks struct {
	app *App
}

// MoveFailed surfaces a failed or partially rejected commit as a toast.
func (h frontendHooks) MoveFailed(ids []graph.ObjectID, err error) {
	log.Printf("Move failed: %v", err)
	level := "error"
	if errors.Is(err, graph.ErrNotFound) {
		level = "warning"
	}
	h.app.send(EventToast, ToastData{Level: level, Message: err.Error(), IDs: idStrings(ids)})
}

// Capture asks the frontend to capture pointerID on the drag surface.
func (h frontendHooks) Capture(pointerID int) {
	h.app.send(EventPointerCapture, pointerID)
}

// Release asks the frontend to release pointerID.
func (h frontendHooks) Release(pointerID int) {
	h.app.send(EventPointerRelease, pointerID)
}

// PointerDown hit-tests (x, y) in graph space and arms a drag on the object
// there.
func (a *App) PointerDown(pointerID int, x, y float64, additive, fine bool) PointerResult {
	p := geometry.Point{X: x, Y: y}
	var res PointerResult
	if id, ok := a.canvas.ObjectAt(p); ok {
		res.Target = string(id)
	}
	if err := a.canvas.PointerDown(pointerID, p, move.Modifiers{Additive: additive, Fine: fine}); err != nil {
		res.Error = err.Error()
		if errors.Is(err, move.ErrReadOnly) {
			a.send(EventToast, ToastData{Level: "info", Message: "The workflow is read-only"})
		}
	}
	return res
}

// PointerDownOnPortBar arms a drag on the "in" or "out" port-bar.
func (a *App) PointerDownOnPortBar(pointerID int, side string, x, y float64, additive bool) PointerResult {
	s := graph.PortBarSide(side)
	if !s.Valid() {
		return PointerResult{Error: "unknown port-bar side " + side}
	}
	id := graph.PortBarID(s)
	res := PointerResult{Target: string(id)}
	if err := a.canvas.PointerDownOn(pointerID, id, geometry.Point{X: x, Y: y}, move.Modifiers{Additive: additive}); err != nil {
		res.Error = err.Error()
	}
	return res
}

// PointerMove records a pointer position. It is applied on the next Frame.
func (a *App) PointerMove(pointerID int, x, y float64, fine bool) {
	a.canvas.PointerMove(pointerID, geometry.Point{X: x, Y: y}, move.Modifiers{Fine: fine})
}

// Frame applies the latest pointer position. The frontend calls it from
// requestAnimationFrame and redraws when it returns true.
func (a *App) Frame() bool {
	return a.canvas.Moves().Frame()
}

// PointerUp releases the drag.
func (a *App) PointerUp(pointerID int, x, y float64) {
	a.canvas.PointerUp(pointerID, geometry.Point{X: x, Y: y})
}

// LostPointerCapture is called when the browser takes the capture away.
func (a *App) LostPointerCapture(pointerID int) {
	a.canvas.Moves().LostPointerCapture(pointerID)
}

// Abort cancels the drag, typically on Escape. It returns an error message
// when nothing could be aborted.
func (a *App) Abort() string {
	if err := a.canvas.Abort(); err != nil {
		return err.Error()
	}
	return ""
}

// Navigate moves the selection to the nearest object in direction, one of
// "up", "down", "left" or "right".
func (a *App) Navigate(direction string) NavigateResult {
	d, err := navigation.ParseDirection(direction)
	if err != nil {
		return NavigateResult{Error: err.Error()}
	}
	a.emitMu.Lock()
	ctx := a.ctx
	a.emitMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, script.EvalTimeout)
	defer cancel()

	cand, ok, err := a.canvas.Navigate(ctx, d)
	if err != nil {
		return NavigateResult{Error: err.Error()}
	}
	if !ok {
		return NavigateResult{}
	}
	return NavigateResult{Found: true, ID: string(cand.ID), Distance: cand.Distance}
}

// Select replaces the selection with ids, or extends it when additive.
func (a *App) Select(ids []string, additive bool) SelectionData {
	objs := make([]graph.ObjectID, len(ids))
	for i, id := range ids {
		objs[i] = graph.ObjectID(id)
	}
	if additive {
		a.canvas.Selection().Select(objs...)
	} else {
		a.canvas.Selection().SelectOnly(objs...)
	}
	return a.Selection()
}

// ClearSelection deselects everything.
func (a *App) ClearSelection() {
	a.canvas.Selection().ClearAll()
}

// Selection returns the current selection.
func (a *App) Selection() SelectionData {
	return selectionData(a.canvas.Selection().Current())
}

// SetCamera pans the view so that (x, y) in graph space is the top-left of a
// width by height viewport, and culls everything outside it. It returns the
// number of culled objects.
func (a *App) SetCamera(x, y, width, height float64) int {
	sc := a.canvas.Scene()
	sc.SetCamera(geometry.Point{X: -x, Y: -y})
	return sc.Cull(geometry.Bounds{Width: width, Height: height})
}

// Scene returns the visible draw list.
func (a *App) Scene() []DrawItemData {
	items := a.canvas.Scene().DrawList()
	out := make([]DrawItemData, len(items))
	for i, it := range items {
		out[i] = DrawItemData{Name: it.Name, X: it.Position.X, Y: it.Position.Y}
	}
	return out
}

// Evaluate runs a canvas script. This is the binding behind the console
// panel.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Output: []string{},
		Errors: []EvalErrorData{},
	}

	res, evalErrs, err := a.console.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, superseded)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Message: e.Message})
	}
	if len(evalErrs) > 0 {
		return result
	}

	result.Value = res.Value
	if res.Output != nil {
		result.Output = res.Output
	}
	return result
}

func selectionData(ch selection.Change) SelectionData {
	d := SelectionData{
		Nodes:       idStrings(ch.Nodes),
		Connections: idStrings(ch.Connections),
		Annotations: idStrings(ch.Annotations),
		PortBars:    make([]string, len(ch.PortBars)),
	}
	for i, s := range ch.PortBars {
		d.PortBars[i] = string(s)
	}
	return d
}

func idStrings(ids []graph.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

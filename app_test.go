package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chazu/flowcanvas/pkg/canvas"
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/chazu/flowcanvas/pkg/move"
)

type event struct {
	name string
	data []any
}

// recorder stands in for the Wails runtime event bus.
type recorder struct {
	mu     sync.Mutex
	events []event
	signal chan struct{}
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan struct{})}
}

func (r *recorder) emit(name string, data ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name: name, data: data})
	close(r.signal)
	r.signal = make(chan struct{})
}

func (r *recorder) named(name string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

// waitFor blocks until an event called name has been emitted.
func (r *recorder) waitFor(t *testing.T, name string) event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		r.mu.Lock()
		for _, e := range r.events {
			if e.name == name {
				r.mu.Unlock()
				return e
			}
		}
		ch := r.signal
		r.mu.Unlock()

		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("timed out waiting for event %q", name)
		}
	}
}

func newTestApp(t *testing.T) (*App, *recorder) {
	t.Helper()
	wf, err := graph.ReadFile("examples/workflow.json")
	if err != nil {
		t.Fatalf("failed to read workflow.json: %v", err)
	}
	app := NewApp(graph.NewMemoryStore(wf), canvas.Options{GridSize: 20})
	rec := newRecorder()
	app.emit = rec.emit

	ctx, cancel := context.WithCancel(context.Background())
	app.startup(ctx)
	t.Cleanup(func() {
		app.shutdown(ctx)
		cancel()
	})
	return app, rec
}

func waitIdle(t *testing.T, app *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.canvas.Moves().WaitIdle(ctx); err != nil {
		t.Fatalf("drag did not settle: %v", err)
	}
}

// TestE2EDragCommits exercises the full pointer path the frontend drives:
// hit test, selection, frame-coalesced preview and commit.
func TestE2EDragCommits(t *testing.T) {
	app, rec := newTestApp(t)

	res := app.PointerDown(1, 10, 10, false, false)
	if res.Error != "" {
		t.Fatalf("PointerDown error: %s", res.Error)
	}
	if res.Target != "root:1" {
		t.Fatalf("Target = %q, want root:1", res.Target)
	}
	sel := app.Selection()
	if len(sel.Nodes) != 1 || sel.Nodes[0] != "root:1" {
		t.Errorf("selection = %+v, want only root:1", sel)
	}
	if len(rec.named(EventSelectionChanged)) == 0 {
		t.Error("expected a selection:changed event")
	}
	if len(rec.named(EventPointerCapture)) != 1 {
		t.Error("expected the pointer to be captured")
	}

	// The first move only establishes the drag.
	app.PointerMove(1, 12, 12, false)
	if app.Frame() {
		t.Error("first move should not change the preview")
	}
	app.PointerMove(1, 55, 48, false)
	if !app.Frame() {
		t.Error("second move should change the preview")
	}

	// Nothing is persisted while dragging.
	if p, _ := app.store.ObjectPosition("root:1"); p != (geometry.Point{}) {
		t.Errorf("root:1 moved to %v before release", p)
	}

	app.PointerUp(1, 55, 48)
	waitIdle(t, app)

	if p, _ := app.store.ObjectPosition("root:1"); p != (geometry.Point{X: 40, Y: 40}) {
		t.Errorf("root:1 at %v, want {40 40}", p)
	}
	if len(rec.named(EventPointerRelease)) != 1 {
		t.Error("expected the pointer to be released")
	}
	rec.waitFor(t, EventGraphChanged)
	if len(rec.named(EventToast)) != 0 {
		t.Errorf("unexpected toast: %+v", rec.named(EventToast))
	}
}

func TestE2EEvaluateScript(t *testing.T) {
	app, _ := newTestApp(t)

	result := app.Evaluate(`
; walk right from the loader
(select "root:1")
(navigate :right)`)

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if result.Value != `"root:2"` {
		t.Errorf("Value = %s, want \"root:2\"", result.Value)
	}
	sel := app.Selection()
	if len(sel.Nodes) != 1 || sel.Nodes[0] != "root:2" {
		t.Errorf("selection = %+v, want only root:2", sel)
	}
}

func TestE2ENavigate(t *testing.T) {
	app, _ := newTestApp(t)

	if res := app.Navigate("down"); res.Error == "" {
		t.Error("expected an error with nothing selected")
	}

	app.Select([]string{"root:1"}, false)
	res := app.Navigate("down")
	if res.Error != "" || !res.Found || res.ID != "root:3" {
		t.Fatalf("Navigate(down) = %+v, want root:3", res)
	}
	if res.Distance <= 0 {
		t.Errorf("Distance = %v, want > 0", res.Distance)
	}

	res = app.Navigate("up")
	if res.Error != "" || !res.Found || res.ID != "root:1" {
		t.Errorf("Navigate(up) = %+v, want root:1", res)
	}

	if res := app.Navigate("sideways"); res.Error == "" {
		t.Error("expected an error for an unknown direction")
	}
}

// Wails binds every exported App method, so the engine callbacks must live
// elsewhere or the frontend could raise toasts and pointer captures itself.
func TestAppDoesNotBindEngineCallbacks(t *testing.T) {
	app, _ := newTestApp(t)
	if _, ok := any(app).(move.Notifier); ok {
		t.Error("App implements move.Notifier; MoveFailed would be a frontend binding")
	}
	if _, ok := any(app).(move.PointerCapturer); ok {
		t.Error("App implements move.PointerCapturer; Capture and Release would be frontend bindings")
	}
	var _ move.Notifier = frontendHooks{}
	var _ move.PointerCapturer = frontendHooks{}
}

package main

import (
	"strings"
	"testing"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

// ---------------------------------------------------------------------------
// 1. Console edge cases
// ---------------------------------------------------------------------------

func TestE2EEmptySource(t *testing.T) {
	app, _ := newTestApp(t)
	for _, src := range []string{"", "   \n\t  ", "; just a comment"} {
		result := app.Evaluate(src)
		if len(result.Errors) != 0 {
			t.Errorf("Evaluate(%q) errors = %+v, want none", src, result.Errors)
		}
		if result.Output == nil {
			t.Errorf("Evaluate(%q) Output is nil, want an empty slice", src)
		}
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app, _ := newTestApp(t)
	result := app.Evaluate("(select \"root:1\"\n(selected)")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a missing paren")
	}
	if result.Value != "" {
		t.Errorf("Value = %q, want empty on error", result.Value)
	}
}

func TestE2EScriptErrorLeavesGraphAlone(t *testing.T) {
	app, _ := newTestApp(t)
	result := app.Evaluate(`(pointer-down "x" 10)`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an argument error")
	}
	if p, _ := app.store.ObjectPosition("root:1"); p != (geometry.Point{}) {
		t.Errorf("root:1 moved to %v", p)
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	// Sequential calls exercise the generation counter; none may panic.
	app, _ := newTestApp(t)

	sources := []string{
		`(select "root:1")`,
		`(+ 1 2)`,
		``,
		`(clear-selection)`,
		`(select "root:2" "root:3")`,
		`(selected`,
		`(pos-x "root:2")`,
	}
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked: %v", i, r)
				}
			}()
			_ = app.Evaluate(source)
		}()
	}

	result := app.Evaluate(`(emit "done" (pos-y "root:2"))`)
	if len(result.Errors) != 0 || len(result.Output) != 1 || !strings.HasPrefix(result.Output[0], "done 20") {
		t.Errorf("final Evaluate = %+v", result)
	}
}

// ---------------------------------------------------------------------------
// 2. Pointer edge cases
// ---------------------------------------------------------------------------

func TestE2EClickEmptyCanvasClears(t *testing.T) {
	app, _ := newTestApp(t)
	app.Select([]string{"root:1", "root:2"}, false)

	// Additive click on empty canvas keeps the selection.
	res := app.PointerDown(1, 1000, 1000, true, false)
	if res.Target != "" || res.Error != "" {
		t.Errorf("PointerDown = %+v, want empty", res)
	}
	if got := len(app.Selection().Nodes); got != 2 {
		t.Errorf("selected nodes = %d, want 2", got)
	}

	app.PointerDown(1, 1000, 1000, false, false)
	if got := len(app.Selection().Nodes); got != 0 {
		t.Errorf("selected nodes = %d, want 0", got)
	}
}

func TestE2EAbortRestoresPositions(t *testing.T) {
	app, _ := newTestApp(t)

	if msg := app.Abort(); msg == "" {
		t.Error("Abort with no drag should report an error")
	}

	app.PointerDown(1, 210, 30, false, false)
	app.PointerMove(1, 211, 31, false)
	app.Frame()
	app.PointerMove(1, 400, 400, false)
	app.Frame()

	if msg := app.Abort(); msg != "" {
		t.Fatalf("Abort = %q", msg)
	}
	// A late pointer-up after abort is ignored.
	app.PointerUp(1, 400, 400)
	waitIdle(t, app)

	if p, _ := app.store.ObjectPosition("root:2"); p != (geometry.Point{X: 200, Y: 20}) {
		t.Errorf("root:2 at %v, want {200 20}", p)
	}
	if p, ok := app.canvas.Scene().RenderedPosition("root:2"); !ok || p != (geometry.Point{X: 200, Y: 20}) {
		t.Errorf("root:2 rendered at %v, want {200 20}", p)
	}
	if sel := app.Selection(); len(sel.Nodes) != 1 || sel.Nodes[0] != "root:2" {
		t.Errorf("selection = %+v, want root:2 still selected", sel)
	}
}

func TestE2EReadOnlyWorkflow(t *testing.T) {
	app, rec := newTestApp(t)
	app.store.SetWritable(false)

	res := app.PointerDown(1, 10, 10, false, false)
	if !strings.Contains(res.Error, "read-only") {
		t.Errorf("Error = %q, want a read-only error", res.Error)
	}
	toasts := rec.named(EventToast)
	if len(toasts) != 1 {
		t.Fatalf("toasts = %d, want 1", len(toasts))
	}
	if td := toasts[0].data[0].(ToastData); td.Level != "info" {
		t.Errorf("toast level = %q, want info", td.Level)
	}
	// Selection still follows the click.
	if sel := app.Selection(); len(sel.Nodes) != 1 || sel.Nodes[0] != "root:1" {
		t.Errorf("selection = %+v, want root:1", sel)
	}
}

func TestE2EDeletedDuringDragIsReported(t *testing.T) {
	app, rec := newTestApp(t)
	app.Select([]string{"root:1", "root:2"}, false)

	app.PointerDown(1, 10, 10, false, false)
	app.PointerMove(1, 11, 11, false)
	app.Frame()
	app.PointerMove(1, 30, 30, false)
	app.Frame()

	app.store.Remove("root:2")

	app.PointerUp(1, 30, 30)
	waitIdle(t, app)

	ev := rec.waitFor(t, EventToast)
	td := ev.data[0].(ToastData)
	if td.Level != "warning" {
		t.Errorf("toast level = %q, want warning", td.Level)
	}
	if len(td.IDs) != 1 || td.IDs[0] != "root:2" {
		t.Errorf("toast ids = %v, want [root:2]", td.IDs)
	}
	if p, _ := app.store.ObjectPosition("root:1"); p != (geometry.Point{X: 20, Y: 20}) {
		t.Errorf("root:1 at %v, want {20 20}", p)
	}
	if _, ok := app.canvas.Scene().Visual("root:2"); ok {
		t.Error("visual for deleted root:2 should be gone")
	}
}

func TestE2EPortBarDrag(t *testing.T) {
	app, _ := newTestApp(t)

	res := app.PointerDownOnPortBar(1, "in", -90, 10, false)
	if res.Error != "" {
		t.Fatalf("PointerDownOnPortBar error: %s", res.Error)
	}
	if sel := app.Selection(); len(sel.PortBars) != 1 || sel.PortBars[0] != "in" {
		t.Errorf("selection = %+v, want port-bar in", sel)
	}

	app.PointerMove(1, -89, 10, false)
	app.Frame()
	app.PointerMove(1, -50, 10, false)
	app.Frame()
	app.PointerUp(1, -50, 10)
	waitIdle(t, app)

	bar, _ := app.store.PortBar(graph.PortBarIn)
	want := geometry.Bounds{X: -60, Y: 0, Width: 20, Height: 300}
	if bar.Bounds != want {
		t.Errorf("port-bar bounds = %+v, want %+v", bar.Bounds, want)
	}

	if res := app.PointerDownOnPortBar(1, "sideways", 0, 0, false); res.Error == "" {
		t.Error("expected an error for an unknown side")
	}
}

// ---------------------------------------------------------------------------
// 3. Scene
// ---------------------------------------------------------------------------

func TestE2ECameraCulling(t *testing.T) {
	app, _ := newTestApp(t)

	culled := app.SetCamera(0, 0, 150, 150)
	if culled != 3 {
		t.Errorf("culled = %d, want 3", culled)
	}
	items := app.Scene()
	if len(items) != 1 || items[0].Name != "root:1" {
		t.Fatalf("draw list = %+v, want only root:1", items)
	}

	app.SetCamera(150, 0, 200, 200)
	names := map[string]DrawItemData{}
	for _, it := range app.Scene() {
		names[it.Name] = it
	}
	it, ok := names["root:2"]
	if !ok {
		t.Fatalf("root:2 missing from %+v", names)
	}
	if it.X != 50 || it.Y != 20 {
		t.Errorf("root:2 drawn at (%v, %v), want (50, 20)", it.X, it.Y)
	}
}

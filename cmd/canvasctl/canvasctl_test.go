package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

const fixture = "../../examples/workflow.json"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunEval(t *testing.T) {
	out, err := execute(t, "run", "-w", fixture, "-e", `(select "root:1" "note") (emit "picked" (selected))`)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "picked") || !strings.Contains(out, "root:1") || !strings.Contains(out, "note") {
		t.Errorf("output = %q, want the emitted selection", out)
	}
	if !strings.Contains(out, "=>") {
		t.Errorf("output = %q, want a result line", out)
	}
}

func TestRunDragAndSave(t *testing.T) {
	saved := filepath.Join(t.TempDir(), "moved.json")
	script := `(pointer-down 10 10) (pointer-move 12 12) (pointer-move 55 48) (pointer-up 55 48)`

	out, err := execute(t, "run", "-w", fixture, "-e", script, "--save", saved)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	wf, err := graph.ReadFile(saved)
	if err != nil {
		t.Fatalf("reading saved workflow: %v", err)
	}
	if p, _ := wf.Position("root:1"); p != (geometry.Point{X: 40, Y: 40}) {
		t.Errorf("root:1 saved at %v, want {40 40}", p)
	}
	if p, _ := wf.Position("root:2"); p != (geometry.Point{X: 200, Y: 20}) {
		t.Errorf("root:2 saved at %v, want it unmoved", p)
	}
	if len(wf.Connections) != 2 {
		t.Errorf("saved %d connections, want 2", len(wf.Connections))
	}
}

func TestRunScriptError(t *testing.T) {
	out, err := execute(t, "run", "-w", fixture, "-e", `(pos-x "ghost")`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(out, "not found") {
		t.Errorf("output = %q, want the script error", out)
	}
}

func TestRunArguments(t *testing.T) {
	if _, err := execute(t, "run", "-w", fixture); err == nil {
		t.Error("expected an error with nothing to run")
	}
	if _, err := execute(t, "run", "-e", "(+ 1 2)"); err == nil || !strings.Contains(err.Error(), "--workflow") {
		t.Errorf("err = %v, want a missing workflow error", err)
	}
	if _, err := execute(t, "run", "-w", fixture, "-e", "(+ 1 2)", "x.lisp"); err == nil {
		t.Error("expected an error for both a file and --eval")
	}
}

func TestNearest(t *testing.T) {
	out, err := execute(t, "nearest", "-w", fixture, "root:1", "right")
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if !strings.HasPrefix(out, "root:2") {
		t.Errorf("output = %q, want root:2 first", out)
	}

	out, err = execute(t, "nearest", "-w", fixture, "root:2", "up")
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if !strings.Contains(out, "nothing") {
		t.Errorf("output = %q, want no result", out)
	}

	_, err = execute(t, "nearest", "-w", fixture, "ghost", "up")
	if !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	if _, err := execute(t, "nearest", "-w", fixture, "root:1", "sideways"); err == nil {
		t.Error("expected an error for an unknown direction")
	}
}

func TestNearestAll(t *testing.T) {
	out, err := execute(t, "nearest", "--all", "-w", fixture, "root:1", "right")
	if err != nil {
		t.Fatalf("nearest --all: %v", err)
	}
	i, j := strings.Index(out, "root:2"), strings.Index(out, "note")
	if i < 0 || j < 0 || i > j {
		t.Errorf("output = %q, want root:2 then note", out)
	}
	if strings.Contains(out, "root:3") {
		t.Errorf("output = %q, root:3 is below, not right", out)
	}
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect", "-w", fixture)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"3 nodes", "2 connections", "root:3", "annotation"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.toml")
	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := execute(t, "config", "init", path); err == nil {
		t.Error("expected an error overwriting without --force")
	}

	out, err := execute(t, "config", "-c", path)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "canvas.grid_size") || !strings.Contains(out, "20") {
		t.Errorf("output = %q, want the default grid size", out)
	}
}

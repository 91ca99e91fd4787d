package graph

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/flowcanvas/pkg/geometry"
)

func sampleWorkflow() *Workflow {
	w := New()
	w.AddNode(&Node{ID: "root:1", Name: "Trigger", Position: geometry.Point{X: 10, Y: 5}})
	w.AddNode(&Node{ID: "root:2", Name: "Transform", Position: geometry.Point{X: 25, Y: 10}})
	w.AddAnnotation(&Annotation{ID: "note:1", Text: "todo", Bounds: geometry.Bounds{X: 2, Y: 15, Width: 40, Height: 20}})
	w.AddConnection(&Connection{ID: "conn:1", Source: "root:1", Target: "root:2"})
	w.SetPortBar(&PortBar{Side: PortBarIn, Bounds: geometry.Bounds{X: 0, Y: 0, Width: 10, Height: 200}})
	return w
}

func TestNewWorkflow(t *testing.T) {
	w := New()
	if w.Nodes == nil || w.Connections == nil || w.Annotations == nil || w.PortBars == nil {
		t.Fatal("maps should be initialized")
	}
	if w.NodeCount() != 0 {
		t.Errorf("empty workflow should have 0 nodes, got %d", w.NodeCount())
	}
}

func TestKindResolution(t *testing.T) {
	w := sampleWorkflow()
	tests := []struct {
		id   ObjectID
		want Kind
		ok   bool
	}{
		{"root:1", KindNode, true},
		{"note:1", KindAnnotation, true},
		{"conn:1", KindConnection, true},
		{PortBarID(PortBarIn), KindPortBar, true},
		{PortBarID(PortBarOut), 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := w.Kind(tt.id)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Kind(%s) = %s, %v; want %s, %v", tt.id, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRemoveNodeDropsConnections(t *testing.T) {
	w := sampleWorkflow()
	if !w.Remove("root:1") {
		t.Fatal("Remove returned false")
	}
	if _, ok := w.Connections["conn:1"]; ok {
		t.Error("connection attached to removed node should be gone")
	}
	for _, id := range w.IDs() {
		if id == "root:1" || id == "conn:1" {
			t.Errorf("order still contains %s", id)
		}
	}
	if w.Remove("root:1") {
		t.Error("second Remove should return false")
	}
}

func TestTranslate(t *testing.T) {
	w := sampleWorkflow()
	d := geometry.Point{X: 20, Y: -40}

	if err := w.Translate("root:2", d); err != nil {
		t.Fatal(err)
	}
	if got := w.Nodes["root:2"].Position; got != (geometry.Point{X: 45, Y: -30}) {
		t.Errorf("node position = %+v", got)
	}
	if err := w.Translate("note:1", d); err != nil {
		t.Fatal(err)
	}
	if got := w.Annotations["note:1"].Bounds; got != (geometry.Bounds{X: 22, Y: -25, Width: 40, Height: 20}) {
		t.Errorf("annotation bounds = %+v", got)
	}
	if err := w.Translate("conn:1", d); err == nil {
		t.Error("connections should not translate")
	}
	if err := w.Translate("missing", d); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotOrderAndKinds(t *testing.T) {
	s := sampleWorkflow().Snapshot()
	if s.Len() != 3 {
		t.Fatalf("snapshot len = %d, want 3 (nodes + annotations)", s.Len())
	}
	want := []ObjectID{"root:1", "root:2", "note:1"}
	for i, id := range want {
		if s.Objects[i].ID != id {
			t.Errorf("object %d = %s, want %s", i, s.Objects[i].ID, id)
		}
	}
	o, ok := s.Find("note:1")
	if !ok || o.Kind != KindAnnotation || o.Position() != (geometry.Point{X: 2, Y: 15}) {
		t.Errorf("Find(note:1) = %+v, %v", o, ok)
	}
}

func TestCloneIsDeep(t *testing.T) {
	w := sampleWorkflow()
	c := w.Clone()
	c.Nodes["root:1"].Position.X = 999
	if w.Nodes["root:1"].Position.X == 999 {
		t.Error("clone shares node pointers with original")
	}
	if len(c.IDs()) != len(w.IDs()) {
		t.Errorf("clone has %d ids, want %d", len(c.IDs()), len(w.IDs()))
	}
}

func TestPortBarIDs(t *testing.T) {
	side, ok := PortBarSideOf(PortBarID(PortBarOut))
	if !ok || side != PortBarOut {
		t.Errorf("PortBarSideOf = %q, %v", side, ok)
	}
	if _, ok := PortBarSideOf("root:1"); ok {
		t.Error("node id should not parse as port-bar")
	}
	if _, ok := PortBarSideOf("__portbar:sideways"); ok {
		t.Error("unknown side should not parse")
	}
}

func TestStringers(t *testing.T) {
	if KindAnnotation.String() != "annotation" {
		t.Errorf("KindAnnotation.String() = %q", KindAnnotation.String())
	}
	if KindConnection.Movable() {
		t.Error("connections should not be movable")
	}
	id := ObjectID("a-very-long-object-identifier")
	if len(id.Short()) != 12 {
		t.Errorf("Short() len = %d, want 12", len(id.Short()))
	}
}

func TestMemoryStoreCommitMovePartial(t *testing.T) {
	s := NewMemoryStore(sampleWorkflow())
	changes := 0
	s.OnChange(func() { changes++ })

	s.Remove("root:2")
	changes = 0

	res, err := s.CommitMove(context.Background(), []ObjectID{"root:1", "root:2", "note:1"}, geometry.Point{X: 40, Y: 20})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Partial() || len(res.Rejected) != 1 || res.Rejected[0] != "root:2" {
		t.Errorf("rejected = %v, want [root:2]", res.Rejected)
	}
	if len(res.Moved) != 2 {
		t.Errorf("moved = %v, want 2 ids", res.Moved)
	}
	if p, _ := s.ObjectPosition("root:1"); p != (geometry.Point{X: 50, Y: 25}) {
		t.Errorf("root:1 = %+v", p)
	}
	if changes != 1 {
		t.Errorf("change notifications = %d, want 1", changes)
	}
}

func TestMemoryStoreReadOnly(t *testing.T) {
	s := NewMemoryStore(sampleWorkflow())
	s.SetWritable(false)
	if s.IsWritable() {
		t.Fatal("store should be read-only")
	}
	_, err := s.CommitMove(context.Background(), []ObjectID{"root:1"}, geometry.Point{X: 1})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}
	if p, _ := s.ObjectPosition("root:1"); p != (geometry.Point{X: 10, Y: 5}) {
		t.Errorf("read-only commit moved the node to %+v", p)
	}
}

func TestMemoryStoreCommitTransform(t *testing.T) {
	s := NewMemoryStore(sampleWorkflow())
	b := geometry.Bounds{X: 5, Y: 5, Width: 12, Height: 300}
	if err := s.CommitTransform(context.Background(), PortBarID(PortBarIn), b); err != nil {
		t.Fatal(err)
	}
	p, _ := s.PortBar(PortBarIn)
	if p.Bounds != b {
		t.Errorf("bounds = %+v, want %+v", p.Bounds, b)
	}
	err := s.CommitTransform(context.Background(), "missing", b)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s := NewMemoryStore(sampleWorkflow())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.CommitMove(ctx, []ObjectID{"root:1"}, geometry.Point{X: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	if errs := Validate(sampleWorkflow()); len(errs) != 0 {
		t.Fatalf("sample workflow should be valid, got %v", errs)
	}

	w := sampleWorkflow()
	w.AddNode(&Node{ID: "bad", Position: geometry.Point{X: math.NaN()}})
	w.AddConnection(&Connection{ID: "dangling", Source: "root:1", Target: "ghost"})
	w.AddAnnotation(&Annotation{ID: "flat", Bounds: geometry.Bounds{Width: 10}})

	var errCount, warnCount int
	for _, f := range Validate(w) {
		switch f.Severity {
		case SeverityError:
			errCount++
		case SeverityWarning:
			warnCount++
		}
	}
	if errCount != 2 {
		t.Errorf("errors = %d, want 2 (NaN node, dangling connection)", errCount)
	}
	if warnCount != 1 {
		t.Errorf("warnings = %d, want 1 (zero-area annotation)", warnCount)
	}
}

func TestDecodeEncodeFixture(t *testing.T) {
	src := `{
		"nodes": [
			{"id": "root:1", "name": "Trigger", "position": {"x": 10, "y": 5}},
			{"id": "root:2", "position": {"x": 25, "y": 10}}
		],
		"connections": [{"id": "c1", "source": "root:1", "target": "root:2"}],
		"annotations": [{"id": "n1", "bounds": {"x": 0, "y": 0, "width": 50, "height": 20}}],
		"portBars": [{"side": "out", "bounds": {"x": 500, "y": 0, "width": 10, "height": 200}}]
	}`
	w, err := Decode([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if w.NodeCount() != 2 || len(w.Connections) != 1 || len(w.Annotations) != 1 || len(w.PortBars) != 1 {
		t.Fatalf("decoded counts wrong: %d nodes %d conns %d notes %d bars",
			w.NodeCount(), len(w.Connections), len(w.Annotations), len(w.PortBars))
	}

	out, err := Encode(w)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"root:2"`) {
		t.Errorf("encoded fixture missing node: %s", out)
	}
}

func TestDecodeRejectsDanglingConnection(t *testing.T) {
	src := `{"nodes": [{"id": "a", "position": {"x": 0, "y": 0}}],
		"connections": [{"id": "c", "source": "a", "target": "b"}]}`
	if _, err := Decode([]byte(src)); err == nil {
		t.Error("expected validation error")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"nodes": [`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestReadFile(t *testing.T) {
	w, err := ReadFile("../../examples/workflow.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := w.NodeCount(); got != 3 {
		t.Errorf("NodeCount() = %d, want 3", got)
	}
	if _, ok := w.PortBars[PortBarOut]; !ok {
		t.Error("out port-bar missing")
	}

	if _, err := ReadFile("testdata/missing.json"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

package navigation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointSnapshot(objs ...graph.SnapshotObject) graph.Snapshot {
	return graph.Snapshot{Objects: objs}
}

func at(id graph.ObjectID, x, y float64) graph.SnapshotObject {
	return graph.SnapshotObject{ID: id, Kind: graph.KindNode, Bounds: geometry.Bounds{X: x, Y: y, Width: 100, Height: 100}}
}

func exampleSnapshot() graph.Snapshot {
	return pointSnapshot(at("root:1", 10, 5), at("root:2", 25, 10), at("root:3", 2, 15))
}

func ref(id graph.ObjectID, x, y float64) Reference {
	return Reference{ID: id, Position: geometry.Point{X: x, Y: y}}
}

func TestNearestByDirection(t *testing.T) {
	ix := BuildIndex(exampleSnapshot())
	origin := geometry.Point{X: 10, Y: 5}

	c, ok := ix.Nearest("root:1", origin, Right, 0)
	require.True(t, ok)
	assert.Equal(t, graph.ObjectID("root:2"), c.ID)

	c, ok = ix.Nearest("root:1", origin, Bottom, 0)
	require.True(t, ok)
	assert.Equal(t, graph.ObjectID("root:3"), c.ID)

	_, ok = ix.Nearest("root:1", origin, Top, 0)
	assert.False(t, ok)
}

func TestNoCandidateToTheRight(t *testing.T) {
	ix := BuildIndex(pointSnapshot(at("root:1", 10, 5), at("root:2", 25, 10)))
	_, ok := ix.Nearest("root:2", geometry.Point{X: 25, Y: 10}, Right, 0)
	assert.False(t, ok)

	c, ok := ix.Nearest("root:2", geometry.Point{X: 25, Y: 10}, Left, 0)
	require.True(t, ok)
	assert.Equal(t, graph.ObjectID("root:1"), c.ID)
}

func TestEmptyAndSingleObjectGraphs(t *testing.T) {
	_, ok := BuildIndex(graph.Snapshot{}).Nearest("x", geometry.Point{}, Right, 0)
	assert.False(t, ok)

	ix := BuildIndex(pointSnapshot(at("only", 0, 0)))
	for _, d := range []Direction{Top, Bottom, Left, Right} {
		_, ok := ix.Nearest("only", geometry.Point{}, d, 0)
		assert.False(t, ok, "direction %s", d)
	}
}

func TestNeighborsSortedAndKindPreserved(t *testing.T) {
	s := pointSnapshot(
		at("self", 0, 0),
		at("far", 300, 10),
		at("near", 100, 0),
		graph.SnapshotObject{ID: "note", Kind: graph.KindAnnotation, Bounds: geometry.Bounds{X: 200, Y: -20, Width: 50, Height: 50}},
	)
	got := BuildIndex(s).Neighbors("self", geometry.Point{}, Right, 5)
	require.Len(t, got, 3)
	assert.Equal(t, graph.ObjectID("near"), got[0].ID)
	assert.Equal(t, graph.ObjectID("note"), got[1].ID)
	assert.Equal(t, graph.KindAnnotation, got[1].Kind)
	assert.Equal(t, graph.ObjectID("far"), got[2].ID)
	assert.InDelta(t, 100, got[0].Distance, 1e-9)
}

func TestTieBreakKeepsSnapshotOrder(t *testing.T) {
	s := pointSnapshot(at("self", 0, 0), at("b", 50, 10), at("a", 50, -10))
	for i := 0; i < 10; i++ {
		c, ok := BuildIndex(s).Nearest("self", geometry.Point{}, Right, 0)
		require.True(t, ok)
		assert.Equal(t, graph.ObjectID("b"), c.ID)
	}
}

func TestNonFiniteEntriesSkipped(t *testing.T) {
	s := pointSnapshot(at("self", 0, 0), at("nan", math.NaN(), 0), at("ok", 40, 0))
	ix := BuildIndex(s)
	assert.Equal(t, 2, ix.Len())
	c, ok := ix.Nearest("self", geometry.Point{}, Right, 0)
	require.True(t, ok)
	assert.Equal(t, graph.ObjectID("ok"), c.ID)
}

func TestDirectionAllows(t *testing.T) {
	origin := geometry.Point{}
	tests := []struct {
		c    geometry.Point
		d    Direction
		want bool
	}{
		{geometry.Point{X: 10, Y: 3}, Right, true},
		{geometry.Point{X: 10, Y: 30}, Right, false},
		{geometry.Point{X: 10, Y: 30}, Bottom, true},
		{geometry.Point{X: -10, Y: -3}, Left, true},
		{geometry.Point{X: 3, Y: -10}, Top, true},
		{geometry.Point{X: 10, Y: 10}, Right, true},
		{geometry.Point{X: 10, Y: 10}, Bottom, false},
		{geometry.Point{}, Right, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.Allows(origin, tt.c), "%s to %+v", tt.d, tt.c)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("Up")
	require.NoError(t, err)
	assert.Equal(t, Top, d)
	_, err = ParseDirection("diagonal")
	assert.Error(t, err)
}

func TestAnswerUnknownType(t *testing.T) {
	resp := Answer(Request{ID: "r1", Type: "teleport"}, 5)
	assert.Equal(t, TypeUnknown, resp.Type)
	assert.Equal(t, "r1", resp.RequestID)
	assert.False(t, resp.Found())
}

func TestAnswerNeighborsList(t *testing.T) {
	resp := Answer(Request{
		ID:   "r2",
		Type: TypeNeighbors,
		Payload: Payload{
			Snapshot:  pointSnapshot(append(exampleSnapshot().Objects, at("root:4", 60, 12))...),
			Reference: ref("root:1", 10, 5),
			Direction: Right,
		},
	}, 5)
	require.Empty(t, resp.Err)
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, graph.ObjectID("root:2"), resp.Candidates[0].ID)
	assert.Equal(t, graph.ObjectID("root:4"), resp.Candidates[1].ID)
	assert.Equal(t, resp.Candidates[0], *resp.Best)
}

func TestDecodeRequest(t *testing.T) {
	raw := `{"id":"q","type":"nearest","payload":{"graphSnapshot":{"objects":[]},
		"referencePoint":{"id":"root:1","position":{"x":1,"y":2}},"direction":"left"}}`
	req, err := DecodeRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, Left, req.Payload.Direction)
	assert.Equal(t, graph.ObjectID("root:1"), req.Payload.Reference.ID)

	_, err = DecodeRequest([]byte(`{"id":`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeRequest([]byte(`{"id":"q","payload":{}}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeRequest([]byte(`{"id":"q","type":"nearest","payload":{"direction":"north"}}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	req, err = DecodeRequest([]byte(`{"id":"q","type":"reindex"}`))
	require.NoError(t, err)
	assert.Equal(t, "reindex", req.Type)
}

func TestServiceRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewService(Options{})
	svc.Start(ctx)

	assert.False(t, svc.PostRaw([]byte(`not json`)))
	require.True(t, svc.PostRaw([]byte(`{"id":"u","type":"bogus"}`)))

	select {
	case resp := <-svc.Responses():
		assert.Equal(t, TypeUnknown, resp.Type)
		assert.Equal(t, "u", resp.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("no response from worker")
	}

	cancel()
	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, svc.Post(Request{ID: "late", Type: TypeNearest}))
}

func TestNavigatorAwait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nav := NewNavigator(NewService(Options{}), nil)
	nav.Start(ctx)

	c, ok, err := nav.Await(ctx, exampleSnapshot(), ref("root:1", 10, 5), Right)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, graph.ObjectID("root:2"), c.ID)

	_, ok, err = nav.Await(ctx, exampleSnapshot(), ref("root:1", 10, 5), Top)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNavigatorDropsStaleResponses(t *testing.T) {
	var delivered []string
	nav := NewNavigator(NewService(Options{}), func(r Response) {
		delivered = append(delivered, r.RequestID)
	})

	first, ok := nav.Query(exampleSnapshot(), ref("root:1", 10, 5), Right)
	require.True(t, ok)
	second, ok := nav.Query(exampleSnapshot(), ref("root:2", 25, 10), Left)
	require.True(t, ok)

	// Out of order: the newer answer lands first, then the stale one.
	nav.deliver(Response{RequestID: second, ReferenceID: "root:2"})
	nav.deliver(Response{RequestID: first, ReferenceID: "root:1"})

	assert.Equal(t, []string{second}, delivered)
	assert.False(t, nav.IsCurrent(first))
	assert.True(t, nav.IsCurrent(second))
}

// The responses channel closes before Done does. A query posted in that window
// must not register a waiter nobody will ever release.
func TestNavigatorAwaitAfterDispatchDrained(t *testing.T) {
	svc := NewService(Options{})
	nav := NewNavigator(svc, nil)

	close(svc.responses)
	nav.dispatch()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, ok, err := nav.Await(ctx, exampleSnapshot(), ref("root:1", 10, 5), Right)
	require.ErrorIs(t, err, ErrStopped)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)

	_, posted := nav.Query(exampleSnapshot(), ref("root:1", 10, 5), Right)
	assert.False(t, posted)
	assert.Empty(t, nav.waiters)
}

func TestNavigatorAwaitAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService(Options{})
	nav := NewNavigator(svc, nil)
	nav.Start(ctx)
	cancel()

	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_, _, err := nav.Await(waitCtx, exampleSnapshot(), ref("root:1", 10, 5), Right)
	require.ErrorIs(t, err, ErrStopped)
}

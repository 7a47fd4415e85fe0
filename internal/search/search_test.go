package search

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
)

func mustNode(t *testing.T, seed byte, port uint16) message.Node {
	t.Helper()
	raw := make([]byte, ed25519.PublicKeySize)
	for i := range raw {
		raw[i] = seed
	}
	return message.Node{
		Key:     message.NewPublicKey(raw),
		Address: message.Address{Host: "127.0.0.1", Port: port},
	}
}

// fakeGraph is a tiny fixed adjacency list driving QueryFunc, grounded on
// the same hand-rolled fake-double style used for NeighbourStore's tests.
type fakeGraph struct {
	mu    sync.Mutex
	edges map[message.NodeID][]message.Node
	calls int
}

func (g *fakeGraph) query(_ context.Context, n message.Node) ([]message.Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	nbrs, ok := g.edges[n.ID()]
	if !ok {
		return nil, errors.New("no such node")
	}
	return nbrs, nil
}

func TestEngine_ExhaustsFiniteGraph(t *testing.T) {
	a := mustNode(t, 1, 1001)
	b := mustNode(t, 2, 1002)
	c := mustNode(t, 3, 1003)

	graph := &fakeGraph{edges: map[message.NodeID][]message.Node{
		a.ID(): {b},
		b.ID(): {c},
		c.ID(): {},
	}}

	e := New(Config{MaxConcurrency: 4}, graph.query)

	var mu sync.Mutex
	var foundOrder []message.Node
	var exploredOrder []message.Node

	outcome := e.Run(context.Background(), []message.Node{a}, keyspace.Of(c.Key),
		func(n message.Node) Decision {
			mu.Lock()
			defer mu.Unlock()
			foundOrder = append(foundOrder, n)
			return Continue
		},
		func(n message.Node, _ []message.Node) Decision {
			mu.Lock()
			defer mu.Unlock()
			exploredOrder = append(exploredOrder, n)
			return Continue
		},
	)

	if outcome != Exhausted {
		t.Fatalf("expected Exhausted, got %v", outcome)
	}
	if len(foundOrder) != 3 {
		t.Fatalf("expected 3 distinct nodes found, got %d", len(foundOrder))
	}
	if len(exploredOrder) != 3 {
		t.Fatalf("expected 3 nodes explored, got %d", len(exploredOrder))
	}
}

func TestEngine_StopsOnCallbackSignal(t *testing.T) {
	a := mustNode(t, 1, 1001)
	b := mustNode(t, 2, 1002)
	c := mustNode(t, 3, 1003)

	graph := &fakeGraph{edges: map[message.NodeID][]message.Node{
		a.ID(): {b, c},
		b.ID(): {},
		c.ID(): {},
	}}

	e := New(Config{MaxConcurrency: 4}, graph.query)

	outcome := e.Run(context.Background(), []message.Node{a}, keyspace.Of(c.Key),
		func(message.Node) Decision { return Continue },
		func(message.Node, []message.Node) Decision { return Stop },
	)

	if outcome != Stopped {
		t.Fatalf("expected Stopped, got %v", outcome)
	}
}

func TestEngine_QueryFailureStillExplores(t *testing.T) {
	a := mustNode(t, 1, 1001)

	graph := &fakeGraph{edges: map[message.NodeID][]message.Node{}}
	e := New(Config{MaxConcurrency: 4}, graph.query)

	var gotNeighbours []message.Node
	sawFailure := false

	outcome := e.Run(context.Background(), []message.Node{a}, keyspace.Of(a.Key),
		func(message.Node) Decision { return Continue },
		func(n message.Node, neighbours []message.Node) Decision {
			sawFailure = n.Equal(a)
			gotNeighbours = neighbours
			return Continue
		},
	)

	if outcome != Exhausted {
		t.Fatalf("expected Exhausted, got %v", outcome)
	}
	if !sawFailure {
		t.Fatalf("expected explored callback for the failed query")
	}
	if len(gotNeighbours) != 0 {
		t.Fatalf("expected no neighbours on failure, got %v", gotNeighbours)
	}
}

func TestTopKTracker_ConvergesAndStops(t *testing.T) {
	a := mustNode(t, 1, 1001)
	b := mustNode(t, 2, 1002)
	c := mustNode(t, 3, 1003)

	graph := &fakeGraph{edges: map[message.NodeID][]message.Node{
		a.ID(): {b},
		b.ID(): {c},
		c.ID(): {},
	}}

	e := New(Config{MaxConcurrency: 4}, graph.query)
	target := keyspace.Of(c.Key)
	tracker := NewTopKTracker(target, 1)

	outcome := e.Run(context.Background(), []message.Node{a}, target, tracker.FoundCB(), tracker.ExploredCB())

	if outcome != Stopped {
		t.Fatalf("expected Stopped once top-1 converges, got %v", outcome)
	}
	top := tracker.TopK()
	if len(top) != 1 {
		t.Fatalf("expected exactly 1 tracked node, got %d", len(top))
	}
	if graph.calls > 3 {
		t.Fatalf("expected search to stop promptly, made %d queries", graph.calls)
	}
}

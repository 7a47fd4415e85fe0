package payload

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
	"github.com/kipa-net/kipa/internal/neighbours"
)

func keyspaceOf(n message.Node) keyspace.Coord {
	return keyspace.Of(n.Key)
}

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

// fakeNetwork routes a Call directly to the target's Engine.Handle,
// standing in for router+transport+envelope in these tests: it exercises
// the payload logic (search convergence, verify-gated admission) without
// needing a real socket or crypto round trip.
type fakeNetwork struct {
	engines map[message.NodeID]*GraphEngine
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{engines: make(map[message.NodeID]*GraphEngine)}
}

func (n *fakeNetwork) callerFor(self message.Node) Caller {
	return fakeCaller{network: n, self: self}
}

type fakeCaller struct {
	network *fakeNetwork
	self    message.Node
}

func (c fakeCaller) Call(_ context.Context, peer message.Node, req message.RequestPayload, _ time.Duration) (message.ResponsePayload, error) {
	eng, ok := c.network.engines[peer.ID()]
	if !ok {
		return message.ResponsePayload{}, errors.New("fakeCaller: unreachable peer")
	}
	return eng.Handle(c.self, req), nil
}

func newTestEngine(t *testing.T, net *fakeNetwork, self message.Node) *GraphEngine {
	t.Helper()
	store := neighbours.New(neighbours.Config{MaxNeighbours: 8, Alpha: 1, Beta: 1}, keyspaceOf(self))
	eng := New(self, store, net.callerFor(self), Config{
		ReplySize: 4, SearchK: 4, MaxConcurrency: 2,
		QueryTimeout: time.Second, VerifyTimeout: time.Second,
	}, nil)
	net.engines[self.ID()] = eng
	return eng
}

func TestEngine_QueryNeighbours_ReturnsClosest(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	eng := newTestEngine(t, net, a)

	b := mustNode(t, 2, 1002)
	eng.store.Consider(b)

	resp := eng.Handle(a, message.QueryNeighboursRequest(keyspaceOf(b)))
	if resp.Kind != message.KindNeighbours {
		t.Fatalf("expected Neighbours response, got %v", resp.Kind)
	}
	if len(resp.Neighbours) != 1 || !resp.Neighbours[0].Key.Equal(b.Key) {
		t.Fatalf("expected [b], got %v", resp.Neighbours)
	}
}

func TestEngine_Verify_AlwaysSucceeds(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	eng := newTestEngine(t, net, a)

	resp := eng.Handle(a, message.VerifyRequest())
	if resp.Kind != message.KindVerified {
		t.Fatalf("expected Verified, got %v", resp.Kind)
	}
}

func TestEngine_Search_TwoHopChain(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	b := mustNode(t, 2, 1002)
	c := mustNode(t, 3, 1003)

	engA := newTestEngine(t, net, a)
	engB := newTestEngine(t, net, b)
	_ = newTestEngine(t, net, c)

	// a knows only b; b knows both a and c.
	engA.store.Consider(b)
	engB.store.Consider(a)
	engB.store.Consider(c)

	found, err := engA.Search(context.Background(), c.Key)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if found == nil {
		t.Fatalf("expected to find c, got nil")
	}
	if !found.Key.Equal(c.Key) {
		t.Fatalf("expected c, got %v", found.Key)
	}
}

func TestEngine_Search_SelfKeyReturnsLocalNode(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	eng := newTestEngine(t, net, a)

	found, err := eng.Search(context.Background(), a.Key)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if found == nil || !found.Key.Equal(a.Key) {
		t.Fatalf("expected Search for the local node's own key to return the local node, got %v", found)
	}
}

func TestEngine_Search_NoNeighboursReturnsNilForOtherKey(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	eng := newTestEngine(t, net, a)

	target := mustNode(t, 9, 9001)
	found, err := eng.Search(context.Background(), target.Key)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no result with an empty neighbour table, got %v", found)
	}
}

func TestEngine_Connect_AdmitsFoundNodesEvenIfNeverExplored(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	x := mustNode(t, 9, 9001)

	engA := newTestEngine(t, net, a)
	engX := newTestEngine(t, net, x)

	// a advertises four neighbours in a single QueryNeighbours reply.
	// With SearchK=1 the search converges as soon as the single closest
	// of {a, siblings...} has been explored. Siblings still in the
	// frontier at that point are found but never dequeued for
	// exploration.
	siblings := make([]message.Node, 4)
	for i := range siblings {
		siblings[i] = mustNode(t, byte(20+i), uint16(2000+i))
		newTestEngine(t, net, siblings[i])
		engA.store.Consider(siblings[i])
	}

	engX.cfg.SearchK = 1

	if err := engX.Connect(context.Background(), a); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	snap := engX.store.Snapshot()
	for _, want := range append([]message.Node{a}, siblings...) {
		admitted := false
		for _, n := range snap {
			if n.Key.Equal(want.Key) {
				admitted = true
			}
		}
		if !admitted {
			t.Fatalf("expected %v to be admitted even if never explored, got %v", want, snap)
		}
	}
}

func TestEngine_Connect_AdmitsDiscoveredNeighbours(t *testing.T) {
	net := newFakeNetwork()
	a := mustNode(t, 1, 1001)
	b := mustNode(t, 2, 1002)
	c := mustNode(t, 3, 1003)
	x := mustNode(t, 9, 9001)

	engA := newTestEngine(t, net, a)
	engB := newTestEngine(t, net, b)
	engC := newTestEngine(t, net, c)
	engX := newTestEngine(t, net, x)

	engA.store.Consider(b)
	engB.store.Consider(a)
	engB.store.Consider(c)
	engC.store.Consider(b)

	if err := engX.Connect(context.Background(), a); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	snap := engX.store.Snapshot()
	if len(snap) == 0 {
		t.Fatalf("expected connect to admit at least the initial node")
	}
	foundA := false
	for _, n := range snap {
		if n.Key.Equal(a.Key) {
			foundA = true
		}
	}
	if !foundA {
		t.Fatalf("expected initial node %v to be admitted, got %v", a, snap)
	}
}

package neighbours

import (
	"crypto/rand"
	"testing"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
)

func randomNode(t *testing.T) message.Node {
	t.Helper()
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return message.Node{
		Key:     message.NewPublicKey(b),
		Address: message.Address{Host: "127.0.0.1", Port: 1234},
	}
}

func TestConsider_AdmitsUntilFull(t *testing.T) {
	s := New(Config{MaxNeighbours: 4, Alpha: 1, Beta: 1}, keyspace.Coord{0, 0})

	for i := 0; i < 4; i++ {
		n := randomNode(t)
		if got := s.Consider(n); got != Admitted {
			t.Fatalf("expected Admitted, got %v", got)
		}
	}
	if s.Len() != 4 {
		t.Fatalf("expected 4 neighbours, got %d", s.Len())
	}
}

func TestConsider_NoDuplicateKeys(t *testing.T) {
	s := New(Config{MaxNeighbours: 4, Alpha: 1, Beta: 1}, keyspace.Coord{0, 0})
	n := randomNode(t)

	if got := s.Consider(n); got != Admitted {
		t.Fatalf("first Consider: expected Admitted, got %v", got)
	}
	if got := s.Consider(n); got != AlreadyPresent {
		t.Fatalf("second Consider: expected AlreadyPresent, got %v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("expected no duplicate insertion, len=%d", s.Len())
	}
}

func TestConsider_AlreadyPresentUpdatesAddress(t *testing.T) {
	s := New(Config{MaxNeighbours: 4, Alpha: 1, Beta: 1}, keyspace.Coord{0, 0})
	n := randomNode(t)
	s.Consider(n)

	n.Address = message.Address{Host: "10.0.0.1", Port: 9999}
	s.Consider(n)

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Address != n.Address {
		t.Fatalf("expected address update, got %+v", snap)
	}
}

func TestSnapshot_NeverExceedsMax(t *testing.T) {
	s := New(Config{MaxNeighbours: 3, Alpha: 1, Beta: 1}, keyspace.Coord{0, 0})
	for i := 0; i < 50; i++ {
		s.Consider(randomNode(t))
		if s.Len() > 3 {
			t.Fatalf("store exceeded MaxNeighbours: %d", s.Len())
		}
	}
}

func TestClosestTo_Empty(t *testing.T) {
	s := New(Config{MaxNeighbours: 4, Alpha: 1, Beta: 1}, keyspace.Coord{0, 0})
	if got := s.ClosestTo(keyspace.Coord{0.5, 0.5}, 4); len(got) != 0 {
		t.Fatalf("expected empty result from empty store, got %v", got)
	}
}

func TestRemove(t *testing.T) {
	s := New(Config{MaxNeighbours: 4, Alpha: 1, Beta: 1}, keyspace.Coord{0, 0})
	n := randomNode(t)
	s.Consider(n)
	s.Remove(n.ID())
	if s.Len() != 0 {
		t.Fatalf("expected removal, len=%d", s.Len())
	}
}

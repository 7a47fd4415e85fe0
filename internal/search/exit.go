package search

import (
	"sort"
	"sync"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
)

// TopKTracker implements the standard "closest k converged" exit
// condition: stop as soon as the k distinct closest-to-target nodes
// discovered so far have all been explored (successfully or not).
type TopKTracker struct {
	target keyspace.Coord
	k      int

	mu       sync.Mutex
	seen     []message.Node
	explored map[message.NodeID]bool
}

// NewTopKTracker builds a tracker for a search converging on target with
// the given k. k <= 0 disables early stop (the search only stops on
// exhaustion).
func NewTopKTracker(target keyspace.Coord, k int) *TopKTracker {
	return &TopKTracker{target: target, k: k, explored: make(map[message.NodeID]bool)}
}

func (t *TopKTracker) dist(n message.Node) float64 {
	return keyspace.Distance(t.target, keyspace.Of(n.Key))
}

// FoundCB records a newly discovered node, keeping the seen list sorted
// ascending by distance to target.
func (t *TopKTracker) FoundCB() FoundFunc {
	return func(node message.Node) Decision {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.seen = append(t.seen, node)
		sort.SliceStable(t.seen, func(i, j int) bool { return t.dist(t.seen[i]) < t.dist(t.seen[j]) })
		return Continue
	}
}

// ExploredCB marks a node explored and signals Stop once the top-k
// converge.
func (t *TopKTracker) ExploredCB() ExploredFunc {
	return func(node message.Node, _ []message.Node) Decision {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.explored[node.ID()] = true
		if t.converged() {
			return Stop
		}
		return Continue
	}
}

func (t *TopKTracker) converged() bool {
	if t.k <= 0 || len(t.seen) == 0 {
		return false
	}
	n := t.k
	if n > len(t.seen) {
		n = len(t.seen)
	}
	for i := 0; i < n; i++ {
		if !t.explored[t.seen[i].ID()] {
			return false
		}
	}
	return true
}

// TopK returns a snapshot of the k closest distinct nodes discovered so
// far, ascending by distance to target.
func (t *TopKTracker) TopK() []message.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.k
	if n <= 0 || n > len(t.seen) {
		n = len(t.seen)
	}
	out := make([]message.Node, n)
	copy(out, t.seen[:n])
	return out
}

// Package neighbours implements a bounded, distance-sorted mapping from
// NodeId to Node, admitted and evicted by a distance/angular-spread cost
// function.
package neighbours

import (
	"sort"
	"sync"
	"time"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
)

// AdmitResult is the outcome of Consider.
type AdmitResult int

const (
	Rejected AdmitResult = iota
	Admitted
	AlreadyPresent
)

func (r AdmitResult) String() string {
	switch r {
	case Admitted:
		return "Admitted"
	case AlreadyPresent:
		return "AlreadyPresent"
	default:
		return "Rejected"
	}
}

// ProbeOutcome records the result of the last liveness probe against a
// neighbour (used by NeighbourGC, package gc).
type ProbeOutcome int

const (
	ProbeUnknown ProbeOutcome = iota
	ProbeSuccess
	ProbeFailure
)

// Record is a NeighbourRecord: a Node plus local bookkeeping. Owned by
// the local Store; created on verified contact, mutated by probes,
// destroyed by GC or eviction.
type Record struct {
	Node             message.Node
	LastSeenAt       time.Time
	LastProbeOutcome ProbeOutcome
	FailureCount     int
}

// Config tunes the admission cost function. Alpha and Beta are the α, β
// weights of cost(store) = α·mean_distance − β·angular_spread; their exact
// values are left to the operator to tune, defaulting to 1, 1.
type Config struct {
	MaxNeighbours int
	Alpha         float64
	Beta          float64
}

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{MaxNeighbours: 32, Alpha: 1.0, Beta: 1.0}
}

// Store is the local neighbour table. All exported methods are safe for
// concurrent use; the internal slice is guarded by a single mutex and
// snapshots are always copied out rather than exposed live.
type Store struct {
	cfg        Config
	localCoord keyspace.Coord

	mu      sync.Mutex
	records []Record // sorted ascending by distance to localCoord
}

// New creates an empty NeighbourStore for a node whose own key-space
// coordinate is localCoord.
func New(cfg Config, localCoord keyspace.Coord) *Store {
	if cfg.MaxNeighbours <= 0 {
		cfg.MaxNeighbours = DefaultConfig().MaxNeighbours
	}
	if cfg.Alpha == 0 && cfg.Beta == 0 {
		cfg.Alpha, cfg.Beta = 1.0, 1.0
	}
	return &Store{cfg: cfg, localCoord: localCoord}
}

func (s *Store) dist(n message.Node) float64 {
	return keyspace.Distance(s.localCoord, keyspace.Of(n.Key))
}

// Consider is the admission entry point. The caller (PayloadEngine) is
// responsible for having verified the candidate first; Consider itself
// performs no network I/O.
func (s *Store) Consider(candidate message.Node) AdmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.Node.Key.Equal(candidate.Key) {
			s.records[i].Node.Address = candidate.Address
			s.records[i].LastSeenAt = time.Now()
			return AlreadyPresent
		}
	}

	if len(s.records) < s.cfg.MaxNeighbours {
		s.insertSorted(Record{Node: candidate, LastSeenAt: time.Now(), LastProbeOutcome: ProbeSuccess})
		return Admitted
	}

	return s.tryDisplace(candidate)
}

func (s *Store) insertSorted(r Record) {
	s.records = append(s.records, r)
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.dist(s.records[i].Node) < s.dist(s.records[j].Node)
	})
}

// tryDisplace finds the existing neighbour whose removal (and replacement
// by candidate) minimises cost(store), and displaces it if doing so
// strictly improves on cost(store) as it stands.
func (s *Store) tryDisplace(candidate message.Node) AdmitResult {
	current := s.cost(s.nodesLocked())

	bestIdx := -1
	bestCost := current
	const margin = 1e-9

	for i := range s.records {
		trial := s.nodesWithout(i)
		trial = append(trial, candidate)
		c := s.cost(trial)
		if c < bestCost-margin {
			bestCost = c
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return Rejected
	}

	s.records[bestIdx] = Record{Node: candidate, LastSeenAt: time.Now(), LastProbeOutcome: ProbeSuccess}
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.dist(s.records[i].Node) < s.dist(s.records[j].Node)
	})
	return Admitted
}

func (s *Store) nodesLocked() []message.Node {
	out := make([]message.Node, len(s.records))
	for i, r := range s.records {
		out[i] = r.Node
	}
	return out
}

func (s *Store) nodesWithout(idx int) []message.Node {
	out := make([]message.Node, 0, len(s.records))
	for i, r := range s.records {
		if i == idx {
			continue
		}
		out = append(out, r.Node)
	}
	return out
}

// cost implements cost(store) = α·mean_distance(store) − β·angular_spread(store),
// where angular_spread is the mean pairwise angle between neighbour
// vectors from the local node.
func (s *Store) cost(nodes []message.Node) float64 {
	if len(nodes) == 0 {
		return 0
	}
	var sumDist float64
	coords := make([]keyspace.Coord, len(nodes))
	for i, n := range nodes {
		coords[i] = keyspace.Of(n.Key)
		sumDist += keyspace.Distance(s.localCoord, coords[i])
	}
	meanDist := sumDist / float64(len(nodes))

	var spread float64
	if len(nodes) >= 2 {
		// Vectors from the local node, each axis reduced to the shorter way
		// round the torus.
		vecs := make([]keyspace.Coord, len(coords))
		for i, c := range coords {
			vecs[i] = make(keyspace.Coord, len(c))
			for d := 0; d < len(c) && d < len(s.localCoord); d++ {
				v := c[d] - s.localCoord[d]
				if v > keyspace.Width/2 {
					v -= keyspace.Width
				} else if v < -keyspace.Width/2 {
					v += keyspace.Width
				}
				vecs[i][d] = v
			}
		}
		var sumAngle float64
		pairs := 0
		for i := 0; i < len(vecs); i++ {
			for j := i + 1; j < len(vecs); j++ {
				sumAngle += keyspace.Angle(vecs[i], vecs[j])
				pairs++
			}
		}
		if pairs > 0 {
			spread = sumAngle / float64(pairs)
		}
	}

	return s.cfg.Alpha*meanDist - s.cfg.Beta*spread
}

// Remove is explicit eviction, used by NeighbourGC.
func (s *Store) Remove(id message.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.Node.ID() == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

// Snapshot returns nodes in distance order.
func (s *Store) Snapshot() []message.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodesLocked()
}

// SnapshotRecords returns a copy of the full records, for NeighbourGC.
func (s *Store) SnapshotRecords() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ClosestTo ranks the current neighbours by distance to an arbitrary point
// and returns up to limit of them.
func (s *Store) ClosestTo(point keyspace.Coord, limit int) []message.Node {
	s.mu.Lock()
	nodes := s.nodesLocked()
	s.mu.Unlock()

	sort.SliceStable(nodes, func(i, j int) bool {
		return keyspace.Distance(point, keyspace.Of(nodes[i].Key)) < keyspace.Distance(point, keyspace.Of(nodes[j].Key))
	})
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes
}

// Len returns the current neighbour count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RecordProbeOutcome updates a neighbour's liveness bookkeeping. Returns
// the updated failure count and whether the neighbour is still present.
func (s *Store) RecordProbeOutcome(id message.NodeID, ok bool) (failures int, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.Node.ID() != id {
			continue
		}
		if ok {
			s.records[i].LastProbeOutcome = ProbeSuccess
			s.records[i].LastSeenAt = time.Now()
			s.records[i].FailureCount = 0
		} else {
			s.records[i].LastProbeOutcome = ProbeFailure
			s.records[i].FailureCount++
		}
		return s.records[i].FailureCount, true
	}
	return 0, false
}

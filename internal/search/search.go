// Package search implements a generic parallel greedy best-first search
// over the key-space distance metric: a priority-queue frontier drained by
// a bounded worker pool, with found/explored callbacks invoked in a
// single scheduler goroutine so callers see a total order.
package search

import (
	"container/heap"
	"context"
	"sort"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
)

// Decision is the value a callback returns to say whether the search
// should keep going or stop as soon as possible.
type Decision int

const (
	Continue Decision = iota
	Stop
)

// FoundFunc is invoked exactly once per distinct node first discovered.
type FoundFunc func(node message.Node) Decision

// ExploredFunc is invoked exactly once per node successfully or
// unsuccessfully queried. neighbours is empty on a failed query.
type ExploredFunc func(node message.Node, neighbours []message.Node) Decision

// QueryFunc issues one QueryNeighbours-shaped call against node.
type QueryFunc func(ctx context.Context, node message.Node) ([]message.Node, error)

// Outcome reports why Run returned.
type Outcome int

const (
	Exhausted Outcome = iota
	Stopped
)

func (o Outcome) String() string {
	if o == Stopped {
		return "Stopped"
	}
	return "Exhausted"
}

// Config bounds the search's parallelism.
type Config struct {
	MaxConcurrency int
}

// Engine runs searches: it holds no state across calls to Run, so one
// Engine value can be reused for repeated searches against different
// targets.
type Engine struct {
	cfg   Config
	query QueryFunc
}

// New builds an Engine bound to a query callable and a concurrency bound.
func New(cfg Config, query QueryFunc) *Engine {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Engine{cfg: cfg, query: query}
}

type candidate struct {
	node message.Node
	dist float64
}

type frontier []candidate

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].dist < f[j].dist }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(candidate)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

type event struct {
	node       message.Node
	neighbours []message.Node
	err        error
}

// Run drives the search to completion: it pushes initial into the
// frontier, invokes foundCB for each, then alternates between draining
// completed queries and spawning new ones up to MaxConcurrency until the
// frontier is exhausted or a callback returns Stop.
func (e *Engine) Run(ctx context.Context, initial []message.Node, target keyspace.Coord, foundCB FoundFunc, exploredCB ExploredFunc) Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dist := func(n message.Node) float64 {
		return keyspace.Distance(target, keyspace.Of(n.Key))
	}

	seen := make(map[message.NodeID]bool)
	fr := &frontier{}
	heap.Init(fr)

	seeded := append([]message.Node(nil), initial...)
	sort.SliceStable(seeded, func(i, j int) bool { return dist(seeded[i]) < dist(seeded[j]) })
	for _, n := range seeded {
		if seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true
		heap.Push(fr, candidate{node: n, dist: dist(n)})
		if foundCB(n) == Stop {
			cancel()
			return Stopped
		}
	}

	events := make(chan event, e.cfg.MaxConcurrency)
	inFlight := 0

	spawn := func(n message.Node) {
		inFlight++
		go func() {
			neighbours, err := e.query(ctx, n)
			events <- event{node: n, neighbours: neighbours, err: err}
		}()
	}

	// handle processes one event and reports whether the search must stop.
	handle := func(ev event) bool {
		inFlight--
		if ev.err != nil {
			return exploredCB(ev.node, nil) == Stop
		}

		batch := append([]message.Node(nil), ev.neighbours...)
		sort.SliceStable(batch, func(i, j int) bool { return dist(batch[i]) < dist(batch[j]) })

		for _, n := range batch {
			if seen[n.ID()] {
				continue
			}
			seen[n.ID()] = true
			heap.Push(fr, candidate{node: n, dist: dist(n)})
			if foundCB(n) == Stop {
				return true
			}
		}
		return exploredCB(ev.node, ev.neighbours) == Stop
	}

	// stop cancels every in-flight query before draining the ones already
	// spawned, so the drain only waits out however long each query takes
	// to notice ctx.Done and return, not its full natural timeout.
	stop := func() Outcome {
		cancel()
		for inFlight > 0 {
			<-events
			inFlight--
		}
		return Stopped
	}

	for {
		draining := true
		for draining {
			select {
			case ev := <-events:
				if handle(ev) {
					return stop()
				}
			default:
				draining = false
			}
		}

		if inFlight == 0 && fr.Len() == 0 {
			return Exhausted
		}

		for inFlight < e.cfg.MaxConcurrency && fr.Len() > 0 {
			c := heap.Pop(fr).(candidate)
			spawn(c.node)
		}

		if inFlight == 0 {
			continue
		}
		ev := <-events
		if handle(ev) {
			return stop()
		}
	}
}

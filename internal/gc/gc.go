// Package gc implements the periodic neighbour liveness sweep: probe every
// neighbour in parallel, on success refresh its last-seen bookkeeping, on
// repeated failure evict it from the neighbour table.
package gc

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kipa-net/kipa/internal/message"
	"github.com/kipa-net/kipa/internal/neighbours"
)

// Verifier issues a Verify call against a neighbour and reports whether it
// answered correctly.
type Verifier interface {
	VerifyNode(ctx context.Context, node message.Node) bool
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(ctx context.Context, node message.Node) bool

func (f VerifierFunc) VerifyNode(ctx context.Context, node message.Node) bool { return f(ctx, node) }

// Config tunes the sweep interval and eviction threshold.
type Config struct {
	Interval    time.Duration
	MaxFailures int
}

// DefaultConfig mirrors the reference values: probe every 60s, evict once
// consecutive failures exceed 3 (on the fourth failed probe).
func DefaultConfig() Config {
	return Config{Interval: 60 * time.Second, MaxFailures: 3}
}

// GC runs the periodic liveness sweep against a neighbour table.
type GC struct {
	cfg      Config
	store    *neighbours.Store
	verifier Verifier
	log      *logrus.Entry
}

// New builds a GC bound to a neighbour table and a Verifier.
func New(cfg Config, store *neighbours.Store, verifier Verifier, log *logrus.Entry) *GC {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &GC{cfg: cfg, store: store, verifier: verifier, log: log.WithField("component", "gc")}
}

// Run drives the sweep on a fixed ticker until ctx is cancelled.
func (g *GC) Run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep(ctx)
		}
	}
}

// sweep probes a snapshot of the current neighbours in parallel, holding
// no lock across the network calls, then applies the resulting
// probe-outcome updates and evictions against the live store.
func (g *GC) sweep(ctx context.Context) {
	records := g.store.SnapshotRecords()
	if len(records) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, r := range records {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := g.verifier.VerifyNode(ctx, r.Node)
			failures, present := g.store.RecordProbeOutcome(r.Node.ID(), ok)
			if !present {
				return
			}
			if !ok && failures > g.cfg.MaxFailures {
				g.store.Remove(r.Node.ID())
				g.log.WithField("peer", r.Node.ID().String()[:8]).Info("evicted unresponsive neighbour")
			}
		}()
	}
	wg.Wait()
}

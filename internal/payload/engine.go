// Package payload implements the application-level request handlers that
// sit on top of the neighbour table, key-space geometry, and search
// engine: QueryNeighbours, Search, Connect, Verify, and ListNeighbours.
package payload

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/message"
	"github.com/kipa-net/kipa/internal/neighbours"
	"github.com/kipa-net/kipa/internal/search"
)

// Caller is the subset of Router used to drive outbound calls, kept as an
// interface so tests can substitute a fake without a real transport.
type Caller interface {
	Call(ctx context.Context, peer message.Node, req message.RequestPayload, timeout time.Duration) (message.ResponsePayload, error)
}

// Engine answers one inbound (sender, payload) pair with a response. It is
// the same shape router.Handler expects; GraphEngine, BlackHoleEngine and
// RandomResponseEngine all implement it. World does not take an Engine: it
// always builds and serves a GraphEngine.
type Engine interface {
	Handle(sender message.Node, req message.RequestPayload) message.ResponsePayload
}

// Config tunes the reference values used across the request handlers.
type Config struct {
	ReplySize      int
	SearchK        int
	MaxConcurrency int
	QueryTimeout   time.Duration
	VerifyTimeout  time.Duration
}

// DefaultConfig mirrors the values used in the end-to-end scenarios: a
// ring of a handful of nodes converges quickly with small numbers.
func DefaultConfig() Config {
	return Config{
		ReplySize:      4,
		SearchK:        4,
		MaxConcurrency: 2,
		QueryTimeout:   5 * time.Second,
		VerifyTimeout:  5 * time.Second,
	}
}

// GraphEngine is the reference Engine: it implements router.Handler for
// inbound wire requests, and exposes Search/Connect directly so a
// CLI-driven World can trigger them locally without a wire round trip to
// itself.
type GraphEngine struct {
	local  message.Node
	store  *neighbours.Store
	caller Caller
	cfg    Config
	log    *logrus.Entry
}

// New builds a GraphEngine bound to the local identity, neighbour table,
// and an outbound Caller (typically a *router.Router).
func New(local message.Node, store *neighbours.Store, caller Caller, cfg Config, log *logrus.Entry) *GraphEngine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.ReplySize <= 0 {
		cfg = DefaultConfig()
	}
	return &GraphEngine{local: local, store: store, caller: caller, cfg: cfg, log: log.WithField("component", "payload")}
}

// Handle implements router.Handler.
func (e *GraphEngine) Handle(sender message.Node, req message.RequestPayload) message.ResponsePayload {
	ctx := context.Background()
	switch req.Kind {
	case message.KindQueryNeighbours:
		return e.handleQueryNeighbours(req.QueryNeighboursTarget)
	case message.KindListNeighbours:
		return message.NeighboursResponse(e.store.Snapshot())
	case message.KindVerify:
		return message.VerifiedResponse()
	case message.KindSearch:
		if req.SearchTargetKey == nil {
			return message.ErrorResponse("search: missing target key")
		}
		found, err := e.Search(ctx, *req.SearchTargetKey)
		if err != nil {
			return message.ErrorResponse(err.Error())
		}
		return message.SearchResultResponse(found)
	case message.KindConnect:
		if req.ConnectInitial == nil {
			return message.ErrorResponse("connect: missing initial node")
		}
		if err := e.Connect(ctx, *req.ConnectInitial); err != nil {
			return message.ErrorResponse(err.Error())
		}
		return message.ConnectedResponse()
	default:
		e.log.WithField("kind", req.Kind).Warn("unrecognised request kind")
		return message.ErrorResponse("unrecognised request kind")
	}
}

func (e *GraphEngine) handleQueryNeighbours(target message.KeySpaceCoord) message.ResponsePayload {
	nodes := e.store.ClosestTo(target, e.cfg.ReplySize)
	return message.NeighboursResponse(nodes)
}

// VerifyNode issues a Verify call to node and reports whether it answered
// correctly, binding the claimed address to the claimed key. Exported so
// package gc can drive its liveness sweep through the same call path.
func (e *GraphEngine) VerifyNode(ctx context.Context, node message.Node) bool {
	resp, err := e.caller.Call(ctx, node, message.VerifyRequest(), e.cfg.VerifyTimeout)
	if err != nil {
		e.log.WithError(err).WithField("peer", node.ID().String()[:8]).Debug("verify failed")
		return false
	}
	return resp.Kind == message.KindVerified
}

// queryNeighboursOf calls QueryNeighbours(target) against node and decodes
// the neighbour list, satisfying search.QueryFunc. A query against the
// local node itself is resolved directly from the NeighbourStore rather
// than round-tripping through the network, mirroring the reference
// implementation's get_neighbours special case for n.key == self.key.
func (e *GraphEngine) queryNeighboursOf(target keyspace.Coord) search.QueryFunc {
	return func(ctx context.Context, node message.Node) ([]message.Node, error) {
		if node.Key.Equal(e.local.Key) {
			return e.store.ClosestTo(target, e.cfg.ReplySize), nil
		}
		resp, err := e.caller.Call(ctx, node, message.QueryNeighboursRequest(target), e.cfg.QueryTimeout)
		if err != nil {
			return nil, err
		}
		if resp.Kind != message.KindNeighbours {
			return nil, errors.New("payload: unexpected response kind for QueryNeighbours")
		}
		return resp.Neighbours, nil
	}
}

// Search runs GraphSearch seeded with the local node itself, converging on
// targetKey's key-space coordinate, then independently verifies the
// candidate before returning it: a found-but-unverified candidate
// downgrades to a nil result. With an empty neighbour table, a search for
// the local node's own key converges after querying only the local
// NeighbourStore.
func (e *GraphEngine) Search(ctx context.Context, targetKey message.PublicKey) (*message.Node, error) {
	target := keyspace.Of(targetKey)
	tracker := search.NewTopKTracker(target, e.cfg.SearchK)
	eng := search.New(search.Config{MaxConcurrency: e.cfg.MaxConcurrency}, e.queryNeighboursOf(target))

	eng.Run(ctx, []message.Node{e.local}, target, tracker.FoundCB(), tracker.ExploredCB())

	for _, cand := range tracker.TopK() {
		if !cand.Key.Equal(targetKey) {
			continue
		}
		if !e.VerifyNode(ctx, cand) {
			return nil, nil
		}
		found := cand
		return &found, nil
	}
	return nil, nil
}

// Connect verifies initial, runs a search converging on the local node's
// own coordinate to discover the surrounding key-space neighbourhood, and
// admits every verified node as soon as it is found rather than waiting
// for it to be dequeued and explored: TopKTracker's early stop fires once
// the top-k converge, and a node that was found but never itself queried
// would otherwise never reach NeighbourStore.consider.
func (e *GraphEngine) Connect(ctx context.Context, initial message.Node) error {
	if !e.VerifyNode(ctx, initial) {
		return errors.New("payload: initial node failed verification")
	}
	e.store.Consider(initial)

	target := keyspace.Of(e.local.Key)
	tracker := search.NewTopKTracker(target, e.cfg.SearchK)
	eng := search.New(search.Config{MaxConcurrency: e.cfg.MaxConcurrency}, e.queryNeighboursOf(target))

	found := func(node message.Node) search.Decision {
		if !node.Equal(initial) && e.VerifyNode(ctx, node) {
			e.store.Consider(node)
		}
		return tracker.FoundCB()(node)
	}

	eng.Run(ctx, []message.Node{initial}, target, found, tracker.ExploredCB())
	return nil
}

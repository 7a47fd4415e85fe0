// Package world wires together the collaborators of a running node —
// KeyStore, NeighbourStore, Transport, MessageRouter, PayloadEngine, and
// NeighbourGC — into the single object cmd/kipa-node constructs and drives.
// cmd/kipa-node builds one World per process; nothing here is a singleton,
// so several Worlds can run side by side in one process.
package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kipa-net/kipa/internal/gc"
	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/keystore"
	"github.com/kipa-net/kipa/internal/message"
	"github.com/kipa-net/kipa/internal/neighbours"
	"github.com/kipa-net/kipa/internal/payload"
	"github.com/kipa-net/kipa/internal/router"
	"github.com/kipa-net/kipa/internal/transport"
)

// Config collects the tunables of every wired collaborator.
type Config struct {
	BindAddress string
	// SecureTransport wraps every connection in a Noise_XX handshake
	// beneath the length-prefixed frame, on top of (not instead of) the
	// per-message sealed envelope. Off by default: the sealed envelope
	// already authenticates and encrypts every message end to end, so
	// this only hides the rest of each frame, such as a request's
	// cleartext sender node, from a passive on-path observer; TCP
	// addresses and frame lengths stay visible.
	SecureTransport bool
	Neighbours      neighbours.Config
	Payload         payload.Config
	GC              gc.Config
	Router          router.Config
}

// listener is the subset of transport.Transport plus Listen that both TCP
// and SecureTCP implement, letting World stay agnostic to which one it
// binds.
type listener interface {
	transport.Transport
	Listen(bindAddr string) (message.Address, error)
}

// World owns the running node's collaborators and local identity.
type World struct {
	cfg  Config
	keys keystore.KeyStore
	log  *logrus.Entry

	transport listener
	store     *neighbours.Store
	rtr       *router.Router
	engine    *payload.GraphEngine
	sweeper   *gc.GC

	local message.Node

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires every collaborator but does not yet bind a socket or start any
// background loop; call Start for that.
func New(cfg Config, keys keystore.KeyStore, log *logrus.Entry) *World {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &World{cfg: cfg, keys: keys, log: log.WithField("component", "world")}
}

// Local returns the node's own (key, address) tuple. Only valid after
// Start.
func (w *World) Local() message.Node { return w.local }

// Store exposes the live neighbour table directly; callers can read it or
// admit nodes into it without a round trip.
func (w *World) Store() *neighbours.Store { return w.store }

// Engine exposes the payload engine directly. The CLI goes through
// Connect, Search and ListNeighbours instead.
func (w *World) Engine() *payload.GraphEngine { return w.engine }

// Start binds the listening socket, wires the router/payload/GC trio around
// it, and launches the accept loop and the GC sweep loop in the background.
// It returns once the socket is bound; the background loops run until Stop
// is called.
func (w *World) Start(ctx context.Context) error {
	tr, err := w.newTransport()
	if err != nil {
		return fmt.Errorf("world: init transport: %w", err)
	}
	addr, err := tr.Listen(w.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("world: listen on %s: %w", w.cfg.BindAddress, err)
	}
	w.transport = tr
	w.local = message.Node{Key: w.keys.PublicKey(), Address: addr}

	localCoord := keyspace.Of(w.local.Key)
	w.store = neighbours.New(w.cfg.Neighbours, localCoord)
	w.rtr = router.New(w.local, w.keys, tr, w.cfg.Router, w.log)
	w.engine = payload.New(w.local, w.store, w.rtr, w.cfg.Payload, w.log)
	w.sweeper = gc.New(w.cfg.GC, w.store, w.engine, w.log)

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		if err := tr.Serve(runCtx, w.rtr.HandleInbound(w.engine)); err != nil {
			w.log.WithError(err).Warn("transport accept loop exited")
		}
	}()
	go func() {
		defer w.wg.Done()
		w.sweeper.Run(runCtx)
	}()

	w.log.WithField("addr", addr.String()).WithField("key", w.local.Key.String()[:8]).Info("node started")
	return nil
}

func (w *World) newTransport() (listener, error) {
	if w.cfg.SecureTransport {
		return transport.NewSecureTCP()
	}
	return transport.NewTCP(), nil
}

// Stop cancels the background loops and releases the listening socket,
// blocking until both have returned.
func (w *World) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	var closeErr error
	if w.transport != nil {
		closeErr = w.transport.Close()
	}
	w.wg.Wait()
	return closeErr
}

// Connect is the CLI-facing entry point for `kipa-node connect`.
func (w *World) Connect(ctx context.Context, initial message.Node) error {
	return w.engine.Connect(ctx, initial)
}

// Search is the CLI-facing entry point for `kipa-node search`.
func (w *World) Search(ctx context.Context, targetKey message.PublicKey) (*message.Node, error) {
	return w.engine.Search(ctx, targetKey)
}

// ListNeighbours is the CLI-facing entry point for `kipa-node
// list-neighbours`.
func (w *World) ListNeighbours() []message.Node {
	return w.store.Snapshot()
}

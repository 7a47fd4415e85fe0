package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kipa-net/kipa/internal/config"
	"github.com/kipa-net/kipa/internal/gc"
	"github.com/kipa-net/kipa/internal/keyspace"
	"github.com/kipa-net/kipa/internal/keystore"
	"github.com/kipa-net/kipa/internal/message"
	"github.com/kipa-net/kipa/internal/neighbours"
	"github.com/kipa-net/kipa/internal/payload"
	"github.com/kipa-net/kipa/internal/router"
	"github.com/kipa-net/kipa/internal/telemetry"
	"github.com/kipa-net/kipa/internal/world"
)

// openKeyStore opens the bolt-backed key store under cfg.KeyDir, creating a
// fresh identity on first run.
func openKeyStore(cfg config.Config) (*keystore.BoltStore, error) {
	return keystore.Open(filepath.Join(cfg.KeyDir, "identity.db"))
}

// buildWorld wires a World from a loaded Config and starts it, applying
// key_space_dimensions network-wide before anything derives a coordinate.
func buildWorld(cfg config.Config, keys keystore.KeyStore) (*world.World, error) {
	keyspace.Dimensions = cfg.KeySpaceDimensions

	log, err := telemetry.New(telemetry.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return nil, err
	}

	w := world.New(world.Config{
		BindAddress:     cfg.BindAddress,
		SecureTransport: cfg.SecureTransport,
		Neighbours:      neighbours.Config{MaxNeighbours: cfg.MaxNeighbours, Alpha: cfg.Alpha, Beta: cfg.Beta},
		Payload: payload.Config{
			ReplySize: cfg.ReplySize, SearchK: cfg.SearchK, MaxConcurrency: cfg.MaxConcurrency,
			QueryTimeout: cfg.QueryTimeout, VerifyTimeout: cfg.VerifyTimeout,
		},
		GC:     gc.Config{Interval: cfg.GCInterval, MaxFailures: cfg.GCMaxFailures},
		Router: router.Config{OutstandingCapacity: cfg.OutstandingCapacity},
	}, keys, log)

	if err := w.Start(context.Background()); err != nil {
		return nil, err
	}
	return w, nil
}

// bootstrap connects w to every "keyhex@host:port" entry in peers,
// discovering their neighbourhoods before a one-shot connect/search
// command runs against an otherwise-empty neighbour table.
func bootstrap(ctx context.Context, w *world.World, peers []string, timeout time.Duration) error {
	for _, p := range peers {
		node, err := parseBootstrapPeer(p)
		if err != nil {
			return configError(err)
		}
		bctx, cancel := context.WithTimeout(ctx, timeout)
		err = w.Connect(bctx, node)
		cancel()
		if err != nil {
			return protocolError(fmt.Errorf("bootstrap %s: %w", p, err))
		}
	}
	return nil
}

func parseBootstrapPeer(s string) (message.Node, error) {
	keyHex, addrStr, ok := strings.Cut(s, "@")
	if !ok {
		return message.Node{}, fmt.Errorf("bootstrap peer %q: expected keyhex@host:port", s)
	}
	key, err := parseKeyHex(keyHex)
	if err != nil {
		return message.Node{}, err
	}
	addr, err := message.ParseAddress(addrStr)
	if err != nil {
		return message.Node{}, fmt.Errorf("bootstrap peer %q: %w", s, err)
	}
	return message.Node{Key: key, Address: addr}, nil
}

func parseKeyHex(s string) (message.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return message.PublicKey{}, fmt.Errorf("invalid key-id %q: %w", s, err)
	}
	return message.NewPublicKey(raw), nil
}

// lookupRememberedPeer resolves a hex-encoded NodeID against keys' bolt-
// persisted peer table, the counterpart to import-key remembering a peer
// under the NodeID printed at import time.
func lookupRememberedPeer(keys *keystore.BoltStore, peerIDHex string) (message.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(peerIDHex))
	if err != nil {
		return message.PublicKey{}, fmt.Errorf("invalid peer-id %q: %w", peerIDHex, err)
	}
	if len(raw) != len(message.NodeID{}) {
		return message.PublicKey{}, fmt.Errorf("invalid peer-id %q: expected %d bytes, got %d", peerIDHex, len(message.NodeID{}), len(raw))
	}
	var id message.NodeID
	copy(id[:], raw)
	pub, ok := keys.LookupPeer(id)
	if !ok {
		return message.PublicKey{}, fmt.Errorf("peer-id %q: no remembered peer, run import-key first", peerIDHex)
	}
	return pub, nil
}

package keystore

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kipa-net/kipa/internal/message"
)

const (
	bucketIdentity = "identity"
	bucketPeers    = "peers"
	keySelfSeed    = "seed"

	defaultTimeout = 2 * time.Second
)

// BoltStore wraps a LocalStore with on-disk persistence of the local
// identity's seed and of imported peer public keys: one bucket per
// concern, a single bolt.DB per node, 0600 file permissions.
type BoltStore struct {
	*LocalStore
	db *bolt.DB
}

// Open opens (or creates) a bolt-backed key store at path, loading a
// previously persisted identity if present or generating and persisting a
// fresh one otherwise.
func Open(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("keystore: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, err
	}

	var seed []byte
	err = db.Update(func(tx *bolt.Tx) error {
		idb, err := tx.CreateBucketIfNotExists([]byte(bucketIdentity))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketPeers)); err != nil {
			return err
		}
		seed = idb.Get([]byte(keySelfSeed))
		if seed != nil {
			cp := make([]byte, len(seed))
			copy(cp, seed)
			seed = cp
			return nil
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var local *LocalStore
	if seed != nil {
		local, err = NewLocalStoreFromSeed(seed)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		local, err = NewLocalStore()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		err = db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucketIdentity)).Put([]byte(keySelfSeed), local.Seed())
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &BoltStore{LocalStore: local, db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// RememberPeer persists a peer's public key under its hex NodeID, so a
// previously-imported key survives a daemon restart even though the
// neighbour table itself does not — that restriction applies to
// neighbour Address/liveness state, not to imported key material.
func (s *BoltStore) RememberPeer(pub message.PublicKey) error {
	h := pub.Hash()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPeers)).Put([]byte(hex.EncodeToString(h[:])), pub.Bytes())
	})
}

// LookupPeer returns a previously remembered peer's public key by NodeID.
func (s *BoltStore) LookupPeer(id message.NodeID) (message.PublicKey, bool) {
	var raw []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketPeers)).Get([]byte(hex.EncodeToString(id[:])))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if raw == nil {
		return message.PublicKey{}, false
	}
	return message.NewPublicKey(raw), true
}

// Package message defines the wire-level data model shared by every other
// package: public keys, addresses, nodes, message identifiers, and the
// tagged request/response payload variants.
package message

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// PublicKey is an opaque byte sequence with a stable canonical encoding.
// Two keys are equal iff their canonical encodings are equal.
type PublicKey struct {
	raw []byte
}

// NewPublicKey wraps raw canonical key bytes. The caller owns raw and must
// not mutate it afterwards.
func NewPublicKey(raw []byte) PublicKey {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return PublicKey{raw: cp}
}

// Bytes returns the canonical encoding.
func (k PublicKey) Bytes() []byte {
	return append([]byte(nil), k.raw...)
}

// Equal reports whether two keys have identical canonical encodings.
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k.raw, other.raw)
}

// IsZero reports whether this is the zero value (no key set).
func (k PublicKey) IsZero() bool {
	return len(k.raw) == 0
}

// String returns a hex encoding, used for logging and map keys.
func (k PublicKey) String() string {
	return hex.EncodeToString(k.raw)
}

// MarshalJSON encodes the canonical bytes, so keys carried inside sealed
// JSON payloads (neighbour lists, search targets) survive the round trip.
func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.raw)
}

// UnmarshalJSON reverses MarshalJSON.
func (k *PublicKey) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &k.raw)
}

// Hash returns H(k), the 32-byte SHA-256 digest used both as NodeId and as
// the key-space embedding seed.
func (k PublicKey) Hash() [32]byte {
	return sha256.Sum256(k.raw)
}

// NodeID is H(k) formatted for use as a map key / log field.
type NodeID [32]byte

// ID returns the NodeID derived from this key.
func (k PublicKey) ID() NodeID {
	return NodeID(k.Hash())
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

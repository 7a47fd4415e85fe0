// Package keystore implements sign/verify/encrypt/decrypt over public
// keys, plus a GPG-style import/export surface for out-of-band key
// distribution. Key-storage backends and passphrase handling are kept
// pluggable behind the KeyStore interface; this package is the reference
// implementation a daemon actually links against.
package keystore

import (
	"errors"

	"github.com/kipa-net/kipa/internal/message"
)

var (
	// ErrUnknownPeer names a recipient key a KeyStore cannot encrypt to.
	// LocalStore.EncryptTo never returns it: it derives the shared secret
	// from the recipient's public key alone, seen before or not.
	ErrUnknownPeer = errors.New("keystore: unknown recipient public key")
	// ErrDecryptFailed covers unwrap-key and AEAD-open failures.
	ErrDecryptFailed = errors.New("keystore: decrypt failed")
	// ErrBadArmor is returned by ImportPublicKey on malformed input.
	ErrBadArmor = errors.New("keystore: malformed armored key")
)

// KeyStore covers sign(data, key_id), verify(data, sig, pk),
// encrypt_to(pk, data), decrypt(blob, key_id, passphrase),
// export_public(key_id). This package's local identity has exactly one
// signing key, so key_id/passphrase parameters from the abstract
// interface collapse to "the local identity" here; a multi-identity
// backend would thread a key_id through every method.
type KeyStore interface {
	// PublicKey returns the local node's own public key.
	PublicKey() message.PublicKey

	// Sign signs data with the local secret key.
	Sign(data []byte) ([]byte, error)

	// Verify checks a signature against a (possibly remote) public key.
	Verify(pub message.PublicKey, data, sig []byte) bool

	// EncryptTo performs the hybrid encrypt step used when sealing a
	// body: generate a fresh symmetric key, encrypt data under it with an
	// AEAD cipher, and wrap the symmetric key to pub. The returned blob
	// is wrapped_key || ciphertext, opaque to the caller.
	EncryptTo(pub message.PublicKey, data []byte) ([]byte, error)

	// Decrypt reverses EncryptTo using the local secret key.
	Decrypt(blob []byte) ([]byte, error)

	// ExportPublicKey returns an ASCII-armored encoding of pub, mirroring
	// the original KIPA's GPG export surface.
	ExportPublicKey(pub message.PublicKey) ([]byte, error)

	// ImportPublicKey parses an ASCII-armored public key previously
	// produced by ExportPublicKey (or an equivalent GPG export).
	ImportPublicKey(armored []byte) (message.PublicKey, error)
}

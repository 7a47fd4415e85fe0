package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/kipa-net/kipa/internal/message"
)

const hkdfInfo = "kipa/secure-envelope/v1"

const armorHeader = "-----BEGIN KIPA PUBLIC KEY-----"
const armorFooter = "-----END KIPA PUBLIC KEY-----"

// LocalStore is the reference KeyStore implementation: a single Ed25519
// identity used both for signing (directly) and, via the birational
// Edwards/Montgomery conversion, for X25519 ECDH key agreement.
type LocalStore struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewLocalStore generates a fresh Ed25519 identity.
func NewLocalStore() (*LocalStore, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keystore: generate identity: %w", err)
	}
	return &LocalStore{pub: pub, priv: priv}, nil
}

// NewLocalStoreFromSeed reconstructs an identity from a 32-byte Ed25519
// seed, used by the bolt-backed persistence layer (boltstore.go) to
// restore a saved identity across restarts.
func NewLocalStoreFromSeed(seed []byte) (*LocalStore, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keystore: bad seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &LocalStore{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// Seed returns the 32-byte seed backing this identity, for persistence.
func (s *LocalStore) Seed() []byte {
	return append([]byte(nil), s.priv.Seed()...)
}

func (s *LocalStore) PublicKey() message.PublicKey {
	return message.NewPublicKey(s.pub)
}

func (s *LocalStore) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, data), nil
}

func (s *LocalStore) Verify(pub message.PublicKey, data, sig []byte) bool {
	if pub.IsZero() || len(pub.Bytes()) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub.Bytes()), data, sig)
}

// EncryptTo generates an ephemeral X25519 keypair, performs ECDH against
// the recipient's converted public key, derives an AEAD key with
// HKDF-SHA256, and seals data. The wire format is ephemeral_pub(32) ||
// nonce(12) || ciphertext, which plays the role of "wrapped_K ||
// ciphertext": the ephemeral public key is exactly what lets the
// recipient reconstruct K, so wrapping K under the recipient's key and
// transmitting the ephemeral DH share are the same operation in an
// ECDH-based scheme.
func (s *LocalStore) EncryptTo(pub message.PublicKey, data []byte) ([]byte, error) {
	recipientX25519, err := ed25519PublicKeyToCurve25519(ed25519.PublicKey(pub.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("keystore: convert recipient key: %w", err)
	}

	var ephemeralPriv [32]byte
	if _, err := rand.Read(ephemeralPriv[:]); err != nil {
		return nil, fmt.Errorf("keystore: generate ephemeral key: %w", err)
	}
	ephemeralPriv[0] &= 248
	ephemeralPriv[31] &= 127
	ephemeralPriv[31] |= 64

	var ephemeralPub [32]byte
	curve25519.ScalarBaseMult(&ephemeralPub, &ephemeralPriv)

	shared, err := curve25519.X25519(ephemeralPriv[:], recipientX25519[:])
	if err != nil {
		return nil, fmt.Errorf("keystore: ecdh: %w", err)
	}

	key, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("keystore: aead init: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, data, nil)

	blob := make([]byte, 0, 32+len(nonce)+len(ciphertext))
	blob = append(blob, ephemeralPub[:]...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Decrypt reverses EncryptTo using the local identity's X25519-converted
// private key.
func (s *LocalStore) Decrypt(blob []byte) ([]byte, error) {
	const headerLen = 32 + chacha20poly1305.NonceSize
	if len(blob) < headerLen {
		return nil, ErrDecryptFailed
	}

	var ephemeralPub [32]byte
	copy(ephemeralPub[:], blob[:32])
	nonce := blob[32:headerLen]
	ciphertext := blob[headerLen:]

	ourX25519, err := ed25519PrivateKeyToCurve25519(s.priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	shared, err := curve25519.X25519(ourX25519[:], ephemeralPub[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	key, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func deriveKey(sharedSecret []byte) ([32]byte, error) {
	var key [32]byte
	r := hkdf.New(sha256.New, sharedSecret, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("keystore: hkdf: %w", err)
	}
	return key, nil
}

// ExportPublicKey produces a GPG-armor-shaped export of pub, matching the
// original KIPA's gpg_key.rs import/export surface. It carries no
// certification chain: it is a bare base64 encoding wrapped in armor
// markers, sufficient for pre-known, out-of-band key distribution.
func (s *LocalStore) ExportPublicKey(pub message.PublicKey) ([]byte, error) {
	raw := pub.Bytes()
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("keystore: bad public key length %d", len(raw))
	}
	sum := sha256.Sum256(raw)
	body := base64.StdEncoding.EncodeToString(raw)
	checksum := base64.StdEncoding.EncodeToString(sum[:4])

	var b strings.Builder
	b.WriteString(armorHeader)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n=")
	b.WriteString(checksum)
	b.WriteString("\n")
	b.WriteString(armorFooter)
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// ImportPublicKey parses the format ExportPublicKey produces.
func (s *LocalStore) ImportPublicKey(armored []byte) (message.PublicKey, error) {
	text := strings.TrimSpace(string(armored))
	if !strings.HasPrefix(text, armorHeader) || !strings.HasSuffix(text, armorFooter) {
		return message.PublicKey{}, ErrBadArmor
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, armorHeader), armorFooter)
	lines := strings.Fields(inner)
	if len(lines) == 0 {
		return message.PublicKey{}, ErrBadArmor
	}

	var bodyLine, checksumLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "=") {
			checksumLine = strings.TrimPrefix(l, "=")
		} else {
			bodyLine = l
		}
	}

	raw, err := base64.StdEncoding.DecodeString(bodyLine)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return message.PublicKey{}, ErrBadArmor
	}

	if checksumLine != "" {
		sum := sha256.Sum256(raw)
		want := base64.StdEncoding.EncodeToString(sum[:4])
		if want != checksumLine {
			return message.PublicKey{}, ErrBadArmor
		}
	}

	return message.NewPublicKey(raw), nil
}

// idBytes returns the leading 8 bytes of H(pub) as an integer, a stable
// short identifier for a public key in log lines.
func idBytes(pub message.PublicKey) uint64 {
	h := pub.Hash()
	return binary.BigEndian.Uint64(h[:8])
}

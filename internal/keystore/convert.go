package keystore

import (
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"math/big"
)

// The standard library only exposes Ed25519, but the hybrid Seal/Open
// scheme needs X25519 for ECDH. These conversions implement the
// birational map between the Edwards and Montgomery curve forms so a
// single Ed25519 identity key can serve both signing and key agreement.

func ed25519PublicKeyToCurve25519(pub ed25519.PublicKey) (*[32]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, errors.New("keystore: invalid ed25519 public key size")
	}

	var yBytes [32]byte
	copy(yBytes[:], pub)
	yBytes[31] &= 0x7F

	p := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))
	y := new(big.Int).SetBytes(reverseBytes(yBytes[:]))

	one := big.NewInt(1)
	numerator := new(big.Int).Mod(new(big.Int).Add(one, y), p)

	denominator := new(big.Int).Sub(one, y)
	denominator.Mod(denominator, p)
	if denominator.Sign() < 0 {
		denominator.Add(denominator, p)
	}

	denomInv := new(big.Int).ModInverse(denominator, p)
	if denomInv == nil {
		return nil, errors.New("keystore: invalid ed25519 public key point")
	}

	u := new(big.Int).Mod(new(big.Int).Mul(numerator, denomInv), p)

	uBytes := u.Bytes()
	uPadded := make([]byte, 32)
	copy(uPadded[32-len(uBytes):], uBytes)

	var out [32]byte
	copy(out[:], reverseBytes(uPadded))
	return &out, nil
}

func ed25519PrivateKeyToCurve25519(priv ed25519.PrivateKey) (*[32]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("keystore: invalid ed25519 private key size")
	}
	seed := priv.Seed()
	h := sha512.Sum512(seed)

	var out [32]byte
	copy(out[:], h[:32])
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	return &out, nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

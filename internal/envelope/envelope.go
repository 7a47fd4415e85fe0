// Package envelope implements encrypt-then-sign framing for
// request/response bodies, on top of a KeyStore collaborator that
// supplies the underlying sign/verify/encrypt/decrypt primitives. The
// hybrid crypto itself lives in package keystore; this package only
// sequences Seal as "encrypt, then sign the encrypted blob" and Open as
// "verify the signature, then decrypt".
package envelope

import (
	"errors"

	"github.com/kipa-net/kipa/internal/keystore"
	"github.com/kipa-net/kipa/internal/message"
)

// Sealed error taxonomy.
var (
	ErrBadSignature  = errors.New("envelope: bad signature")
	ErrDecryptFail   = errors.New("envelope: decrypt failed")
	ErrMalformedBody = errors.New("envelope: malformed body")
)

// Blob is the sealed representation of a body: { wrapped_K || ciphertext,
// signature }. Ciphertext already carries the wrapped
// symmetric key at its front (see keystore.LocalStore.EncryptTo); Blob
// keeps it and the signature separate on the wire so Open can verify
// before it ever attempts to decrypt.
type Blob struct {
	Ciphertext []byte
	Signature  []byte
}

// Serializer turns a body value into bytes and back. RequestBody and
// ResponseBody (package message) satisfy this via the codec package;
// envelope stays codec-agnostic so it can seal either JSON or a future
// protobuf encoding without change.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Seal serialises body, encrypts it to recipientPK, then signs the
// resulting ciphertext with the sender's secret key.
func Seal(ser Serializer, body any, recipientPK message.PublicKey, sender keystore.KeyStore) (Blob, error) {
	plaintext, err := ser.Marshal(body)
	if err != nil {
		return Blob{}, err
	}

	ciphertext, err := sender.EncryptTo(recipientPK, plaintext)
	if err != nil {
		return Blob{}, err
	}

	sig, err := sender.Sign(ciphertext)
	if err != nil {
		return Blob{}, err
	}

	return Blob{Ciphertext: ciphertext, Signature: sig}, nil
}

// Open verifies the signature against the claimed sender's public key,
// decrypts with the local secret key, and deserialises into out.
func Open(ser Serializer, blob Blob, claimedSenderPK message.PublicKey, local keystore.KeyStore, out any) error {
	if !local.Verify(claimedSenderPK, blob.Ciphertext, blob.Signature) {
		return ErrBadSignature
	}

	plaintext, err := local.Decrypt(blob.Ciphertext)
	if err != nil {
		return ErrDecryptFail
	}

	if err := ser.Unmarshal(plaintext, out); err != nil {
		return ErrMalformedBody
	}
	return nil
}

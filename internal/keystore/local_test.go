package keystore

import (
	"bytes"
	"testing"
)

func TestLocalStore_SignVerifyRoundTrip(t *testing.T) {
	s, err := NewLocalStore()
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	data := []byte("verify me")
	sig, err := s.Sign(data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !s.Verify(s.PublicKey(), data, sig) {
		t.Fatal("Verify rejected a valid signature")
	}
	if s.Verify(s.PublicKey(), []byte("tampered"), sig) {
		t.Fatal("Verify accepted a signature over the wrong data")
	}
}

func TestLocalStore_EncryptDecryptRoundTrip(t *testing.T) {
	sender, err := NewLocalStore()
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	recipient, err := NewLocalStore()
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	plaintext := []byte("a request body worth sealing")
	blob, err := sender.EncryptTo(recipient.PublicKey(), plaintext)
	if err != nil {
		t.Fatalf("EncryptTo: %v", err)
	}

	got, err := recipient.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestLocalStore_DecryptFailsForWrongRecipient(t *testing.T) {
	sender, _ := NewLocalStore()
	recipient, _ := NewLocalStore()
	bystander, _ := NewLocalStore()

	blob, err := sender.EncryptTo(recipient.PublicKey(), []byte("secret"))
	if err != nil {
		t.Fatalf("EncryptTo: %v", err)
	}
	if _, err := bystander.Decrypt(blob); err != ErrDecryptFailed {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestLocalStore_ExportImportRoundTrip(t *testing.T) {
	s, _ := NewLocalStore()
	other, _ := NewLocalStore()

	armored, err := s.ExportPublicKey(s.PublicKey())
	if err != nil {
		t.Fatalf("ExportPublicKey: %v", err)
	}

	got, err := other.ImportPublicKey(armored)
	if err != nil {
		t.Fatalf("ImportPublicKey: %v", err)
	}
	if !got.Equal(s.PublicKey()) {
		t.Fatal("imported key does not match exported key")
	}
}

func TestLocalStore_ImportRejectsBadArmor(t *testing.T) {
	s, _ := NewLocalStore()
	if _, err := s.ImportPublicKey([]byte("not an armored key")); err != ErrBadArmor {
		t.Fatalf("expected ErrBadArmor, got %v", err)
	}
}

func TestNewLocalStoreFromSeed_Deterministic(t *testing.T) {
	s, err := NewLocalStore()
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	restored, err := NewLocalStoreFromSeed(s.Seed())
	if err != nil {
		t.Fatalf("NewLocalStoreFromSeed: %v", err)
	}
	if !restored.PublicKey().Equal(s.PublicKey()) {
		t.Fatal("identity restored from seed does not match original")
	}
}

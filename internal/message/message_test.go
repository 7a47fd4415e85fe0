package message

import "testing"

func TestPublicKey_EqualAndHash(t *testing.T) {
	a := NewPublicKey([]byte{1, 2, 3})
	b := NewPublicKey([]byte{1, 2, 3})
	c := NewPublicKey([]byte{1, 2, 4})

	if !a.Equal(b) {
		t.Fatal("expected equal keys built from identical bytes")
	}
	if a.Equal(c) {
		t.Fatal("expected distinct keys to differ")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("expected equal keys to hash identically")
	}
	if a.Hash() == c.Hash() {
		t.Fatal("expected distinct keys to hash differently")
	}
}

func TestPublicKey_IsZero(t *testing.T) {
	var zero PublicKey
	if !zero.IsZero() {
		t.Fatal("expected the zero value to report IsZero")
	}
	if NewPublicKey([]byte{1}).IsZero() {
		t.Fatal("expected a non-empty key not to report IsZero")
	}
}

func TestAddress_ParseAndString(t *testing.T) {
	addr, err := ParseAddress("192.0.2.1:4884")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if addr.Host != "192.0.2.1" || addr.Port != 4884 {
		t.Fatalf("got %+v", addr)
	}
	if addr.String() != "192.0.2.1:4884" {
		t.Fatalf("String round trip mismatch: %s", addr.String())
	}
}

func TestAddress_ParseRejectsMalformed(t *testing.T) {
	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Fatal("expected an error for a malformed address")
	}
	if _, err := ParseAddress("host:notaport"); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}

func TestNode_EqualIgnoresAddress(t *testing.T) {
	key := NewPublicKey([]byte{9, 9, 9})
	a := Node{Key: key, Address: Address{Host: "10.0.0.1", Port: 1}}
	b := Node{Key: key, Address: Address{Host: "10.0.0.2", Port: 2}}

	if !a.Equal(b) {
		t.Fatal("expected nodes with the same key to be equal regardless of address")
	}
	if a.ID() != b.ID() {
		t.Fatal("expected the same key to produce the same NodeID")
	}
}

func TestID_NewIDIsUnique(t *testing.T) {
	a := NewID()
	b := NewID()
	if a.Equal(b) {
		t.Fatal("expected two freshly generated ids to differ")
	}
	if a.Equal(Zero) || b.Equal(Zero) {
		t.Fatal("expected NewID never to produce the zero id")
	}
}

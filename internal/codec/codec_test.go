package codec

import (
	"crypto/ed25519"
	"testing"

	"github.com/kipa-net/kipa/internal/envelope"
	"github.com/kipa-net/kipa/internal/message"
)

func mustNode(seed byte, port uint16) message.Node {
	raw := make([]byte, ed25519.PublicKeySize)
	for i := range raw {
		raw[i] = seed
	}
	return message.Node{
		Key:     message.NewPublicKey(raw),
		Address: message.Address{Host: "127.0.0.1", Port: port},
	}
}

func TestEncodeRequest_DecodeRoundTrip(t *testing.T) {
	sender := mustNode(1, 1001)
	blob := envelope.Blob{Ciphertext: []byte("ct"), Signature: []byte("sig")}

	frame, err := EncodeRequest(sender, blob)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	wire, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if wire.Kind != KindRequest || wire.Request == nil {
		t.Fatalf("expected a decoded request, got %+v", wire)
	}
	if !wire.Request.Sender.ToNode().Key.Equal(sender.Key) {
		t.Fatal("decoded sender key does not match encoded sender")
	}
	if string(wire.Request.Ciphertext) != "ct" || string(wire.Request.Signature) != "sig" {
		t.Fatalf("decoded blob mismatch: %+v", wire.Request)
	}
}

func TestEncodeResponse_DecodeRoundTrip(t *testing.T) {
	blob := envelope.Blob{Ciphertext: []byte("resp-ct"), Signature: []byte("resp-sig")}

	frame, err := EncodeResponse(blob)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	wire, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if wire.Kind != KindResponse || wire.Response == nil {
		t.Fatalf("expected a decoded response, got %+v", wire)
	}
	if string(wire.Response.Ciphertext) != "resp-ct" {
		t.Fatalf("decoded ciphertext mismatch: %+v", wire.Response)
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected an error decoding malformed JSON")
	}
}

func TestWireNode_RoundTrip(t *testing.T) {
	n := mustNode(7, 4287)
	got := ToWireNode(n).ToNode()
	if !got.Key.Equal(n.Key) || got.Address != n.Address {
		t.Fatalf("WireNode round trip mismatch: got %+v want %+v", got, n)
	}
}

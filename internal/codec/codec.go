// Package codec encodes and decodes the wire Message/Request/Response
// envelopes. The reference codec is JSON over length-prefixed frames,
// in the shape of a small Envelope struct plus json.Encoder/Decoder; see
// DESIGN.md for why a protobuf schema was not wired in directly.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/kipa-net/kipa/internal/envelope"
	"github.com/kipa-net/kipa/internal/message"
)

// JSON is the reference Serializer/Codec, satisfying envelope.Serializer.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WireNode mirrors the semantic schema of a Node on the wire:
//
//	Node = { key: PublicKey, address: { host: bytes, port: uint16 } }
type WireNode struct {
	Key  []byte `json:"key"`
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

func ToWireNode(n message.Node) WireNode {
	return WireNode{Key: n.Key.Bytes(), Host: n.Address.Host, Port: n.Address.Port}
}

func (w WireNode) ToNode() message.Node {
	return message.Node{
		Key:     message.NewPublicKey(w.Key),
		Address: message.Address{Host: w.Host, Port: w.Port},
	}
}

// WireRequest mirrors Request = { sender: Node, sealed_body: bytes }.
type WireRequest struct {
	Sender     WireNode `json:"sender"`
	Ciphertext []byte   `json:"ciphertext"`
	Signature  []byte   `json:"signature"`
}

// WireResponse mirrors Response = { sealed_body: bytes }.
type WireResponse struct {
	Ciphertext []byte `json:"ciphertext"`
	Signature  []byte `json:"signature"`
}

// MessageKind tags the oneof{Request, Response} at the top of the wire
// schema.
type MessageKind string

const (
	KindRequest  MessageKind = "REQUEST"
	KindResponse MessageKind = "RESPONSE"
)

// WireMessage is the outermost frame: oneof { Request, Response }.
type WireMessage struct {
	Kind     MessageKind   `json:"kind"`
	Request  *WireRequest  `json:"request,omitempty"`
	Response *WireResponse `json:"response,omitempty"`
}

// EncodeRequest serialises a sealed RequestMessage as a WireMessage.
func EncodeRequest(sender message.Node, blob envelope.Blob) ([]byte, error) {
	msg := WireMessage{
		Kind: KindRequest,
		Request: &WireRequest{
			Sender:     ToWireNode(sender),
			Ciphertext: blob.Ciphertext,
			Signature:  blob.Signature,
		},
	}
	return json.Marshal(msg)
}

// EncodeResponse serialises a sealed ResponseMessage as a WireMessage.
func EncodeResponse(blob envelope.Blob) ([]byte, error) {
	msg := WireMessage{
		Kind: KindResponse,
		Response: &WireResponse{
			Ciphertext: blob.Ciphertext,
			Signature:  blob.Signature,
		},
	}
	return json.Marshal(msg)
}

// Decode parses a wire frame into its outer envelope.
func Decode(data []byte) (WireMessage, error) {
	var msg WireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return WireMessage{}, fmt.Errorf("codec: decode: %w", err)
	}
	return msg, nil
}

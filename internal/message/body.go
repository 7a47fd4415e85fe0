package message

// ProtocolVersion is embedded in every outbound RequestBody and checked by
// the receiving router before a request is dispatched to a Handler,
// guarding against a future incompatible wire change being silently
// misinterpreted by an old peer. A request carrying no version (the zero
// value) is treated as coming from a peer that predates this check rather
// than rejected outright.
const ProtocolVersion = "kipa/1"

// RequestBody is sealed before it goes on the wire.
type RequestBody struct {
	ID      ID             `json:"id"`
	Version string         `json:"version,omitempty"`
	Payload RequestPayload `json:"payload"`
}

// ResponseBody is sealed by SecureEnvelope before it goes on the wire.
type ResponseBody struct {
	ID      ID              `json:"id"`
	Payload ResponsePayload `json:"payload"`
}

// RequestMessage is the wire envelope for an outbound request: the
// sender's identity in cleartext (needed to select a decryption key) plus
// the sealed, opaque body.
type RequestMessage struct {
	Sender     Node
	SealedBody []byte
}

// ResponseMessage is the wire envelope for a response: just the sealed
// body, since the recipient already knows who it asked.
type ResponseMessage struct {
	SealedBody []byte
}

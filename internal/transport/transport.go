// Package transport sends a request frame to a peer address and awaits
// one response frame, or serves inbound connections and hands frames to a
// router-supplied handler. Transport is intentionally agnostic to message
// semantics — it moves opaque byte frames, so the core can be driven over
// any concrete wire.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/kipa-net/kipa/internal/message"
)

// ErrTimeout is returned by SendRequest when no response frame arrives
// within the given timeout.
var ErrTimeout = errors.New("transport: timeout")

// ReplySink lets an inbound handler answer the request that produced it,
// over the same transport session.
type ReplySink interface {
	Reply(frame []byte) error
}

// InboundHandler receives one opaque frame per inbound request, along with
// the address it arrived from and a sink to reply on.
type InboundHandler interface {
	HandleInbound(from message.Address, frame []byte, reply ReplySink)
}

// Transport provides outbound request/response with a timeout, and an
// accept loop for inbound requests. Implementations MUST NOT assume
// reliable ordered delivery beyond "one SendRequest gets at most one
// matching response" — a UDP transport is a plausible future
// implementation the core stays agnostic to.
type Transport interface {
	// SendRequest sends frame to peer and blocks for one response frame
	// or until timeout/ctx expires.
	SendRequest(ctx context.Context, peer message.Address, frame []byte, timeout time.Duration) ([]byte, error)

	// Serve runs the accept loop until ctx is cancelled, delivering each
	// inbound request frame to handler.
	Serve(ctx context.Context, handler InboundHandler) error

	// Close releases any listening resources.
	Close() error
}

// Package router issues a sealed request to a peer over a Transport and
// correlates the sealed response, and dispatches inbound sealed requests
// to a Handler.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kipa-net/kipa/internal/codec"
	"github.com/kipa-net/kipa/internal/envelope"
	"github.com/kipa-net/kipa/internal/keystore"
	"github.com/kipa-net/kipa/internal/message"
	"github.com/kipa-net/kipa/internal/transport"
)

// Handler answers one inbound (sender, payload) pair with a
// ResponsePayload. PayloadEngine implements this; router does not import
// package payload to avoid a dependency cycle (PayloadEngine depends on
// Router.Call to drive searches).
type Handler interface {
	Handle(sender message.Node, payload message.RequestPayload) message.ResponsePayload
}

// Router correlates outbound requests with their responses and dispatches
// inbound requests to a Handler.
type Router struct {
	local     message.Node
	keys      keystore.KeyStore
	transport transport.Transport
	ser       codec.JSON
	log       *logrus.Entry

	outstanding *outstandingLRU
}

// Config tunes the router's replay-protection window.
type Config struct {
	// OutstandingCapacity bounds the LRU of MessageIds awaiting a
	// response.
	OutstandingCapacity int
}

// New builds a Router bound to a local identity, KeyStore, and Transport.
func New(local message.Node, keys keystore.KeyStore, tr transport.Transport, cfg Config, log *logrus.Entry) *Router {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Router{
		local:       local,
		keys:        keys,
		transport:   tr,
		ser:         codec.JSON{},
		log:         log.WithField("component", "router"),
		outstanding: newOutstandingLRU(cfg.OutstandingCapacity),
	}
}

// Call generates a MessageId, seals a RequestBody to peer, sends it over
// Transport, opens the sealed response, and requires the echoed id to
// match the one sent.
func (r *Router) Call(ctx context.Context, peer message.Node, payload message.RequestPayload, timeout time.Duration) (message.ResponsePayload, error) {
	id := message.NewID()
	body := message.RequestBody{ID: id, Version: message.ProtocolVersion, Payload: payload}

	blob, err := envelope.Seal(r.ser, body, peer.Key, r.keys)
	if err != nil {
		return message.ResponsePayload{}, fmt.Errorf("router: seal request: %w", err)
	}

	frame, err := codec.EncodeRequest(r.local, blob)
	if err != nil {
		return message.ResponsePayload{}, fmt.Errorf("router: encode request: %w", err)
	}

	r.outstanding.add(id)

	respFrame, err := r.transport.SendRequest(ctx, peer.Address, frame, timeout)
	if err != nil {
		r.log.WithError(err).WithField("peer", peer.ID().String()[:8]).Debug("transport call failed")
		if err == transport.ErrTimeout {
			return message.ResponsePayload{}, ErrTimeout
		}
		return message.ResponsePayload{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	wire, err := codec.Decode(respFrame)
	if err != nil || wire.Kind != codec.KindResponse || wire.Response == nil {
		return message.ResponsePayload{}, ErrMalformedBody
	}

	blobResp := envelope.Blob{Ciphertext: wire.Response.Ciphertext, Signature: wire.Response.Signature}

	var respBody message.ResponseBody
	if err := envelope.Open(r.ser, blobResp, peer.Key, r.keys, &respBody); err != nil {
		switch err {
		case envelope.ErrBadSignature:
			return message.ResponsePayload{}, ErrBadSignature
		case envelope.ErrDecryptFail:
			return message.ResponsePayload{}, ErrDecryptFail
		default:
			return message.ResponsePayload{}, ErrMalformedBody
		}
	}

	if !r.outstanding.take(respBody.ID) || !respBody.ID.Equal(id) {
		return message.ResponsePayload{}, ErrIdMismatch
	}

	if !responseMatchesRequest(payload.Kind, respBody.Payload.Kind) {
		return message.ResponsePayload{}, ErrUnexpectedPayload
	}

	return respBody.Payload, nil
}

func responseMatchesRequest(req message.RequestKind, resp message.ResponseKind) bool {
	if resp == message.KindError {
		return true
	}
	switch req {
	case message.KindQueryNeighbours, message.KindListNeighbours:
		return resp == message.KindNeighbours
	case message.KindSearch:
		return resp == message.KindSearchResult
	case message.KindConnect:
		return resp == message.KindConnected
	case message.KindVerify:
		return resp == message.KindVerified
	default:
		return false
	}
}

// HandleInbound implements transport.InboundHandler: open the inbound
// sealed request, dispatch to handler, seal and send the response.
func (r *Router) HandleInbound(handler Handler) transport.InboundHandler {
	return inboundAdapter{router: r, handler: handler}
}

type inboundAdapter struct {
	router  *Router
	handler Handler
}

func (a inboundAdapter) HandleInbound(from message.Address, frame []byte, reply transport.ReplySink) {
	r := a.router
	wire, err := codec.Decode(frame)
	if err != nil || wire.Kind != codec.KindRequest || wire.Request == nil {
		return
	}

	sender := wire.Request.Sender.ToNode()
	sender.Address = from // never trust the claimed address over the observed one

	blob := envelope.Blob{Ciphertext: wire.Request.Ciphertext, Signature: wire.Request.Signature}

	var reqBody message.RequestBody
	if err := envelope.Open(r.ser, blob, sender.Key, r.keys, &reqBody); err != nil {
		r.log.WithError(err).Debug("inbound request failed to open")
		return
	}

	var respPayload message.ResponsePayload
	if reqBody.Version != "" && reqBody.Version != message.ProtocolVersion {
		r.log.WithField("peer_version", reqBody.Version).Warn("rejecting request from incompatible protocol version")
		respPayload = message.ErrorResponse(ErrVersionMismatch.Error())
	} else {
		respPayload = a.handler.Handle(sender, reqBody.Payload)
	}
	respBody := message.ResponseBody{ID: reqBody.ID, Payload: respPayload}

	respBlob, err := envelope.Seal(r.ser, respBody, sender.Key, r.keys)
	if err != nil {
		r.log.WithError(err).Debug("failed to seal response")
		return
	}

	respFrame, err := codec.EncodeResponse(respBlob)
	if err != nil {
		return
	}
	_ = reply.Reply(respFrame)
}

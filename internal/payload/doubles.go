package payload

import (
	"sync"

	"github.com/kipa-net/kipa/internal/message"
)

// BlackHoleEngine answers nothing until unblocked, standing in for an
// unresponsive peer: it exercises GC eviction and Router.Call's timeout
// path without needing an actual dead socket.
type BlackHoleEngine struct {
	unblock chan struct{}
	once    sync.Once
}

// NewBlackHoleEngine builds a BlackHoleEngine that hangs every Handle call
// until Unblock is called.
func NewBlackHoleEngine() *BlackHoleEngine {
	return &BlackHoleEngine{unblock: make(chan struct{})}
}

// Handle blocks until Unblock is called, then returns an error response as
// if the peer had finally spoken (real black holes are usually torn down
// by the caller's timeout well before this returns).
func (b *BlackHoleEngine) Handle(_ message.Node, _ message.RequestPayload) message.ResponsePayload {
	<-b.unblock
	return message.ErrorResponse("black hole: request dropped")
}

// Unblock releases every pending and future Handle call. Idempotent.
func (b *BlackHoleEngine) Unblock() {
	b.once.Do(func() { close(b.unblock) })
}

// RandomResponseEngine answers every request with a syntactically valid
// response of an arbitrary kind, unrelated to the request it received.
// It exercises Router.Call's ErrUnexpectedPayload rejection path: a
// well-formed response that simply doesn't match the request kind sent.
type RandomResponseEngine struct {
	mu   sync.Mutex
	next int
	pool []message.ResponsePayload
}

// NewRandomResponseEngine builds a RandomResponseEngine cycling through a
// fixed pool of response kinds, deterministically so tests can assert on
// the sequence.
func NewRandomResponseEngine() *RandomResponseEngine {
	return &RandomResponseEngine{
		pool: []message.ResponsePayload{
			message.VerifiedResponse(),
			message.ConnectedResponse(),
			message.NeighboursResponse(nil),
		},
	}
}

func (r *RandomResponseEngine) Handle(_ message.Node, _ message.RequestPayload) message.ResponsePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp := r.pool[r.next%len(r.pool)]
	r.next++
	return resp
}

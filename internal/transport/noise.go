package transport

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/flynn/noise"

	"github.com/kipa-net/kipa/internal/message"
)

// SecureTCP is a length-prefixed TCP Transport that additionally runs a
// Noise_XX handshake per connection before any frame is exchanged. This
// is a transport-layer confidentiality measure, independent of and beneath the
// message-level sealed envelope — even a passive network observer able to
// see TCP payloads cannot read frame contents, though only the envelope's
// per-message signature binds a payload to a specific public key.
type SecureTCP struct {
	staticPriv, staticPub []byte

	mu       sync.Mutex
	listener net.Listener
}

var noiseSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

// NewSecureTCP generates a fresh Noise static keypair for the transport
// session layer. This is independent of the node's KIPA identity key:
// Noise authenticates the transport session, SecureEnvelope authenticates
// the message.
func NewSecureTCP() (*SecureTCP, error) {
	kp, err := noiseSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("transport: generate noise keypair: %w", err)
	}
	return &SecureTCP{staticPriv: kp.Private, staticPub: kp.Public}, nil
}

func (t *SecureTCP) Listen(bindAddr string) (message.Address, error) {
	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return message.Address{}, err
	}
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
	return addrFromNet(l.Addr())
}

func (t *SecureTCP) SendRequest(ctx context.Context, peer message.Address, frame []byte, timeout time.Duration) ([]byte, error) {
	dialer := net.Dialer{}
	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", peer.String())
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", peer, err)
	}
	defer conn.Close()
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	secure, err := noiseInitiate(conn, t.staticPriv, t.staticPub)
	if err != nil {
		return nil, fmt.Errorf("transport: handshake: %w", err)
	}

	if err := writeFrame(secure, frame); err != nil {
		return nil, fmt.Errorf("transport: write: %w", err)
	}
	resp, err := readFrame(secure)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return resp, nil
}

func (t *SecureTCP) Serve(ctx context.Context, handler InboundHandler) error {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l == nil {
		return errors.New("transport: Listen must be called before Serve")
	}

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go t.serveConn(conn, handler)
	}
}

func (t *SecureTCP) serveConn(conn net.Conn, handler InboundHandler) {
	defer conn.Close()

	peerAddr, err := addrFromNet(conn.RemoteAddr())
	if err != nil {
		return
	}

	secure, err := noiseRespond(conn, t.staticPriv, t.staticPub)
	if err != nil {
		return
	}

	frame, err := readFrame(secure)
	if err != nil {
		return
	}

	replied := make(chan struct{}, 1)
	sink := replyFunc(func(resp []byte) error {
		defer close(replied)
		return writeFrame(secure, resp)
	})
	handler.HandleInbound(peerAddr, frame, sink)

	select {
	case <-replied:
	case <-time.After(30 * time.Second):
	}
}

func (t *SecureTCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		err := t.listener.Close()
		t.listener = nil
		return err
	}
	return nil
}

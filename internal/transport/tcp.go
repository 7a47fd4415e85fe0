package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/kipa-net/kipa/internal/message"
)

const maxFrameLen = 16 << 20 // 16 MiB, generous for a Neighbours reply

// TCP is the reference length-prefixed TCP Transport: a 4-byte big-endian
// length prefix ahead of each opaque frame. Each outbound call opens its
// own connection: two concurrent calls to the same peer use independent
// sessions.
type TCP struct {
	mu       sync.Mutex
	listener net.Listener
}

// NewTCP creates an unbound TCP transport; call Listen before Serve.
func NewTCP() *TCP {
	return &TCP{}
}

// Listen binds the accept socket. bindAddr follows net.Listen's "tcp"
// address syntax (e.g. ":4287" or "0.0.0.0:0").
func (t *TCP) Listen(bindAddr string) (message.Address, error) {
	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return message.Address{}, err
	}
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()

	return addrFromNet(l.Addr())
}

func addrFromNet(a net.Addr) (message.Address, error) {
	host, portStr, err := net.SplitHostPort(a.String())
	if err != nil {
		return message.Address{}, err
	}
	var port uint16
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return message.Address{}, err
	}
	return message.Address{Host: host, Port: port}, nil
}

func (t *TCP) SendRequest(ctx context.Context, peer message.Address, frame []byte, timeout time.Duration) ([]byte, error) {
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

	if err := writeFrame(conn, frame); err != nil {
		return nil, fmt.Errorf("transport: write: %w", err)
	}

	resp, err := readFrame(conn)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return resp, nil
}

func (t *TCP) Serve(ctx context.Context, handler InboundHandler) error {
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

func (t *TCP) serveConn(conn net.Conn, handler InboundHandler) {
	defer conn.Close()

	peerAddr, err := addrFromNet(conn.RemoteAddr())
	if err != nil {
		return
	}

	frame, err := readFrame(conn)
	if err != nil {
		return
	}

	replied := make(chan struct{}, 1)
	sink := replyFunc(func(resp []byte) error {
		defer close(replied)
		return writeFrame(conn, resp)
	})

	handler.HandleInbound(peerAddr, frame, sink)

	select {
	case <-replied:
	case <-time.After(30 * time.Second):
	}
}

type replyFunc func([]byte) error

func (f replyFunc) Reply(frame []byte) error { return f(frame) }

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		err := t.listener.Close()
		t.listener = nil
		return err
	}
	return nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 || n > maxFrameLen {
		return nil, fmt.Errorf("transport: invalid frame length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

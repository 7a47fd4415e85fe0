package transport

import (
	crand "crypto/rand"
	"io"

	"github.com/flynn/noise"
)

// secureSession wraps a raw connection with a pair of Noise cipher
// states, framing plaintext through Read/Write, as an internal detail of
// the transport package rather than a standalone exported type.
type secureSession struct {
	underlying io.ReadWriteCloser
	readCS     *noise.CipherState
	writeCS    *noise.CipherState
}

func (c *secureSession) Read(p []byte) (int, error) {
	buf, err := readFrame(c.underlying)
	if err != nil {
		return 0, err
	}
	pt, err := c.readCS.Decrypt(nil, nil, buf)
	if err != nil {
		return 0, err
	}
	if len(pt) > len(p) {
		copy(p, pt[:len(p)])
		return len(p), io.ErrShortBuffer
	}
	copy(p, pt)
	return len(pt), nil
}

func (c *secureSession) Write(p []byte) (int, error) {
	ct, err := c.writeCS.Encrypt(nil, nil, p)
	if err != nil {
		return 0, err
	}
	if err := writeFrame(c.underlying, ct); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *secureSession) Close() error { return c.underlying.Close() }

func noiseInitiate(underlying io.ReadWriteCloser, staticPriv, staticPub []byte) (*secureSession, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   noiseSuite,
		Random:        cryptoRandReader{},
		Pattern:       noise.HandshakeXX,
		Initiator:     true,
		StaticKeypair: noise.DHKey{Private: staticPriv, Public: staticPub},
	})
	if err != nil {
		return nil, err
	}

	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(underlying, msg1); err != nil {
		return nil, err
	}

	resp1, err := readFrame(underlying)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, resp1); err != nil {
		return nil, err
	}

	msg2, cs1, cs2, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(underlying, msg2); err != nil {
		return nil, err
	}

	return &secureSession{underlying: underlying, readCS: cs2, writeCS: cs1}, nil
}

func noiseRespond(underlying io.ReadWriteCloser, staticPriv, staticPub []byte) (*secureSession, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   noiseSuite,
		Random:        cryptoRandReader{},
		Pattern:       noise.HandshakeXX,
		Initiator:     false,
		StaticKeypair: noise.DHKey{Private: staticPriv, Public: staticPub},
	})
	if err != nil {
		return nil, err
	}

	msg1, err := readFrame(underlying)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, msg1); err != nil {
		return nil, err
	}

	resp1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(underlying, resp1); err != nil {
		return nil, err
	}

	msg2, err := readFrame(underlying)
	if err != nil {
		return nil, err
	}
	_, cs1, cs2, err := hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, err
	}

	return &secureSession{underlying: underlying, readCS: cs1, writeCS: cs2}, nil
}

// cryptoRandReader adapts crypto/rand.Reader under a local alias so this
// file's import doesn't collide with the "crypto/rand" import in noise.go.
type cryptoRandReader struct{}

func (cryptoRandReader) Read(p []byte) (int, error) {
	return crand.Read(p)
}

package transport

import (
	"context"
	"testing"
	"time"
)

func TestSecureTCP_SendRequestServeRoundTrip(t *testing.T) {
	server, err := NewSecureTCP()
	if err != nil {
		t.Fatalf("NewSecureTCP: %v", err)
	}
	addr, err := server.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	go server.Serve(ctx, echoHandler{})

	client, err := NewSecureTCP()
	if err != nil {
		t.Fatalf("NewSecureTCP: %v", err)
	}

	resp, err := client.SendRequest(context.Background(), addr, []byte("ping"), 2*time.Second)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if string(resp) != "echo:ping" {
		t.Fatalf("got %q, want %q", resp, "echo:ping")
	}
}

func TestSecureTCP_DistinctKeypairsPerInstance(t *testing.T) {
	a, err := NewSecureTCP()
	if err != nil {
		t.Fatalf("NewSecureTCP: %v", err)
	}
	b, err := NewSecureTCP()
	if err != nil {
		t.Fatalf("NewSecureTCP: %v", err)
	}
	if string(a.staticPub) == string(b.staticPub) {
		t.Fatal("expected two SecureTCP instances to generate distinct Noise static keys")
	}
}

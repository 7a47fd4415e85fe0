package message

import (
	"fmt"
	"net"
	"strconv"
)

// Address is a host (IPv4 or IPv6) plus a UDP/TCP port. It is mutable over
// a node's lifetime and is never trusted until verified.
type Address struct {
	Host string
	Port uint16
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ParseAddress parses a "host:port" string into an Address.
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("message: parse address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("message: parse address %q: %w", s, err)
	}
	return Address{Host: host, Port: uint16(port)}, nil
}

// Node is the tuple (PublicKey, Address). Equality is by PublicKey; the
// Address may be updated by later evidence.
type Node struct {
	Key     PublicKey
	Address Address
}

// Equal compares nodes by public key only.
func (n Node) Equal(other Node) bool {
	return n.Key.Equal(other.Key)
}

func (n Node) ID() NodeID {
	return n.Key.ID()
}

func (n Node) String() string {
	return fmt.Sprintf("Node{%s@%s}", n.Key.String()[:8], n.Address)
}

// Package keyspace implements the deterministic embedding of a public key
// into an N-dimensional toroidal metric space, and the distance/angle
// geometry over that space.
package keyspace

import (
	"math"

	"github.com/kipa-net/kipa/internal/message"
)

// Width is the per-axis width of the torus: W = 2, axes in [-1, 1].
const Width = 2.0

// Coord is a point in the N-dimensional key space, one component per axis,
// each in [-1, 1].
type Coord = message.KeySpaceCoord

// Dimensions is the network-wide constant N, defaulting to 2. It is a
// package variable rather than a compile-time constant so a network can
// be configured with a different N; every node in a network must agree on
// the same value.
var Dimensions = 2

// Of derives coord(k) = f(H(k)) by splitting the SHA-256 digest of k into
// Dimensions equal byte ranges, interpreting each as an unsigned integer,
// and linearly mapping it onto (-1, 1].
//
// H is SHA-256, so 32 bytes are split into Dimensions ranges; Dimensions
// must divide 32 evenly for every range to carry equal weight (the default
// of 2 gives two 16-byte ranges).
func Of(key message.PublicKey) Coord {
	return FromHash(key.Hash())
}

// FromHash derives a coordinate directly from a 32-byte hash, for callers
// that already have H(k).
func FromHash(h [32]byte) Coord {
	n := Dimensions
	if n <= 0 {
		n = 1
	}
	rangeLen := len(h) / n
	if rangeLen == 0 {
		rangeLen = 1
	}
	out := make(Coord, n)
	for i := 0; i < n; i++ {
		start := i * rangeLen
		end := start + rangeLen
		if i == n-1 {
			end = len(h)
		}
		if start >= len(h) {
			out[i] = 0
			continue
		}
		out[i] = mapRangeToAxis(h[start:end])
	}
	return out
}

// mapRangeToAxis interprets b as a big-endian unsigned integer and maps it
// uniformly onto (-1, 1].
func mapRangeToAxis(b []byte) float64 {
	var v uint64
	// Use at most 8 bytes of precision; KIPA's default N=2 over a 32-byte
	// hash gives 16-byte ranges, so we take the leading 8 bytes, which is
	// still uniform over the hash output.
	take := b
	if len(take) > 8 {
		take = take[:8]
	}
	for _, x := range take {
		v = v<<8 | uint64(x)
	}
	bits := 8 * len(take)
	max := math.Pow(2, float64(bits)) - 1
	if max <= 0 {
		return 0
	}
	// map [0, max] -> (-1, 1]; -1 and 1 are the same point on the torus,
	// so the lower end is folded onto 1.
	x := 2*(float64(v)/max) - 1
	if x <= -1 {
		return 1
	}
	return x
}

// Delta returns the toroidal per-axis delta between two coordinates:
// min(|Δ|, W - |Δ|).
func Delta(a, b float64) float64 {
	d := math.Abs(a - b)
	if wrapped := Width - d; wrapped < d {
		return wrapped
	}
	return d
}

// Distance returns the Euclidean distance over toroidal per-axis deltas
// between two coordinates. Coordinates of mismatched length are compared
// component-wise up to the shorter length; callers are expected to keep
// Dimensions fixed for a network's lifetime.
func Distance(a, b Coord) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := Delta(a[i], b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Angle returns the angle at the origin between v1 and v2, in [0, π].
// Undefined (zero-norm) inputs return π, i.e. "most diverse".
func Angle(v1, v2 Coord) float64 {
	n := len(v1)
	if len(v2) < n {
		n = len(v2)
	}
	var dot, n1, n2 float64
	for i := 0; i < n; i++ {
		dot += v1[i] * v2[i]
		n1 += v1[i] * v1[i]
		n2 += v2[i] * v2[i]
	}
	if n1 == 0 || n2 == 0 {
		return math.Pi
	}
	// One square root of the product of squared norms keeps cos exactly 1
	// for identical vectors.
	cos := dot / math.Sqrt(n1*n2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

package message

import (
	"github.com/google/uuid"
)

// ID is a 128-bit message identifier, generated fresh per outbound request
// and echoed verbatim in the matching response. It is implemented as a v4
// UUID, used here as a bare 128-bit nonce rather than for its RFC 4122
// semantics.
type ID [16]byte

// NewID generates a fresh random MessageId.
func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Equal reports whether two message ids are identical.
func (id ID) Equal(other ID) bool {
	return id == other
}

// Zero is the zero-value MessageId, never produced by NewID (uuid.New sets
// the version/variant bits), safe to use as a "no id yet" sentinel.
var Zero ID

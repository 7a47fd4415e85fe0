package message

// RequestKind tags the variant carried by a RequestPayload.
type RequestKind string

const (
	KindQueryNeighbours RequestKind = "QUERY_NEIGHBOURS"
	KindSearch          RequestKind = "SEARCH"
	KindConnect         RequestKind = "CONNECT"
	KindVerify          RequestKind = "VERIFY"
	KindListNeighbours  RequestKind = "LIST_NEIGHBOURS"
)

// ResponseKind tags the variant carried by a ResponsePayload.
type ResponseKind string

const (
	KindNeighbours   ResponseKind = "NEIGHBOURS"
	KindSearchResult ResponseKind = "SEARCH_RESULT"
	KindConnected    ResponseKind = "CONNECTED"
	KindVerified     ResponseKind = "VERIFIED"
	KindError        ResponseKind = "ERROR"
)

// KeySpaceCoord is exported here (rather than defined in package keyspace)
// so that message payloads, which are pure data, do not import the
// geometry package. package keyspace re-exports the type via an alias.
type KeySpaceCoord []float64

// RequestPayload is the tagged union of the five request variants. Exactly
// one of the typed fields is meaningful, selected by Kind: a "Kind string
// + optional fields" wire shape.
type RequestPayload struct {
	Kind RequestKind `json:"kind"`

	QueryNeighboursTarget KeySpaceCoord `json:"query_neighbours_target,omitempty"`
	SearchTargetKey       *PublicKey    `json:"search_target_key,omitempty"`
	ConnectInitial        *Node         `json:"connect_initial,omitempty"`
}

// ResponsePayload is the tagged union of the five response variants.
type ResponsePayload struct {
	Kind ResponseKind `json:"kind"`

	Neighbours   []Node `json:"neighbours,omitempty"`
	SearchResult *Node  `json:"search_result,omitempty"` // nil == None
	ErrorMessage string `json:"error_message,omitempty"`
}

func QueryNeighboursRequest(target KeySpaceCoord) RequestPayload {
	return RequestPayload{Kind: KindQueryNeighbours, QueryNeighboursTarget: target}
}

func SearchRequest(targetKey PublicKey) RequestPayload {
	return RequestPayload{Kind: KindSearch, SearchTargetKey: &targetKey}
}

func ConnectRequest(initial Node) RequestPayload {
	return RequestPayload{Kind: KindConnect, ConnectInitial: &initial}
}

func VerifyRequest() RequestPayload {
	return RequestPayload{Kind: KindVerify}
}

func ListNeighboursRequest() RequestPayload {
	return RequestPayload{Kind: KindListNeighbours}
}

func NeighboursResponse(nodes []Node) ResponsePayload {
	return ResponsePayload{Kind: KindNeighbours, Neighbours: nodes}
}

func SearchResultResponse(found *Node) ResponsePayload {
	return ResponsePayload{Kind: KindSearchResult, SearchResult: found}
}

func ConnectedResponse() ResponsePayload {
	return ResponsePayload{Kind: KindConnected}
}

func VerifiedResponse() ResponsePayload {
	return ResponsePayload{Kind: KindVerified}
}

func ErrorResponse(msg string) ResponsePayload {
	return ResponsePayload{Kind: KindError, ErrorMessage: msg}
}

package domain

// NetworkID identifies a networked object within its owner's namespace.
type NetworkID uint32

// EntityID identifies a local entity replica of a networked object.
type EntityID string

// NetworkTopic separates world and media networks.
type NetworkTopic string

const (
	TopicWorld NetworkTopic = "world"
	TopicMedia NetworkTopic = "media"
)

// NetworkObject is the ownership and authority record of one networked entity. Authority is
// peer scoped, ownership is user scoped.
type NetworkObject struct {
	Entity          EntityID  `json:"entity_id"`
	NetworkID       NetworkID `json:"network_id"`
	OwnerID         UserID    `json:"owner_id"`
	OwnerPeer       PeerID    `json:"owner_peer"`
	AuthorityPeerID PeerID    `json:"authority_peer_id"`
}

// Peer is a peer known to the server network.
type Peer struct {
	PeerID    PeerID
	UserID    UserID
	PeerIndex int
}

// PeerEventKind is the kind of a peer event.
type PeerEventKind string

const (
	PeerJoined PeerEventKind = "peer_joined"
	PeerLeft   PeerEventKind = "peer_left"
)

// PeerEvent is dispatched when a peer joins or leaves the server network.
type PeerEvent struct {
	Kind      PeerEventKind
	PeerID    PeerID
	UserID    UserID
	NetworkID string
	PeerIndex int
}

// TagChange reports a recomputed authority or ownership tag of an entity.
type TagChange struct {
	Entity    EntityID
	Authority bool
	Owned     bool
}

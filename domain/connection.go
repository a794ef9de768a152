package domain

// UserID identifies a user account.
type UserID string

// PeerID identifies one connected transport endpoint. A user may own several peers.
type PeerID string

// Identity is the result of authenticating a connection token.
type Identity struct {
	IdentityProviderID string
	UserID             UserID
}

// ConnectionRequest is the validated query of an inbound peer connection. Empty strings in the
// raw query are normalized to absent (nil).
type ConnectionRequest struct {
	Token      string
	PeerID     PeerID
	LocationID *string
	ChannelID  *string
	RoomCode   *string
	InstanceID *string
	Headers    Headers
}

// IsChannel reports whether the connection targets a media channel session.
func (r ConnectionRequest) IsChannel() bool {
	return r.ChannelID != nil
}

// AdmissionRequest is what the lifecycle manager needs to ensure or update the instance for one
// connection (or a provisioning notice when UserID is empty).
type AdmissionRequest struct {
	SceneID *string
	UserID  UserID
	Headers Headers
}

// Admission is the gatekeeper's verdict for one connection. Reason is logged, never sent.
type Admission struct {
	Admitted   bool
	InstanceID string
	Reason     string
}

// PeerDisconnect describes a peer leaving the instance.
type PeerDisconnect struct {
	InstanceID string
	PeerID     PeerID
	UserID     UserID
	Headers    Headers
}

package domain

import "time"

// Record type names, used as Redis key prefixes, REST paths and event topics.
const (
	RecordInstance               = "instance"
	RecordLocation               = "location"
	RecordChannel                = "channel"
	RecordChannelUser            = "channel-user"
	RecordUser                   = "user"
	RecordIdentityProvider       = "identity-provider"
	RecordInstanceAttendance     = "instance-attendance"
	RecordInstanceAuthorizedUser = "instance-authorized-user"
	RecordLocationBan            = "location-ban"
	RecordStaticResource         = "static-resource"
	RecordUserKick               = "user-kick"
	RecordInstanceServerLoad     = "instanceserver-load"
)

// InstanceRecord is the persisted record of one running session. It is created by the
// provisioning step upstream and only adopted, patched and ended by the instance server.
type InstanceRecord struct {
	ID           string     `json:"id"`
	IPAddress    string     `json:"ipAddress"`
	RoomCode     string     `json:"roomCode"`
	Ended        bool       `json:"ended"`
	Assigned     bool       `json:"assigned"`
	AssignedAt   *time.Time `json:"assignedAt"`
	PodName      string     `json:"podName"`
	CurrentUsers int        `json:"currentUsers"`
	LocationID   *string    `json:"locationId"`
	ChannelID    *string    `json:"channelId"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsMedia reports whether the instance hosts a media (channel) session rather than a world.
func (r InstanceRecord) IsMedia() bool {
	return r.ChannelID != nil
}

// Location is a place in the world with a scene.
type Location struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	SceneID             string `json:"sceneId"`
	MaxUsersPerInstance int    `json:"maxUsersPerInstance"`
}

// Channel is a media (voice/video) channel. InstanceID is the media instance hosting it.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InstanceID string `json:"instanceId"`
}

// ChannelUser is the membership of a user in a channel.
type ChannelUser struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`
	UserID    UserID `json:"userId"`
}

// User is an account.
type User struct {
	ID          UserID `json:"id"`
	Name        string `json:"name"`
	AcceptedTOS bool   `json:"acceptedTOS"`
	IsGuest     bool   `json:"isGuest"`
}

// IdentityProvider binds a login identity to a user. Tokens carry its id as subject.
type IdentityProvider struct {
	ID     string `json:"id"`
	UserID UserID `json:"userId"`
	Type   string `json:"type"`
}

// InstanceAttendance records that a peer of a user attended an instance.
type InstanceAttendance struct {
	ID         string `json:"id"`
	InstanceID string `json:"instanceId"`
	UserID     UserID `json:"userId"`
	PeerID     PeerID `json:"peerId"`
	IsChannel  bool   `json:"isChannel"`
	Ended      bool   `json:"ended"`
}

// InstanceAuthorizedUser restricts an instance to an allow list when any exist for it.
type InstanceAuthorizedUser struct {
	ID         string `json:"id"`
	InstanceID string `json:"instanceId"`
	UserID     UserID `json:"userId"`
}

// LocationBan bans a user from a location.
type LocationBan struct {
	ID         string `json:"id"`
	UserID     UserID `json:"userId"`
	LocationID string `json:"locationId"`
}

// StaticResource is a stored asset; scenes are static resources referenced by Location.SceneID.
type StaticResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UserKick asks every instance server to drop a user.
type UserKick struct {
	ID         string `json:"id"`
	UserID     UserID `json:"userId"`
	InstanceID string `json:"instanceId"`
	Duration   string `json:"duration"`
}

// InstanceServerLoad is the provisioning notice telling a pod to preload an instance.
type InstanceServerLoad struct {
	ID         string `json:"id"`
	IPAddress  string `json:"ipAddress"`
	PodName    string `json:"podName"`
	LocationID string `json:"locationId"`
	SceneID    string `json:"sceneId"`
}

package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// DefaultDisconnectInitWait is how long a disconnect waits for an instance that is still initializing.
const DefaultDisconnectInitWait = time.Second

// Gatekeeper validates peer connections, admits them through the lifecycle manager and reacts to
// disconnects, kicks and channel membership removals. Refusals are logged, never sent to the peer.
type Gatekeeper struct {
	lifecycle          *LifecycleManager
	authenticator      interfaces.Authenticator
	records            Records
	network            *ServerNetwork
	state              *InstanceState
	disconnectInitWait time.Duration
	logger             log.Logger
}

// NewGatekeeper creates a Gatekeeper. disconnectInitWait <= 0 selects DefaultDisconnectInitWait.
// Panics on a missing collaborator.
func NewGatekeeper(
	lifecycle *LifecycleManager,
	authenticator interfaces.Authenticator,
	records Records,
	network *ServerNetwork,
	state *InstanceState,
	disconnectInitWait time.Duration,
	logger log.Logger,
) *Gatekeeper {
	if disconnectInitWait <= 0 {
		disconnectInitWait = DefaultDisconnectInitWait
	}
	return &Gatekeeper{
		lifecycle:          helpers.NilPanic(lifecycle, "service.gatekeeper.go: lifecycle is required"),
		authenticator:      helpers.NilPanic(authenticator, "service.gatekeeper.go: authenticator is required"),
		records:            records.mustBeComplete("service.gatekeeper.go"),
		network:            helpers.NilPanic(network, "service.gatekeeper.go: network is required"),
		state:              helpers.NilPanic(state, "service.gatekeeper.go: instance state is required"),
		disconnectInitWait: disconnectInitWait,
		logger:             log.With(helpers.NilPanic(logger, "service.gatekeeper.go: logger is required"), "component", "gatekeeper"),
	}
}

func (g *Gatekeeper) refuse(req domain.ConnectionRequest, reason string, err error) domain.Admission {
	keyvals := []interface{}{"msg", "connection refused", "reason", reason, "peer_id", req.PeerID}
	if err != nil {
		keyvals = append(keyvals, "err", err)
	}
	level.Warn(g.logger).Log(keyvals...)
	return domain.Admission{Reason: reason}
}

// OnConnect admits a connection to the instance of this process. On success the peer is added to
// the network, joins the instance group and gets an attendance record.
func (g *Gatekeeper) OnConnect(ctx context.Context, transport interfaces.Transport, req domain.ConnectionRequest) domain.Admission {
	if req.Token == "" || req.PeerID == "" {
		return g.refuse(req, "token and peer id are required", nil)
	}

	identity, err := g.authenticator.Authenticate(ctx, req.Token)
	if err != nil {
		return g.refuse(req, "not authenticated", err)
	}
	user, err := g.records.Users.Get(ctx, string(identity.UserID), req.Headers)
	if err != nil {
		return g.refuse(req, "user lookup failed", err)
	}
	if req.IsChannel() && !user.AcceptedTOS {
		return g.refuse(req, "terms of service not accepted", nil)
	}

	level.Info(g.logger).Log(
		"msg", "user joining",
		"user_id", identity.UserID,
		"location_id", helpers.Value(req.LocationID),
		"channel_id", helpers.Value(req.ChannelID),
		"room_code", helpers.Value(req.RoomCode),
	)

	if g.lifecycle.RestartForNewSession(ctx, req) {
		return g.refuse(req, "restarting for another session", nil)
	}
	if instance, ok := g.state.Instance(); ok {
		if reason := wrongSession(instance, req); reason != "" {
			return g.refuse(req, reason, nil)
		}
	}

	var sceneID *string
	if req.LocationID != nil {
		location, err := g.records.Locations.Get(ctx, *req.LocationID, req.Headers)
		if err != nil {
			return g.refuse(req, "location lookup failed", err)
		}
		sceneID = helpers.OptionalString(location.SceneID)
	}

	if err := g.lifecycle.Admit(ctx, domain.AdmissionRequest{SceneID: sceneID, UserID: identity.UserID, Headers: req.Headers}); err != nil {
		return g.refuse(req, "admission failed", err)
	}

	snap := g.state.Snapshot()
	if snap.Instance == nil {
		return g.refuse(req, "instance was shut down", nil)
	}
	instanceID := snap.Instance.ID
	peer, err := g.network.AddPeer(req.PeerID, identity.UserID, transport)
	if err != nil {
		return g.refuse(req, "peer rejected by network", err)
	}
	g.network.Join(InstanceGroup(instanceID), req.PeerID)

	if _, err := g.records.Attendance.Create(ctx, domain.InstanceAttendance{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		UserID:     identity.UserID,
		PeerID:     req.PeerID,
		IsChannel:  snap.IsMedia,
	}, req.Headers); err != nil {
		level.Warn(g.logger).Log("msg", "could not record attendance", "peer_id", req.PeerID, "err", err)
	}

	level.Info(g.logger).Log("msg", "connection admitted", "instance_id", instanceID, "user_id", identity.UserID, "peer_id", req.PeerID, "peer_index", peer.PeerIndex)
	return domain.Admission{Admitted: true, InstanceID: instanceID}
}

// wrongSession returns why req does not belong to instance, "" when it does. Only fields present
// in req are compared.
func wrongSession(instance domain.InstanceRecord, req domain.ConnectionRequest) string {
	if req.LocationID != nil && !helpers.EqualOptional(instance.LocationID, req.LocationID) {
		return "wrong location id"
	}
	if req.ChannelID != nil && !helpers.EqualOptional(instance.ChannelID, req.ChannelID) {
		return "wrong channel id"
	}
	if req.RoomCode != nil && instance.RoomCode != *req.RoomCode {
		return "wrong room code"
	}
	return ""
}

// OnDisconnect attributes a closed connection to its user, even with an expired token, and hands
// it to the lifecycle manager.
func (g *Gatekeeper) OnDisconnect(ctx context.Context, transport interfaces.Transport, req domain.ConnectionRequest) error {
	if req.Token == "" {
		return nil
	}

	identity, err := g.authenticator.Authenticate(ctx, req.Token)
	if err != nil {
		if !IsTokenExpired(err) {
			return err
		}
		identity, err = g.authenticator.IdentityFromExpired(ctx, req.Token)
		if err != nil {
			return err
		}
	}
	user, err := g.records.Users.Get(ctx, string(identity.UserID), req.Headers)
	if err != nil {
		return recordError("get user", err)
	}

	instanceID := g.state.InstanceID()
	if instanceID == "" {
		level.Info(g.logger).Log("msg", "no instance on disconnect, waiting for initialization", "user_id", user.ID)
		timer := time.NewTimer(g.disconnectInitWait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		instanceID = g.state.InstanceID()
	}
	if instanceID == "" {
		return nil
	}
	if _, err := g.records.Instances.Get(ctx, instanceID, req.Headers); err != nil {
		level.Warn(g.logger).Log("msg", "could not get instance on disconnect", "instance_id", instanceID, "err", err)
		return nil
	}

	// A reconnect with the same peer id replaced the transport; the new connection owns the peer.
	if current, ok := g.network.Transport(req.PeerID); ok && transport != nil && current.ID() != transport.ID() {
		level.Debug(g.logger).Log("msg", "stale disconnect ignored", "peer_id", req.PeerID)
		return nil
	}

	level.Info(g.logger).Log("msg", "user disconnected", "instance_id", instanceID, "user_id", user.ID, "peer_id", req.PeerID)
	return g.lifecycle.OnPeerDisconnect(ctx, domain.PeerDisconnect{
		InstanceID: instanceID,
		PeerID:     req.PeerID,
		UserID:     user.ID,
		Headers:    req.Headers,
	})
}

// OnUserKicked drops the first peer of a kicked user from the world network.
func (g *Gatekeeper) OnUserKicked(ctx context.Context, kick domain.UserKick) {
	if g.network.Topic() != domain.TopicWorld {
		return
	}
	if current := g.state.InstanceID(); kick.InstanceID != "" && kick.InstanceID != current {
		return
	}
	peers := g.network.PeersForUser(kick.UserID)
	if len(peers) == 0 {
		return
	}
	peer := peers[0]
	transport, ok := g.network.Transport(peer.PeerID)
	if !ok {
		return
	}

	level.Info(g.logger).Log("msg", "kicking user", "user_id", kick.UserID, "peer_id", peer.PeerID)
	g.network.RemovePeer(peer.PeerID)
	_ = transport.Close()
}

// OnChannelUserRemoved drops a user removed from the channel of this media instance.
func (g *Gatekeeper) OnChannelUserRemoved(ctx context.Context, removed domain.ChannelUser) error {
	snap := g.state.Snapshot()
	if !snap.IsMedia || snap.Instance == nil || snap.Instance.ChannelID == nil {
		return nil
	}
	page, err := g.records.Channels.Find(ctx, domain.Query{"id": *snap.Instance.ChannelID, domain.QueryLimit: 1}, nil)
	if err != nil {
		return NewTransientRecordError("find channel", err)
	}
	if page.Total == 0 {
		return nil
	}

	peers := g.network.PeersForUser(removed.UserID)
	if len(peers) == 0 {
		return nil
	}
	peer := peers[0]
	if transport, ok := g.network.Transport(peer.PeerID); ok {
		_ = transport.Close()
	}
	g.network.RemovePeer(peer.PeerID)
	level.Info(g.logger).Log("msg", "channel user removed", "user_id", removed.UserID, "peer_id", peer.PeerID)
	return nil
}

// Subscribe registers the gatekeeper and the lifecycle manager on record events. The returned func
// releases every subscription.
func (g *Gatekeeper) Subscribe(events interfaces.RecordEvents) (unsubscribe func()) {
	unsubscribes := []func(){
		events.Subscribe(domain.RecordUserKick, interfaces.EventCreated, func(ctx context.Context, payload []byte) {
			var kick domain.UserKick
			if err := json.Unmarshal(payload, &kick); err != nil {
				level.Warn(g.logger).Log("msg", "bad user-kick event", "err", err)
				return
			}
			g.OnUserKicked(ctx, kick)
		}),
		events.Subscribe(domain.RecordChannelUser, interfaces.EventRemoved, func(ctx context.Context, payload []byte) {
			var removed domain.ChannelUser
			if err := json.Unmarshal(payload, &removed); err != nil {
				level.Warn(g.logger).Log("msg", "bad channel-user event", "err", err)
				return
			}
			if err := g.OnChannelUserRemoved(ctx, removed); err != nil {
				level.Warn(g.logger).Log("msg", "channel user removal failed", "err", err)
			}
		}),
		events.Subscribe(domain.RecordInstanceServerLoad, interfaces.EventPatched, func(ctx context.Context, payload []byte) {
			var load domain.InstanceServerLoad
			if err := json.Unmarshal(payload, &load); err != nil {
				level.Warn(g.logger).Log("msg", "bad instanceserver-load event", "err", err)
				return
			}
			if err := g.lifecycle.HandleInstanceServerLoad(ctx, load); err != nil {
				level.Warn(g.logger).Log("msg", "instance preload failed", "instance_id", load.ID, "err", err)
			}
		}),
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, u := range unsubscribes {
				u()
			}
		})
	}
}

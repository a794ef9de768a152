package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// InstanceGroup returns the broadcast group name of an instance.
func InstanceGroup(instanceID string) string {
	return "instanceIds/" + instanceID
}

// ServerNetwork is the in-process view of the peers connected to this instance: peers, their
// transports, broadcast groups and peer event subscribers. Index 0 is the host peer, which
// stands for the server itself.
type ServerNetwork struct {
	logger log.Logger

	mu            sync.RWMutex
	topic         domain.NetworkTopic
	hostPeerID    domain.PeerID
	hostIDs       map[domain.NetworkTopic]string
	peers         map[domain.PeerID]domain.Peer
	transports    map[domain.PeerID]interfaces.Transport
	groups        map[string]map[domain.PeerID]struct{}
	nextPeerIndex int
	subscribers   map[int]func(domain.PeerEvent)
	nextSubID     int
}

// NewServerNetwork creates an uninitialized network.
func NewServerNetwork(logger log.Logger) *ServerNetwork {
	return &ServerNetwork{
		logger:      log.With(helpers.NilPanic(logger, "service.network.go: logger is required"), "component", "server_network"),
		hostIDs:     make(map[domain.NetworkTopic]string),
		peers:       make(map[domain.PeerID]domain.Peer),
		transports:  make(map[domain.PeerID]interfaces.Transport),
		groups:      make(map[string]map[domain.PeerID]struct{}),
		subscribers: make(map[int]func(domain.PeerEvent)),
	}
}

// Initialize sets the network topic and adds the host peer (index 0) whose user id is the
// instance id. Re-initializing drops every peer.
func (n *ServerNetwork) Initialize(topic domain.NetworkTopic, hostPeerID domain.PeerID, instanceID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetLocked()
	n.topic = topic
	n.hostPeerID = hostPeerID
	n.hostIDs[topic] = instanceID
	n.peers[hostPeerID] = domain.Peer{PeerID: hostPeerID, UserID: domain.UserID(instanceID), PeerIndex: 0}
	n.nextPeerIndex = 1
	level.Info(n.logger).Log("msg", "network initialized", "topic", topic, "host_peer", hostPeerID, "instance_id", instanceID)
}

// Initialized reports whether Initialize ran since the last Reset.
func (n *ServerNetwork) Initialized() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hostPeerID != ""
}

// Topic returns the network topic ("" before Initialize).
func (n *ServerNetwork) Topic() domain.NetworkTopic {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.topic
}

// HostPeerID returns the host peer id ("" before Initialize).
func (n *ServerNetwork) HostPeerID() domain.PeerID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hostPeerID
}

// HostID returns the instance id registered as host for topic.
func (n *ServerNetwork) HostID(topic domain.NetworkTopic) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	id, ok := n.hostIDs[topic]
	return id, ok
}

// AddPeer registers a peer with its transport and dispatches "peer joined". A peer id that is
// already known keeps its index and gets the new transport.
func (n *ServerNetwork) AddPeer(peerID domain.PeerID, userID domain.UserID, transport interfaces.Transport) (domain.Peer, error) {
	n.mu.Lock()
	if n.hostPeerID == "" {
		n.mu.Unlock()
		return domain.Peer{}, NewInternalServerError("network is not initialized", nil)
	}
	if peerID == n.hostPeerID {
		n.mu.Unlock()
		return domain.Peer{}, NewConflictError(fmt.Sprintf("peer %s is the host peer", peerID), nil)
	}
	peer, ok := n.peers[peerID]
	if !ok {
		peer = domain.Peer{PeerID: peerID, UserID: userID, PeerIndex: n.nextPeerIndex}
		n.nextPeerIndex++
	}
	peer.UserID = userID
	n.peers[peerID] = peer
	if transport != nil {
		n.transports[peerID] = transport
	}
	event := n.peerEventLocked(domain.PeerJoined, peer)
	n.mu.Unlock()

	n.dispatch(event)
	return peer, nil
}

// RemovePeer removes a peer, drops it from every group and dispatches "peer left".
// Returns false when the peer is unknown or is the host.
func (n *ServerNetwork) RemovePeer(peerID domain.PeerID) bool {
	n.mu.Lock()
	peer, ok := n.peers[peerID]
	if !ok || peerID == n.hostPeerID {
		n.mu.Unlock()
		return false
	}
	delete(n.peers, peerID)
	delete(n.transports, peerID)
	for _, members := range n.groups {
		delete(members, peerID)
	}
	event := n.peerEventLocked(domain.PeerLeft, peer)
	n.mu.Unlock()

	n.dispatch(event)
	return true
}

// Peer returns a known peer.
func (n *ServerNetwork) Peer(peerID domain.PeerID) (domain.Peer, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	peer, ok := n.peers[peerID]
	return peer, ok
}

// PeersForUser returns the user's peers ordered by peer index.
func (n *ServerNetwork) PeersForUser(userID domain.UserID) []domain.Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var peers []domain.Peer
	for id, peer := range n.peers {
		if peer.UserID == userID && id != n.hostPeerID {
			peers = append(peers, peer)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].PeerIndex < peers[j].PeerIndex })
	return peers
}

// Transport returns the transport of a peer.
func (n *ServerNetwork) Transport(peerID domain.PeerID) (interfaces.Transport, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	t, ok := n.transports[peerID]
	return t, ok
}

// PeerCount returns the number of connected peers, the host peer excluded.
func (n *ServerNetwork) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := len(n.peers)
	if _, ok := n.peers[n.hostPeerID]; ok {
		count--
	}
	return count
}

// Join adds a peer to a broadcast group.
func (n *ServerNetwork) Join(group string, peerID domain.PeerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	members, ok := n.groups[group]
	if !ok {
		members = make(map[domain.PeerID]struct{})
		n.groups[group] = members
	}
	members[peerID] = struct{}{}
}

// Leave removes a peer from a broadcast group.
func (n *ServerNetwork) Leave(group string, peerID domain.PeerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if members, ok := n.groups[group]; ok {
		delete(members, peerID)
		if len(members) == 0 {
			delete(n.groups, group)
		}
	}
}

// Members returns the peers of a group.
func (n *ServerNetwork) Members(group string) []domain.PeerID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	members := make([]domain.PeerID, 0, len(n.groups[group]))
	for id := range n.groups[group] {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// Broadcast sends msg to every member of group that has a transport. Send errors are logged.
func (n *ServerNetwork) Broadcast(ctx context.Context, group string, msg []byte) int {
	n.mu.RLock()
	targets := make([]interfaces.Transport, 0, len(n.groups[group]))
	for id := range n.groups[group] {
		if t, ok := n.transports[id]; ok {
			targets = append(targets, t)
		}
	}
	n.mu.RUnlock()

	sent := 0
	for _, t := range targets {
		if err := t.Send(ctx, msg); err != nil {
			level.Warn(n.logger).Log("msg", "broadcast send failed", "group", group, "transport", t.ID(), "err", err)
			continue
		}
		sent++
	}
	return sent
}

// Subscribe registers fn for peer events. The returned func unsubscribes; it is idempotent.
func (n *ServerNetwork) Subscribe(fn func(domain.PeerEvent)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextSubID
	n.nextSubID++
	n.subscribers[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, id)
			n.mu.Unlock()
		})
	}
}

// Reset closes every peer transport and returns the network to its uninitialized state.
// Subscribers are kept.
func (n *ServerNetwork) Reset() {
	n.mu.Lock()
	transports := make([]interfaces.Transport, 0, len(n.transports))
	for _, t := range n.transports {
		transports = append(transports, t)
	}
	n.resetLocked()
	n.mu.Unlock()

	for _, t := range transports {
		_ = t.Close()
	}
}

func (n *ServerNetwork) resetLocked() {
	n.topic = ""
	n.hostPeerID = ""
	n.hostIDs = make(map[domain.NetworkTopic]string)
	n.peers = make(map[domain.PeerID]domain.Peer)
	n.transports = make(map[domain.PeerID]interfaces.Transport)
	n.groups = make(map[string]map[domain.PeerID]struct{})
	n.nextPeerIndex = 0
}

func (n *ServerNetwork) peerEventLocked(kind domain.PeerEventKind, peer domain.Peer) domain.PeerEvent {
	return domain.PeerEvent{
		Kind:      kind,
		PeerID:    peer.PeerID,
		UserID:    peer.UserID,
		NetworkID: n.hostIDs[n.topic],
		PeerIndex: peer.PeerIndex,
	}
}

func (n *ServerNetwork) dispatch(event domain.PeerEvent) {
	n.mu.RLock()
	ids := make([]int, 0, len(n.subscribers))
	for id := range n.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(domain.PeerEvent), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, n.subscribers[id])
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

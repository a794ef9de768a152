package service

import (
	"context"
	"errors"
	"testing"

	"myinstanceserver/domain"
	"myinstanceserver/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(id string) *mock.TransportMock {
	return &mock.TransportMock{IDFunc: func() string { return id }}
}

func TestServerNetwork_InitializeAddsHostPeer(t *testing.T) {
	n := NewServerNetwork(log.NewNopLogger())
	assert.False(t, n.Initialized())

	n.Initialize(domain.TopicWorld, "host", "inst-1")

	assert.True(t, n.Initialized())
	assert.Equal(t, domain.TopicWorld, n.Topic())
	assert.Equal(t, domain.PeerID("host"), n.HostPeerID())
	hostID, ok := n.HostID(domain.TopicWorld)
	require.True(t, ok)
	assert.Equal(t, "inst-1", hostID)

	host, ok := n.Peer("host")
	require.True(t, ok)
	assert.Equal(t, domain.Peer{PeerID: "host", UserID: "inst-1", PeerIndex: 0}, host)
	assert.Equal(t, 0, n.PeerCount())
}

func TestServerNetwork_AddRemovePeer(t *testing.T) {
	n := NewServerNetwork(log.NewNopLogger())

	_, err := n.AddPeer("p1", "u1", nil)
	require.Error(t, err)

	n.Initialize(domain.TopicWorld, "host", "inst-1")

	var events []domain.PeerEvent
	unsubscribe := n.Subscribe(func(e domain.PeerEvent) { events = append(events, e) })

	p1, err := n.AddPeer("p1", "u1", newTestTransport("t1"))
	require.NoError(t, err)
	assert.Equal(t, 1, p1.PeerIndex)
	p2, err := n.AddPeer("p2", "u1", newTestTransport("t2"))
	require.NoError(t, err)
	assert.Equal(t, 2, p2.PeerIndex)

	again, err := n.AddPeer("p1", "u1", newTestTransport("t1b"))
	require.NoError(t, err)
	assert.Equal(t, 1, again.PeerIndex)
	tr, ok := n.Transport("p1")
	require.True(t, ok)
	assert.Equal(t, "t1b", tr.ID())

	_, err = n.AddPeer("host", "u1", nil)
	assert.True(t, IsConflictError(err))

	assert.Equal(t, 2, n.PeerCount())
	assert.Equal(t, []domain.Peer{p1, p2}, n.PeersForUser("u1"))

	assert.True(t, n.RemovePeer("p1"))
	assert.False(t, n.RemovePeer("p1"))
	assert.False(t, n.RemovePeer("host"))
	assert.Equal(t, 1, n.PeerCount())

	unsubscribe()
	unsubscribe()
	assert.True(t, n.RemovePeer("p2"))

	require.Len(t, events, 4)
	assert.Equal(t, domain.PeerJoined, events[0].Kind)
	assert.Equal(t, "inst-1", events[0].NetworkID)
	assert.Equal(t, domain.PeerLeft, events[3].Kind)
	assert.Equal(t, domain.PeerID("p1"), events[3].PeerID)
	assert.Equal(t, domain.UserID("u1"), events[3].UserID)
}

func TestServerNetwork_GroupsAndBroadcast(t *testing.T) {
	n := NewServerNetwork(log.NewNopLogger())
	n.Initialize(domain.TopicMedia, "host", "inst-1")

	t1 := newTestTransport("t1")
	t2 := newTestTransport("t2")
	t2.SendFunc = func(ctx context.Context, msg []byte) error { return errors.New("closed") }
	_, _ = n.AddPeer("p1", "u1", t1)
	_, _ = n.AddPeer("p2", "u2", t2)

	group := InstanceGroup("inst-1")
	assert.Equal(t, "instanceIds/inst-1", group)
	n.Join(group, "p1")
	n.Join(group, "p2")
	assert.Equal(t, []domain.PeerID{"p1", "p2"}, n.Members(group))

	assert.Equal(t, 1, n.Broadcast(context.Background(), group, []byte("hello")))
	require.Len(t, t1.SendCalls(), 1)
	assert.Equal(t, []byte("hello"), t1.SendCalls()[0].Msg)

	n.Leave(group, "p2")
	assert.Equal(t, []domain.PeerID{"p1"}, n.Members(group))

	n.RemovePeer("p1")
	assert.Empty(t, n.Members(group))
}

func TestServerNetwork_ResetClosesTransports(t *testing.T) {
	n := NewServerNetwork(log.NewNopLogger())
	n.Initialize(domain.TopicWorld, "host", "inst-1")
	t1 := newTestTransport("t1")
	_, _ = n.AddPeer("p1", "u1", t1)

	n.Reset()

	assert.Len(t, t1.CloseCalls(), 1)
	assert.False(t, n.Initialized())
	assert.Equal(t, 0, n.PeerCount())
	_, ok := n.HostID(domain.TopicWorld)
	assert.False(t, ok)
}

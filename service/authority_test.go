package service

import (
	"math/rand"
	"sync"
	"testing"

	"myinstanceserver/domain"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkObjectTable_CreateNetworkID(t *testing.T) {
	table := NewNetworkObjectTable()
	const n = 100
	for i := 1; i <= n; i++ {
		assert.Equal(t, domain.NetworkID(i), table.CreateNetworkID())
	}
}

func TestNetworkObjectTable_CreateNetworkIDConcurrent(t *testing.T) {
	table := NewNetworkObjectTable()
	const workers, perWorker = 8, 50

	var (
		mu   sync.Mutex
		seen = make(map[domain.NetworkID]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := table.CreateNetworkID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for i := 1; i <= workers*perWorker; i++ {
		assert.True(t, seen[domain.NetworkID(i)])
	}
}

func TestNetworkObjectTable_Register(t *testing.T) {
	tests := []struct {
		name      string
		entity    domain.EntityID
		authority domain.PeerID
		check     func(error) bool
	}{
		{name: "empty_entity", entity: "", authority: "p1", check: IsBadParameterError},
		{name: "empty_authority", entity: "e2", authority: "", check: IsBadParameterError},
		{name: "duplicate", entity: "e1", authority: "p1", check: IsConflictError},
	}

	table := NewNetworkObjectTable()
	require.NoError(t, table.Register("e1", "u1", "p1", "p1", 1))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := table.Register(tt.entity, "u1", "p1", tt.authority, 2)
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}

	obj, ok := table.Get("e1")
	require.True(t, ok)
	assert.Equal(t, domain.NetworkObject{Entity: "e1", NetworkID: 1, OwnerID: "u1", OwnerPeer: "p1", AuthorityPeerID: "p1"}, obj)
}

func TestNetworkObjectTable_TagsFollowChanges(t *testing.T) {
	table := NewNetworkObjectTable()
	table.SetLocalIdentity("p1", "u1")

	var changes []domain.TagChange
	unsubscribe := table.SubscribeTags(func(c domain.TagChange) { changes = append(changes, c) })
	defer unsubscribe()

	require.NoError(t, table.Register("e1", "u1", "p1", "p1", 1))
	assert.True(t, table.IsAuthority("e1"))
	assert.True(t, table.IsOwned("e1"))

	_, err := table.TransferAuthority("e1", "p2")
	require.NoError(t, err)
	assert.False(t, table.IsAuthority("e1"))
	assert.True(t, table.IsOwned("e1"))

	// Same user connected through a second peer.
	table.SetLocalIdentity("p2", "u1")
	assert.True(t, table.IsAuthority("e1"))

	_, err = table.TransferOwnership("e1", "u2", "p3")
	require.NoError(t, err)
	assert.False(t, table.IsAuthority("e1"))
	assert.False(t, table.IsOwned("e1"))

	assert.Equal(t, []domain.TagChange{
		{Entity: "e1", Authority: true, Owned: true},
		{Entity: "e1", Authority: false, Owned: true},
		{Entity: "e1", Authority: true, Owned: true},
		{Entity: "e1", Authority: false, Owned: false},
	}, changes)

	assert.False(t, table.IsAuthority("missing"))
	assert.False(t, table.IsOwned("missing"))
}

func TestNetworkObjectTable_TransferAuthorityKeepsOwner(t *testing.T) {
	table := NewNetworkObjectTable()
	require.NoError(t, table.Register("e1", "u1", "p1", "p1", 1))

	obj, err := table.TransferAuthority("e1", "p9")
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("p9"), obj.AuthorityPeerID)
	assert.Equal(t, domain.UserID("u1"), obj.OwnerID)
	assert.Equal(t, domain.PeerID("p1"), obj.OwnerPeer)

	_, err = table.TransferAuthority("e1", "")
	assert.True(t, IsBadParameterError(err))
	_, err = table.TransferAuthority("missing", "p1")
	assert.True(t, IsEntityNotFoundError(err))
	_, err = table.TransferOwnership("missing", "u1", "p1")
	assert.True(t, IsEntityNotFoundError(err))
	_, err = table.TransferOwnership("e1", "", "p1")
	assert.True(t, IsBadParameterError(err))
}

func TestNetworkObjectTable_AuthorityUniqueAfterRandomTransfers(t *testing.T) {
	table := NewNetworkObjectTable()
	peers := []domain.PeerID{"p1", "p2", "p3", "p4"}
	users := []domain.UserID{"u1", "u2"}
	entities := []domain.EntityID{"e1", "e2", "e3"}
	for i, e := range entities {
		require.NoError(t, table.Register(e, "u1", "p1", "p1", domain.NetworkID(i+1)))
	}

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 500; step++ {
		e := entities[rng.Intn(len(entities))]
		p := peers[rng.Intn(len(peers))]
		switch rng.Intn(3) {
		case 0:
			_, err := table.TransferAuthority(e, p)
			require.NoError(t, err)
		case 1:
			_, err := table.TransferOwnership(e, users[rng.Intn(len(users))], p)
			require.NoError(t, err)
		default:
			table.ReclaimAuthority(p, peers[rng.Intn(len(peers))])
		}

		for _, e := range entities {
			obj, ok := table.Get(e)
			require.True(t, ok)
			holders := 0
			for _, p := range peers {
				if obj.AuthorityPeerID == p {
					holders++
				}
			}
			require.Equal(t, 1, holders, "entity %s at step %d", e, step)
		}
	}
}

func TestNetworkObjectTable_Queries(t *testing.T) {
	table := NewNetworkObjectTable()
	require.NoError(t, table.Register("e1", "u1", "p1", "p1", 1))
	require.NoError(t, table.Register("e2", "u1", "p1", "p1", 2))
	require.NoError(t, table.Register("e3", "u2", "p2", "p2", 1))
	require.NoError(t, table.SetComponent("e2", "avatar"))
	require.NoError(t, table.SetComponent("e3", "avatar"))
	assert.True(t, IsEntityNotFoundError(table.SetComponent("missing", "avatar")))

	owned := table.GetOwnedObjects("u1")
	require.Len(t, owned, 2)
	assert.Equal(t, domain.EntityID("e1"), owned[0].Entity)
	assert.Equal(t, domain.EntityID("e2"), owned[1].Entity)
	assert.Empty(t, table.GetOwnedObjects("nobody"))

	obj, ok := table.GetObject("p2", 1)
	require.True(t, ok)
	assert.Equal(t, domain.EntityID("e3"), obj.Entity)
	_, ok = table.GetObject("p2", 2)
	assert.False(t, ok)

	obj, ok = table.GetOwnedObjectWithComponent("u1", "avatar")
	require.True(t, ok)
	assert.Equal(t, domain.EntityID("e2"), obj.Entity)
	assert.Len(t, table.GetOwnedObjectsWithComponent("u2", "avatar"), 1)

	assert.True(t, table.HasComponent("e2", "avatar"))
	table.RemoveComponent("e2", "avatar")
	assert.False(t, table.HasComponent("e2", "avatar"))
	_, ok = table.GetOwnedObjectWithComponent("u1", "avatar")
	assert.False(t, ok)

	assert.True(t, table.Remove("e1"))
	assert.False(t, table.Remove("e1"))
	assert.Len(t, table.All(), 2)
}

func TestReclaimOnPeerLeft(t *testing.T) {
	network := NewServerNetwork(log.NewNopLogger())
	network.Initialize(domain.TopicWorld, "host", "inst-1")
	table := NewNetworkObjectTable()
	table.SetLocalIdentity("host", "inst-1")
	stop := ReclaimOnPeerLeft(network, table)
	defer stop()

	_, err := network.AddPeer("p1", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, table.Register("e1", "u1", "p1", "p1", 1))
	require.NoError(t, table.Register("e2", "u2", "p2", "p2", 1))

	network.RemovePeer("p1")

	obj, _ := table.Get("e1")
	assert.Equal(t, domain.PeerID("host"), obj.AuthorityPeerID)
	assert.Equal(t, domain.UserID("u1"), obj.OwnerID)
	assert.True(t, table.IsAuthority("e1"))
	obj, _ = table.Get("e2")
	assert.Equal(t, domain.PeerID("p2"), obj.AuthorityPeerID)
}

package service

import (
	"fmt"
	"sort"
	"sync"

	"myinstanceserver/domain"
)

type networkObjectEntry struct {
	object     domain.NetworkObject
	components map[string]struct{}
	authority  bool
	owned      bool
}

// NetworkObjectTable tracks ownership and authority of networked entities. Authority is held by
// exactly one peer per object and only changes through TransferAuthority, TransferOwnership and
// ReclaimAuthority. Writers to the same entity must serialize among themselves.
type NetworkObjectTable struct {
	mu           sync.RWMutex
	lastID       domain.NetworkID
	localPeer    domain.PeerID
	localUser    domain.UserID
	objects      map[domain.EntityID]*networkObjectEntry
	listeners    map[int]func(domain.TagChange)
	nextListener int
}

// NewNetworkObjectTable creates an empty table whose first network id is 1.
func NewNetworkObjectTable() *NetworkObjectTable {
	return &NetworkObjectTable{
		objects:   make(map[domain.EntityID]*networkObjectEntry),
		listeners: make(map[int]func(domain.TagChange)),
	}
}

// CreateNetworkID returns the next network id. Ids are never reused by a table.
func (t *NetworkObjectTable) CreateNetworkID() domain.NetworkID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastID++
	return t.lastID
}

// SetLocalIdentity sets the peer and user this process acts as and recomputes every tag.
func (t *NetworkObjectTable) SetLocalIdentity(peerID domain.PeerID, userID domain.UserID) {
	t.mu.Lock()
	t.localPeer = peerID
	t.localUser = userID
	var changes []domain.TagChange
	for _, entry := range t.objects {
		if change, changed := t.retagLocked(entry); changed {
			changes = append(changes, change)
		}
	}
	t.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Entity < changes[j].Entity })
	t.notify(changes...)
}

// Register adds a networked entity.
//
// Returns:
// 1) nil on success;
// 2) bad_parameter when entity or authorityPeerID is empty;
// 3) conflict when the entity is already registered.
func (t *NetworkObjectTable) Register(entity domain.EntityID, ownerID domain.UserID, ownerPeer, authorityPeerID domain.PeerID, networkID domain.NetworkID) error {
	if entity == "" {
		return NewBadParameterError("entity is required", nil)
	}
	if authorityPeerID == "" {
		return NewBadParameterError("authority peer is required", nil)
	}

	t.mu.Lock()
	if _, ok := t.objects[entity]; ok {
		t.mu.Unlock()
		return NewConflictError(fmt.Sprintf("entity %s is already registered", entity), nil)
	}
	entry := &networkObjectEntry{
		object: domain.NetworkObject{
			Entity:          entity,
			NetworkID:       networkID,
			OwnerID:         ownerID,
			OwnerPeer:       ownerPeer,
			AuthorityPeerID: authorityPeerID,
		},
		components: make(map[string]struct{}),
	}
	t.objects[entity] = entry
	entry.authority = t.localPeer != "" && authorityPeerID == t.localPeer
	entry.owned = t.localUser != "" && ownerID == t.localUser
	change := domain.TagChange{Entity: entity, Authority: entry.authority, Owned: entry.owned}
	t.mu.Unlock()

	t.notify(change)
	return nil
}

// TransferAuthority hands authority over entity to newPeer. Ownership is left untouched.
func (t *NetworkObjectTable) TransferAuthority(entity domain.EntityID, newPeer domain.PeerID) (domain.NetworkObject, error) {
	if newPeer == "" {
		return domain.NetworkObject{}, NewBadParameterError("authority peer is required", nil)
	}
	return t.mutate(entity, func(obj *domain.NetworkObject) {
		obj.AuthorityPeerID = newPeer
	})
}

// TransferOwnership makes newOwner the owner of entity; newOwnerPeer becomes owner peer and authority.
func (t *NetworkObjectTable) TransferOwnership(entity domain.EntityID, newOwner domain.UserID, newOwnerPeer domain.PeerID) (domain.NetworkObject, error) {
	if newOwner == "" || newOwnerPeer == "" {
		return domain.NetworkObject{}, NewBadParameterError("owner and owner peer are required", nil)
	}
	return t.mutate(entity, func(obj *domain.NetworkObject) {
		obj.OwnerID = newOwner
		obj.OwnerPeer = newOwnerPeer
		obj.AuthorityPeerID = newOwnerPeer
	})
}

// ReclaimAuthority moves authority of every object held by fromPeer to toPeer and returns the
// affected entities. Called when a peer leaves so no object is left without authority.
func (t *NetworkObjectTable) ReclaimAuthority(fromPeer, toPeer domain.PeerID) []domain.EntityID {
	if fromPeer == "" || toPeer == "" || fromPeer == toPeer {
		return nil
	}

	t.mu.Lock()
	var (
		entities []domain.EntityID
		changes  []domain.TagChange
	)
	for entity, entry := range t.objects {
		if entry.object.AuthorityPeerID != fromPeer {
			continue
		}
		entry.object.AuthorityPeerID = toPeer
		entities = append(entities, entity)
		if change, changed := t.retagLocked(entry); changed {
			changes = append(changes, change)
		}
	}
	t.mu.Unlock()

	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	sort.Slice(changes, func(i, j int) bool { return changes[i].Entity < changes[j].Entity })
	t.notify(changes...)
	return entities
}

// Remove drops entity. Returns false when it was not registered.
func (t *NetworkObjectTable) Remove(entity domain.EntityID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.objects[entity]; !ok {
		return false
	}
	delete(t.objects, entity)
	return true
}

// Get returns the record of entity.
func (t *NetworkObjectTable) Get(entity domain.EntityID) (domain.NetworkObject, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.objects[entity]
	if !ok {
		return domain.NetworkObject{}, false
	}
	return entry.object, true
}

// IsAuthority reports whether the local peer holds authority over entity.
func (t *NetworkObjectTable) IsAuthority(entity domain.EntityID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.objects[entity]
	return ok && entry.authority
}

// IsOwned reports whether the local user owns entity.
func (t *NetworkObjectTable) IsOwned(entity domain.EntityID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.objects[entity]
	return ok && entry.owned
}

// All returns every record ordered by entity.
func (t *NetworkObjectTable) All() []domain.NetworkObject {
	return t.filter(func(*networkObjectEntry) bool { return true })
}

// GetOwnedObjects returns the records owned by ownerID.
func (t *NetworkObjectTable) GetOwnedObjects(ownerID domain.UserID) []domain.NetworkObject {
	return t.filter(func(e *networkObjectEntry) bool { return e.object.OwnerID == ownerID })
}

// GetObject resolves the entity a peer knows by networkID.
func (t *NetworkObjectTable) GetObject(ownerPeer domain.PeerID, networkID domain.NetworkID) (domain.NetworkObject, bool) {
	found := t.filter(func(e *networkObjectEntry) bool {
		return e.object.OwnerPeer == ownerPeer && e.object.NetworkID == networkID
	})
	if len(found) == 0 {
		return domain.NetworkObject{}, false
	}
	return found[0], true
}

// GetOwnedObjectsWithComponent returns the records owned by ownerID whose entity has component.
func (t *NetworkObjectTable) GetOwnedObjectsWithComponent(ownerID domain.UserID, component string) []domain.NetworkObject {
	return t.filter(func(e *networkObjectEntry) bool {
		_, has := e.components[component]
		return has && e.object.OwnerID == ownerID
	})
}

// GetOwnedObjectWithComponent returns the first record of GetOwnedObjectsWithComponent.
func (t *NetworkObjectTable) GetOwnedObjectWithComponent(ownerID domain.UserID, component string) (domain.NetworkObject, bool) {
	found := t.GetOwnedObjectsWithComponent(ownerID, component)
	if len(found) == 0 {
		return domain.NetworkObject{}, false
	}
	return found[0], true
}

// SetComponent marks entity as having component.
func (t *NetworkObjectTable) SetComponent(entity domain.EntityID, component string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.objects[entity]
	if !ok {
		return NewEntityNotFoundError(fmt.Sprintf("entity %s is not registered", entity), nil)
	}
	entry.components[component] = struct{}{}
	return nil
}

// HasComponent reports whether entity has component.
func (t *NetworkObjectTable) HasComponent(entity domain.EntityID, component string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.objects[entity]
	if !ok {
		return false
	}
	_, has := entry.components[component]
	return has
}

// RemoveComponent clears component from entity.
func (t *NetworkObjectTable) RemoveComponent(entity domain.EntityID, component string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.objects[entity]; ok {
		delete(entry.components, component)
	}
}

// SubscribeTags registers fn for tag changes. The returned func unsubscribes.
func (t *NetworkObjectTable) SubscribeTags(fn func(domain.TagChange)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

func (t *NetworkObjectTable) mutate(entity domain.EntityID, apply func(obj *domain.NetworkObject)) (domain.NetworkObject, error) {
	t.mu.Lock()
	entry, ok := t.objects[entity]
	if !ok {
		t.mu.Unlock()
		return domain.NetworkObject{}, NewEntityNotFoundError(fmt.Sprintf("entity %s is not registered", entity), nil)
	}
	apply(&entry.object)
	change, changed := t.retagLocked(entry)
	obj := entry.object
	t.mu.Unlock()

	if changed {
		t.notify(change)
	}
	return obj, nil
}

// retagLocked recomputes both tags of entry. Caller must hold t.mu.
func (t *NetworkObjectTable) retagLocked(entry *networkObjectEntry) (domain.TagChange, bool) {
	authority := t.localPeer != "" && entry.object.AuthorityPeerID == t.localPeer
	owned := t.localUser != "" && entry.object.OwnerID == t.localUser
	changed := authority != entry.authority || owned != entry.owned
	entry.authority = authority
	entry.owned = owned
	return domain.TagChange{Entity: entry.object.Entity, Authority: authority, Owned: owned}, changed
}

func (t *NetworkObjectTable) filter(keep func(*networkObjectEntry) bool) []domain.NetworkObject {
	t.mu.RLock()
	var out []domain.NetworkObject
	for _, entry := range t.objects {
		if keep(entry) {
			out = append(out, entry.object)
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

func (t *NetworkObjectTable) notify(changes ...domain.TagChange) {
	if len(changes) == 0 {
		return
	}
	t.mu.RLock()
	ids := make([]int, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(domain.TagChange), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, t.listeners[id])
	}
	t.mu.RUnlock()

	for _, change := range changes {
		for _, l := range listeners {
			l(change)
		}
	}
}

// ReclaimOnPeerLeft hands the objects of every leaving peer to the network's host peer.
// The returned func stops it.
func ReclaimOnPeerLeft(network *ServerNetwork, table *NetworkObjectTable) (unsubscribe func()) {
	return network.Subscribe(func(e domain.PeerEvent) {
		if e.Kind != domain.PeerLeft {
			return
		}
		table.ReclaimAuthority(e.PeerID, network.HostPeerID())
	})
}

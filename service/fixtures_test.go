package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/interfaces"
	"myinstanceserver/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
)

// memTable backs a RecordStoreMock with rows kept as JSON field maps, so tests can assert on
// calls and on the resulting records at the same time.
type memTable[T any] struct {
	mu     sync.Mutex
	kind   string
	rows   map[string]map[string]any
	order  []string
	nextID int
}

func newMemTable[T any](kind string) *memTable[T] {
	return &memTable[T]{kind: kind, rows: make(map[string]map[string]any)}
}

func (m *memTable[T]) put(t *testing.T, item T) {
	t.Helper()
	row := toRow(item)
	id, _ := row["id"].(string)
	require.NotEmpty(t, id, "seeded %s needs an id", m.kind)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		m.order = append(m.order, id)
	}
	m.rows[id] = row
}

func (m *memTable[T]) row(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return fromRow[T](row), true
}

func (m *memTable[T]) store() *mock.RecordStoreMock[T] {
	return &mock.RecordStoreMock[T]{
		FindFunc: func(ctx context.Context, query domain.Query, headers domain.Headers) (domain.Paginated[T], error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			limit, _ := query[domain.QueryLimit].(int)
			page := domain.Paginated[T]{Limit: limit}
			for _, id := range m.matchLocked(query) {
				page.Total++
				if limit == 0 || len(page.Data) < limit {
					page.Data = append(page.Data, fromRow[T](m.rows[id]))
				}
			}
			return page, nil
		},
		GetFunc: func(ctx context.Context, id string, headers domain.Headers) (T, error) {
			if item, ok := m.row(id); ok {
				return item, nil
			}
			var zero T
			return zero, NewEntityNotFoundError(fmt.Sprintf("%s %s not found", m.kind, id), nil)
		},
		CreateFunc: func(ctx context.Context, item T, headers domain.Headers) (T, error) {
			row := toRow(item)
			m.mu.Lock()
			defer m.mu.Unlock()
			if id, _ := row["id"].(string); id == "" {
				m.nextID++
				row["id"] = fmt.Sprintf("%s-%d", m.kind, m.nextID)
			}
			id := row["id"].(string)
			m.rows[id] = row
			m.order = append(m.order, id)
			return fromRow[T](row), nil
		},
		PatchFunc: func(ctx context.Context, id string, patch domain.Patch, query domain.Query, headers domain.Headers) (T, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			ids := []string{id}
			if id == "" {
				ids = m.matchLocked(query)
			}
			var last T
			patched := 0
			for _, id := range ids {
				row, ok := m.rows[id]
				if !ok {
					continue
				}
				for k, v := range patch {
					row[k] = normalize(v)
				}
				last = fromRow[T](row)
				patched++
			}
			if patched == 0 {
				return last, NewEntityNotFoundError(fmt.Sprintf("%s %s not found", m.kind, id), nil)
			}
			return last, nil
		},
		RemoveFunc: func(ctx context.Context, id string, query domain.Query, headers domain.Headers) (T, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			row, ok := m.rows[id]
			if !ok {
				var zero T
				return zero, NewEntityNotFoundError(fmt.Sprintf("%s %s not found", m.kind, id), nil)
			}
			delete(m.rows, id)
			for i, o := range m.order {
				if o == id {
					m.order = append(m.order[:i], m.order[i+1:]...)
					break
				}
			}
			return fromRow[T](row), nil
		},
	}
}

func (m *memTable[T]) matchLocked(query domain.Query) []string {
	var ids []string
	for _, id := range m.order {
		row := m.rows[id]
		match := true
		for k, v := range query {
			if k == domain.QueryLimit {
				continue
			}
			if fmt.Sprint(row[k]) != fmt.Sprint(normalize(v)) {
				match = false
				break
			}
		}
		if match {
			ids = append(ids, id)
		}
	}
	return ids
}

func normalize(v any) any {
	raw, _ := json.Marshal(v)
	var out any
	_ = json.Unmarshal(raw, &out)
	return out
}

func toRow(item any) map[string]any {
	raw, _ := json.Marshal(item)
	row := make(map[string]any)
	_ = json.Unmarshal(raw, &row)
	return row
}

func fromRow[T any](row map[string]any) T {
	raw, _ := json.Marshal(row)
	var item T
	_ = json.Unmarshal(raw, &item)
	return item
}

// testRecords holds one memTable and one mock per record type.
type testRecords struct {
	instances       *memTable[domain.InstanceRecord]
	locations       *memTable[domain.Location]
	channels        *memTable[domain.Channel]
	users           *memTable[domain.User]
	idps            *memTable[domain.IdentityProvider]
	attendance      *memTable[domain.InstanceAttendance]
	authorizedUsers *memTable[domain.InstanceAuthorizedUser]
	bans            *memTable[domain.LocationBan]
	scenes          *memTable[domain.StaticResource]

	instanceStore   *mock.RecordStoreMock[domain.InstanceRecord]
	channelStore    *mock.RecordStoreMock[domain.Channel]
	attendanceStore *mock.RecordStoreMock[domain.InstanceAttendance]
	records         Records
}

func newTestRecords() *testRecords {
	r := &testRecords{
		instances:       newMemTable[domain.InstanceRecord](domain.RecordInstance),
		locations:       newMemTable[domain.Location](domain.RecordLocation),
		channels:        newMemTable[domain.Channel](domain.RecordChannel),
		users:           newMemTable[domain.User](domain.RecordUser),
		idps:            newMemTable[domain.IdentityProvider](domain.RecordIdentityProvider),
		attendance:      newMemTable[domain.InstanceAttendance](domain.RecordInstanceAttendance),
		authorizedUsers: newMemTable[domain.InstanceAuthorizedUser](domain.RecordInstanceAuthorizedUser),
		bans:            newMemTable[domain.LocationBan](domain.RecordLocationBan),
		scenes:          newMemTable[domain.StaticResource](domain.RecordStaticResource),
	}
	r.instanceStore = r.instances.store()
	r.channelStore = r.channels.store()
	r.attendanceStore = r.attendance.store()
	r.records = Records{
		Instances:         r.instanceStore,
		Locations:         r.locations.store(),
		Channels:          r.channelStore,
		Users:             r.users.store(),
		IdentityProviders: r.idps.store(),
		Attendance:        r.attendanceStore,
		AuthorizedUsers:   r.authorizedUsers.store(),
		LocationBans:      r.bans.store(),
		StaticResources:   r.scenes.store(),
	}
	return r
}

const (
	testAddress  = "10.0.0.5:3031"
	testHostPeer = domain.PeerID("host-peer")
)

// seedWorld stores a world instance for testAddress with its location, scene, channel and users.
func (r *testRecords) seedWorld(t *testing.T) domain.InstanceRecord {
	t.Helper()
	instance := domain.InstanceRecord{
		ID:         "inst-1",
		IPAddress:  testAddress,
		RoomCode:   "room-1",
		Assigned:   true,
		AssignedAt: func() *time.Time { at := time.Date(2026, 2, 11, 11, 0, 0, 0, time.UTC); return &at }(),
		LocationID: func() *string { s := "loc-1"; return &s }(),
	}
	r.instances.put(t, instance)
	r.locations.put(t, domain.Location{ID: "loc-1", Name: "plaza", SceneID: "scene-1", MaxUsersPerInstance: 10})
	r.scenes.put(t, domain.StaticResource{ID: "scene-1", Name: "plaza.gltf", URL: "http://assets/plaza.gltf"})
	r.channels.put(t, domain.Channel{ID: "chan-1", Name: "plaza chat", InstanceID: "inst-1"})
	r.users.put(t, domain.User{ID: "user-1", Name: "alice", AcceptedTOS: true})
	r.users.put(t, domain.User{ID: "user-2", Name: "bob"})
	r.idps.put(t, domain.IdentityProvider{ID: "idp-1", UserID: "user-1", Type: "password"})
	r.idps.put(t, domain.IdentityProvider{ID: "idp-2", UserID: "user-2", Type: "guest"})
	return instance
}

// seedMedia stores a media instance for testAddress bound to channel media-chan.
func (r *testRecords) seedMedia(t *testing.T) domain.InstanceRecord {
	t.Helper()
	instance := domain.InstanceRecord{
		ID:        "inst-media",
		IPAddress: testAddress,
		ChannelID: func() *string { s := "media-chan"; return &s }(),
	}
	r.instances.put(t, instance)
	r.channels.put(t, domain.Channel{ID: "media-chan", Name: "party", InstanceID: "inst-media"})
	r.users.put(t, domain.User{ID: "user-1", Name: "alice", AcceptedTOS: true})
	r.users.put(t, domain.User{ID: "user-2", Name: "bob"})
	r.idps.put(t, domain.IdentityProvider{ID: "idp-1", UserID: "user-1", Type: "password"})
	r.idps.put(t, domain.IdentityProvider{ID: "idp-2", UserID: "user-2", Type: "guest"})
	return instance
}

// testScene is a scene handle whose loaded signal the test controls.
type testScene struct {
	loaded    chan struct{}
	mu        sync.Mutex
	unloads   int
	closeOnce sync.Once
}

func newTestScene(loaded bool) *testScene {
	s := &testScene{loaded: make(chan struct{})}
	if loaded {
		s.finish()
	}
	return s
}

func (s *testScene) finish() { s.closeOnce.Do(func() { close(s.loaded) }) }

func (s *testScene) Loaded() <-chan struct{} { return s.loaded }

func (s *testScene) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloads++
}

func (s *testScene) unloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloads
}

var _ interfaces.SceneHandle = (*testScene)(nil)

// testEvents is an in-process RecordEvents.
type testEvents struct {
	mu       sync.Mutex
	handlers map[string]map[int]interfaces.EventHandler
	next     int
}

func newTestEvents() *testEvents {
	return &testEvents{handlers: make(map[string]map[int]interfaces.EventHandler)}
}

func (e *testEvents) Publish(ctx context.Context, recordType, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	e.mu.Lock()
	var hs []interfaces.EventHandler
	for _, h := range e.handlers[recordType+":"+event] {
		hs = append(hs, h)
	}
	e.mu.Unlock()
	for _, h := range hs {
		h(ctx, raw)
	}
	return nil
}

func (e *testEvents) Subscribe(recordType, event string, handler interfaces.EventHandler) func() {
	key := recordType + ":" + event
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers[key] == nil {
		e.handlers[key] = make(map[int]interfaces.EventHandler)
	}
	id := e.next
	e.next++
	e.handlers[key][id] = handler
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[key], id)
	}
}

func (e *testEvents) count(recordType, event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[recordType+":"+event])
}

var _ interfaces.RecordEvents = (*testEvents)(nil)

// lifecycleFixture wires a LifecycleManager to in-memory collaborators.
type lifecycleFixture struct {
	records      *testRecords
	orchestrator *mock.OrchestratorMock
	sceneLoader  *mock.SceneLoaderMock
	restarter    *mock.RestarterMock
	events       *testEvents
	network      *ServerNetwork
	state        *InstanceState
	health       *health.Server
	authority    *NetworkObjectTable
	manager      *LifecycleManager

	mu       sync.Mutex
	gsState  string
	scenes   []*testScene
	autoLoad bool
}

func newLifecycleFixture(t *testing.T, mode domain.DeploymentMode) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		records:   newTestRecords(),
		events:    newTestEvents(),
		network:   NewServerNetwork(log.NewNopLogger()),
		state:     NewInstanceState(),
		health:    health.NewServer(),
		authority: NewNetworkObjectTable(),
		gsState:   domain.GameServerReady,
		autoLoad:  true,
	}
	f.orchestrator = &mock.OrchestratorMock{
		GetGameServerFunc: func(ctx context.Context) (domain.GameServer, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return domain.GameServer{
				ObjectMeta: domain.GameServerMeta{Name: "gs-1"},
				Status:     domain.GameServerStatus{State: f.gsState, Address: "10.0.0.5", Ports: []domain.GameServerPort{{Name: "default", Port: 3031}}},
			}, nil
		},
		AllocateFunc: func(ctx context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.gsState = domain.GameServerAllocated
			return nil
		},
	}
	f.sceneLoader = &mock.SceneLoaderMock{
		LoadFunc: func(ctx context.Context, scene domain.StaticResource) (interfaces.SceneHandle, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			s := newTestScene(f.autoLoad)
			f.scenes = append(f.scenes, s)
			return s, nil
		},
	}
	f.restarter = &mock.RestarterMock{
		RestartFunc: func(ctx context.Context, cleanup func(ctx context.Context)) {
			cleanup(ctx)
		},
	}
	f.manager = NewLifecycleManager(LifecycleConfig{
		Mode:             mode,
		SelfAddress:      testAddress,
		HostPeerID:       testHostPeer,
		ShutdownDelay:    30 * time.Millisecond,
		SceneLoadTimeout: 200 * time.Millisecond,
		ReadyWaitTimeout: 300 * time.Millisecond,
	}, LifecycleDeps{
		Records:      f.records.records,
		Orchestrator: f.orchestrator,
		Events:       f.events,
		SceneLoader:  f.sceneLoader,
		Restarter:    f.restarter,
		Network:      f.network,
		State:        f.state,
		Health:       NewHealthReporter(f.health),
		Authority:    f.authority,
		Logger:       log.NewNopLogger(),
	})
	return f
}

func (f *lifecycleFixture) loadedScenes() []*testScene {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*testScene(nil), f.scenes...)
}

func (f *lifecycleFixture) setAutoLoad(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoLoad = v
}

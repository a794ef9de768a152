package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// LifecycleConfig tunes the lifecycle manager. Zero durations fall back to defaults.
type LifecycleConfig struct {
	Mode domain.DeploymentMode
	// SelfAddress is the "ip:port" under which the provisioning step registered this process.
	SelfAddress string
	// HostPeerID is the peer id of the server itself; generated when empty.
	HostPeerID       domain.PeerID
	ShutdownDelay    time.Duration
	SceneLoadTimeout time.Duration
	ReadyWaitTimeout time.Duration
}

const (
	DefaultShutdownDelay    = 3 * time.Second
	DefaultSceneLoadTimeout = 2 * time.Minute
	DefaultReadyWaitTimeout = 2 * time.Minute
)

// LifecycleDeps are the collaborators of the lifecycle manager. Authority is optional.
type LifecycleDeps struct {
	Records      Records
	Orchestrator interfaces.Orchestrator
	Events       interfaces.RecordEvents
	SceneLoader  interfaces.SceneLoader
	Restarter    interfaces.Restarter
	Network      *ServerNetwork
	State        *InstanceState
	Health       *HealthReporter
	Authority    *NetworkObjectTable
	Logger       log.Logger
}

// LifecycleManager runs the instance state machine:
// uninitialized → initializing → loading_session → ready, and shutting_down from any state.
// It adopts the instance record provisioned for this process, loads its session, keeps the
// record fresh on every admission and ends it when the last peer leaves.
type LifecycleManager struct {
	cfg          LifecycleConfig
	policy       deploymentPolicy
	records      Records
	orchestrator interfaces.Orchestrator
	events       interfaces.RecordEvents
	sceneLoader  interfaces.SceneLoader
	restarter    interfaces.Restarter
	network      *ServerNetwork
	state        *InstanceState
	health       *HealthReporter
	authority    *NetworkObjectTable
	authorizer   *Authorizer
	logger       log.Logger

	// initializing is the guard flag: set while one ensure sequence runs and kept set once the
	// session is ready.
	initializing atomic.Bool
	shuttingDown atomic.Bool

	// allocatedIdle is set while the game server is allocated by this process but no session
	// became ready on it.
	allocatedIdle atomic.Bool

	mu        sync.RWMutex
	lifecycle domain.LifecycleState

	sceneMu          sync.Mutex
	sceneID          string
	scene            interfaces.SceneHandle
	sceneUnsubscribe func()
}

// NewLifecycleManager creates a manager in the uninitialized state. Panics on a missing
// collaborator, an empty self address or an unknown deployment mode.
func NewLifecycleManager(cfg LifecycleConfig, deps LifecycleDeps) *LifecycleManager {
	const file = "service.lifecycle.go"
	helpers.StrPanic(cfg.SelfAddress, file+": self address is required")
	if cfg.HostPeerID == "" {
		cfg.HostPeerID = domain.PeerID(uuid.NewString())
	}
	if cfg.ShutdownDelay <= 0 {
		cfg.ShutdownDelay = DefaultShutdownDelay
	}
	if cfg.SceneLoadTimeout <= 0 {
		cfg.SceneLoadTimeout = DefaultSceneLoadTimeout
	}
	if cfg.ReadyWaitTimeout <= 0 {
		cfg.ReadyWaitTimeout = DefaultReadyWaitTimeout
	}

	records := deps.Records.mustBeComplete(file)
	return &LifecycleManager{
		cfg:          cfg,
		policy:       newDeploymentPolicy(cfg.Mode),
		records:      records,
		orchestrator: helpers.NilPanic(deps.Orchestrator, file+": orchestrator is required"),
		events:       helpers.NilPanic(deps.Events, file+": record events are required"),
		sceneLoader:  helpers.NilPanic(deps.SceneLoader, file+": scene loader is required"),
		restarter:    helpers.NilPanic(deps.Restarter, file+": restarter is required"),
		network:      helpers.NilPanic(deps.Network, file+": network is required"),
		state:        helpers.NilPanic(deps.State, file+": instance state is required"),
		health:       helpers.NilPanic(deps.Health, file+": health reporter is required"),
		authority:    deps.Authority,
		authorizer:   NewAuthorizer(records),
		logger:       log.With(helpers.NilPanic(deps.Logger, file+": logger is required"), "component", "lifecycle"),
		lifecycle:    domain.StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (m *LifecycleManager) State() domain.LifecycleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lifecycle
}

// Ready reports whether the session finished loading.
func (m *LifecycleManager) Ready() bool {
	return m.state.IsReady()
}

// Snapshot returns a copy of the instance state.
func (m *LifecycleManager) Snapshot() InstanceSnapshot {
	return m.state.Snapshot()
}

// HostPeerID returns the peer id of the server itself.
func (m *LifecycleManager) HostPeerID() domain.PeerID {
	return m.cfg.HostPeerID
}

// Mode returns the deployment mode.
func (m *LifecycleManager) Mode() domain.DeploymentMode {
	return m.cfg.Mode
}

func (m *LifecycleManager) setLifecycle(s domain.LifecycleState) {
	m.mu.Lock()
	prev := m.lifecycle
	m.lifecycle = s
	m.mu.Unlock()
	if prev != s {
		level.Debug(m.logger).Log("msg", "lifecycle state changed", "from", prev, "to", s)
	}
}

// Admit ensures the instance on the first admission and updates it on every later one.
//
// Returns: nil when the connection may join; otherwise the refusal reason (fatal_admission,
// not found, transient_record or orchestration_race). Nothing is committed on refusal.
//
// Called from Gatekeeper.OnConnect and HandleInstanceServerLoad.
func (m *LifecycleManager) Admit(ctx context.Context, req domain.AdmissionRequest) error {
	if _, ok := m.state.Instance(); ok {
		return m.UpdateInstance(ctx, req)
	}
	return m.EnsureInstance(ctx, req)
}

// EnsureInstance adopts the instance record of this process and loads its session. When
// another ensure sequence holds the guard, or the orchestrator says this game server is already
// allocated to a ready session, it falls back to UpdateInstance. An allocation made by a failed
// attempt of this process does not count as such.
//
// Failure before the record is patched leaves the instance state untouched; failure while
// loading the session clears it. In both cases the guard is released for the next attempt and
// admissions waiting in UpdateInstance retry.
func (m *LifecycleManager) EnsureInstance(ctx context.Context, req domain.AdmissionRequest) error {
	if m.shuttingDown.Load() {
		return NewFatalAdmissionError("instance server is shutting down", nil)
	}
	if !m.initializing.CompareAndSwap(false, true) {
		return m.UpdateInstance(ctx, req)
	}

	gs, err := m.orchestrator.GetGameServer(ctx)
	if err != nil {
		m.abortInitialization()
		return NewMyError(ErrOrchestrationRace, "get game server", err)
	}
	if !m.policy.needsFreshAllocation(gs) && !m.allocatedIdle.Load() {
		m.initializing.Store(false)
		return m.UpdateInstance(ctx, req)
	}

	level.Info(m.logger).Log("msg", "initializing new instance", "address", m.cfg.SelfAddress, "game_server_state", gs.Status.State)
	m.setLifecycle(domain.StateInitializing)

	instance, err := m.discover(ctx, req.Headers)
	if err != nil {
		m.abortInitialization()
		return err
	}
	if req.UserID != "" {
		if err := m.authorizer.Authorize(ctx, instance, req.UserID, req.Headers); err != nil {
			m.abortInitialization()
			return err
		}
	}
	if err := m.orchestrator.Allocate(ctx); err != nil {
		m.abortInitialization()
		return NewMyError(ErrOrchestrationRace, "allocate game server", err)
	}
	m.allocatedIdle.Store(true)
	patched, err := m.patchAssignment(ctx, instance.ID, gs, req.Headers)
	if err != nil {
		m.abortInitialization()
		return err
	}
	m.state.SetGameServer(gs)
	m.state.SetInstance(patched)

	m.setLifecycle(domain.StateLoadingSession)
	if err := m.loadSession(ctx, patched, req.SceneID, req.Headers); err != nil {
		level.Error(m.logger).Log("msg", "session load failed", "instance_id", patched.ID, "err", err)
		m.releaseSession()
		m.network.Reset()
		m.state.Clear()
		m.abortInitialization()
		return err
	}

	m.allocatedIdle.Store(false)
	m.state.MarkReady()
	m.setLifecycle(domain.StateReady)
	m.health.SetReady(true)
	level.Info(m.logger).Log("msg", "instance ready", "instance_id", patched.ID, "media", patched.IsMedia())
	return nil
}

func (m *LifecycleManager) abortInitialization() {
	m.setLifecycle(domain.StateUninitialized)
	m.initializing.Store(false)
	m.state.FailInitialization()
}

// discover finds the non-ended instance record registered for this process. Records are created
// upstream by provisioning; a missing record refuses the connection and nothing is created here.
func (m *LifecycleManager) discover(ctx context.Context, headers domain.Headers) (domain.InstanceRecord, error) {
	page, err := m.records.Instances.Find(ctx, domain.Query{
		"ipAddress":       m.cfg.SelfAddress,
		"ended":           false,
		domain.QueryLimit: 1,
	}, headers)
	if err != nil {
		return domain.InstanceRecord{}, NewTransientRecordError("find instance", err)
	}
	instance, ok := page.First()
	if !ok {
		level.Error(m.logger).Log("msg", "missing active instance record", "address", m.cfg.SelfAddress)
		return domain.InstanceRecord{}, NewFatalAdmissionError("no active instance record for "+m.cfg.SelfAddress, nil)
	}
	return instance, nil
}

// patchAssignment writes the fields refreshed on every admission. The patch is the same each
// time, so repeating it is harmless.
func (m *LifecycleManager) patchAssignment(ctx context.Context, instanceID string, gs domain.GameServer, headers domain.Headers) (domain.InstanceRecord, error) {
	patched, err := m.records.Instances.Patch(ctx, instanceID, domain.Patch{
		"assigned":   false,
		"podName":    m.policy.podName(gs),
		"assignedAt": nil,
	}, nil, headers)
	if err != nil {
		return domain.InstanceRecord{}, recordError("patch instance", err)
	}
	return patched, nil
}

// loadSession initializes the network for the instance topic and, for world instances, loads
// the scene and watches it for updates.
func (m *LifecycleManager) loadSession(ctx context.Context, instance domain.InstanceRecord, sceneID *string, headers domain.Headers) error {
	topic := domain.TopicWorld
	if instance.IsMedia() {
		topic = domain.TopicMedia
	}
	m.network.Initialize(topic, m.cfg.HostPeerID, instance.ID)
	if m.authority != nil {
		m.authority.SetLocalIdentity(m.cfg.HostPeerID, domain.UserID(instance.ID))
	}
	if instance.IsMedia() {
		return nil
	}

	id := helpers.Value(sceneID)
	if id == "" && instance.LocationID != nil {
		location, err := m.records.Locations.Get(ctx, *instance.LocationID, headers)
		if err != nil {
			return recordError("get location", err)
		}
		id = location.SceneID
	}
	if id == "" {
		return NewBadParameterError(fmt.Sprintf("world instance %s has no scene", instance.ID), nil)
	}

	scene, err := m.records.StaticResources.Get(ctx, id, headers)
	if err != nil {
		return recordError("get scene", err)
	}
	if err := m.loadScene(ctx, scene); err != nil {
		return err
	}
	m.watchScene(scene.ID)
	return nil
}

// loadScene unloads the current scene, starts loading scene and waits for its loaded signal for
// at most SceneLoadTimeout.
func (m *LifecycleManager) loadScene(ctx context.Context, scene domain.StaticResource) error {
	m.sceneMu.Lock()
	defer m.sceneMu.Unlock()

	if m.scene != nil {
		m.scene.Unload()
		m.scene = nil
	}

	handle, err := m.sceneLoader.Load(ctx, scene)
	if err != nil {
		return NewMyError(ErrInternalServerError, "load scene "+scene.ID, err)
	}

	timer := time.NewTimer(m.cfg.SceneLoadTimeout)
	defer timer.Stop()
	select {
	case <-handle.Loaded():
	case <-timer.C:
		handle.Unload()
		return NewInternalServerError(fmt.Sprintf("scene %s not loaded within %s", scene.ID, m.cfg.SceneLoadTimeout), nil)
	case <-ctx.Done():
		handle.Unload()
		return NewMyError(ErrInternalServerError, "scene load interrupted", ctx.Err())
	}

	m.scene = handle
	m.sceneID = scene.ID
	level.Info(m.logger).Log("msg", "scene loaded", "scene_id", scene.ID)
	return nil
}

// watchScene reloads the scene whenever its static resource is updated.
func (m *LifecycleManager) watchScene(sceneID string) {
	unsubscribe := m.events.Subscribe(domain.RecordStaticResource, interfaces.EventUpdated, func(ctx context.Context, payload []byte) {
		var scene domain.StaticResource
		if err := json.Unmarshal(payload, &scene); err != nil {
			level.Warn(m.logger).Log("msg", "bad static-resource event", "err", err)
			return
		}
		if scene.ID != sceneID {
			return
		}
		if err := m.loadScene(ctx, scene); err != nil {
			level.Error(m.logger).Log("msg", "scene reload failed", "scene_id", sceneID, "err", err)
		}
	})

	m.sceneMu.Lock()
	m.sceneUnsubscribe = unsubscribe
	m.sceneMu.Unlock()
}

// releaseSession drops the scene subscription and unloads the scene.
func (m *LifecycleManager) releaseSession() {
	m.sceneMu.Lock()
	defer m.sceneMu.Unlock()
	if m.sceneUnsubscribe != nil {
		m.sceneUnsubscribe()
		m.sceneUnsubscribe = nil
	}
	if m.scene != nil {
		m.scene.Unload()
		m.scene = nil
	}
	m.sceneID = ""
}

// SceneID returns the id of the loaded scene, "" when none is loaded.
func (m *LifecycleManager) SceneID() string {
	m.sceneMu.Lock()
	defer m.sceneMu.Unlock()
	return m.sceneID
}

// UpdateInstance admits a later connection: waits (bounded by ReadyWaitTimeout) for the session,
// re-reads the instance record, authorizes the user, re-allocates as a keepalive and re-patches
// the record with the same fields as on adoption.
//
// Returns: nil on success; otherwise the refusal reason with no side effects on the state.
func (m *LifecycleManager) UpdateInstance(ctx context.Context, req domain.AdmissionRequest) error {
	if m.shuttingDown.Load() {
		return NewFatalAdmissionError("instance server is shutting down", nil)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ReadyWaitTimeout)
	defer cancel()
	if err := m.state.WaitReady(waitCtx); err != nil {
		if errors.Is(err, ErrInitializationFailed) && waitCtx.Err() == nil {
			return m.Admit(waitCtx, req)
		}
		return NewFatalAdmissionError("instance did not become ready", err)
	}

	current, ok := m.state.Instance()
	if !ok {
		return NewFatalAdmissionError("instance was shut down", nil)
	}
	instance, err := m.records.Instances.Get(ctx, current.ID, req.Headers)
	if err != nil {
		return recordError("get instance", err)
	}
	if instance.Ended {
		return NewOrchestrationRaceError("instance "+instance.ID+" already ended", nil)
	}
	if req.UserID != "" {
		if err := m.authorizer.Authorize(ctx, instance, req.UserID, req.Headers); err != nil {
			return err
		}
	}

	if err := m.orchestrator.Allocate(ctx); err != nil {
		return NewMyError(ErrOrchestrationRace, "allocate game server", err)
	}
	gs, _ := m.state.GameServer()
	patched, err := m.patchAssignment(ctx, instance.ID, gs, req.Headers)
	if err != nil {
		return err
	}
	m.state.SetInstance(patched)
	level.Debug(m.logger).Log("msg", "instance updated", "instance_id", patched.ID, "user_id", req.UserID)
	return nil
}

// RestartForNewSession restarts the process when req targets a session other than the one
// loaded. Only local deployments restart.
//
// Returns: true when the restart was started; the caller must drop the connection.
func (m *LifecycleManager) RestartForNewSession(ctx context.Context, req domain.ConnectionRequest) bool {
	instance, ok := m.state.Instance()
	if !ok || !m.policy.targetsOtherSession(instance, req) {
		return false
	}
	level.Info(m.logger).Log(
		"msg", "connection targets another session, restarting",
		"instance_id", instance.ID,
		"location_id", helpers.Value(req.LocationID),
		"channel_id", helpers.Value(req.ChannelID),
		"room_code", helpers.Value(req.RoomCode),
	)
	if err := m.shutdown(ctx, instance.ID, req.Headers, true); err != nil {
		level.Warn(m.logger).Log("msg", "restart for new session failed", "err", err)
	}
	return true
}

// Shutdown ends the instance. Idempotent: no-op when no instance is held or a shutdown already
// started. Clustered deployments clear the state and ask the orchestrator to shut down; local
// deployments restart the process.
func (m *LifecycleManager) Shutdown(ctx context.Context, instanceID string) error {
	return m.shutdown(ctx, instanceID, nil, false)
}

func (m *LifecycleManager) shutdown(ctx context.Context, instanceID string, headers domain.Headers, removeMediaChannel bool) error {
	instance, ok := m.state.Instance()
	if !ok {
		level.Debug(m.logger).Log("msg", "already shut down")
		return nil
	}
	if instanceID != "" && instance.ID != instanceID {
		level.Warn(m.logger).Log("msg", "shutdown for another instance ignored", "instance_id", instanceID, "current", instance.ID)
		return nil
	}
	if !m.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	level.Info(m.logger).Log("msg", "shutting down instance", "instance_id", instance.ID)
	m.setLifecycle(domain.StateShuttingDown)
	m.health.SetReady(false)
	m.releaseSession()
	m.endInstance(ctx, instance, headers, removeMediaChannel)
	return m.policy.finishShutdown(ctx, m)
}

// endInstance marks the record ended and removes the channel tied to it. Failures are logged.
func (m *LifecycleManager) endInstance(ctx context.Context, instance domain.InstanceRecord, headers domain.Headers, removeMediaChannel bool) {
	if _, err := m.records.Instances.Patch(ctx, instance.ID, domain.Patch{"ended": true}, nil, headers); err != nil {
		level.Error(m.logger).Log("msg", "could not end instance", "instance_id", instance.ID, "err", err)
	}

	if instance.LocationID != nil {
		page, err := m.records.Channels.Find(ctx, domain.Query{"instanceId": instance.ID, domain.QueryLimit: 1}, headers)
		if err != nil {
			level.Warn(m.logger).Log("msg", "could not find instance channel", "instance_id", instance.ID, "err", err)
		} else if channel, ok := page.First(); ok {
			m.removeChannel(ctx, channel.ID, headers)
		}
	}
	if removeMediaChannel && instance.ChannelID != nil {
		m.removeChannel(ctx, *instance.ChannelID, headers)
	}
}

func (m *LifecycleManager) removeChannel(ctx context.Context, channelID string, headers domain.Headers) {
	if _, err := m.records.Channels.Remove(ctx, channelID, nil, headers); err != nil && !IsEntityNotFoundError(err) {
		level.Warn(m.logger).Log("msg", "could not remove channel", "channel_id", channelID, "err", err)
	}
}

// teardown clears the in-memory session.
func (m *LifecycleManager) teardown() {
	m.state.Clear()
	m.network.Reset()
}

// OnPeerDisconnect ends the peer's attendance, drops the peer from the instance group and the
// network, waits ShutdownDelay and shuts the instance down when no peer is left.
//
// Called from Gatekeeper.OnDisconnect.
func (m *LifecycleManager) OnPeerDisconnect(ctx context.Context, d domain.PeerDisconnect) error {
	_, err := m.records.Attendance.Patch(ctx, "", domain.Patch{"ended": true}, domain.Query{
		"isChannel":  m.state.Snapshot().IsMedia,
		"instanceId": d.InstanceID,
		"peerId":     string(d.PeerID),
		"userId":     string(d.UserID),
	}, d.Headers)
	if err != nil && !IsEntityNotFoundError(err) {
		level.Warn(m.logger).Log("msg", "could not end attendance", "peer_id", d.PeerID, "err", err)
	}

	m.network.Leave(InstanceGroup(d.InstanceID), d.PeerID)
	m.network.RemovePeer(d.PeerID)

	timer := time.NewTimer(m.cfg.ShutdownDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	if m.network.PeerCount() > 0 {
		return nil
	}
	level.Info(m.logger).Log("msg", "no peers left, shutting down", "instance_id", d.InstanceID)
	return m.Shutdown(ctx, d.InstanceID)
}

// HandleInstanceServerLoad preloads the instance named by a provisioning notice addressed to this
// game server, before any user connects.
func (m *LifecycleManager) HandleInstanceServerLoad(ctx context.Context, load domain.InstanceServerLoad) error {
	if id := m.state.InstanceID(); id != "" && id != load.ID {
		return nil
	}
	gs, err := m.orchestrator.GetGameServer(ctx)
	if err != nil {
		return NewMyError(ErrOrchestrationRace, "get game server", err)
	}
	if gs.ObjectMeta.Name != load.PodName {
		level.Debug(m.logger).Log("msg", "load notice for another pod", "pod", load.PodName)
		return nil
	}
	return m.Admit(ctx, domain.AdmissionRequest{SceneID: helpers.OptionalString(load.SceneID)})
}

package service

import (
	"context"
	"errors"
	"sync"

	"myinstanceserver/domain"
)

// InstanceSnapshot is a copy of the instance state at one point in time.
type InstanceSnapshot struct {
	Instance   *domain.InstanceRecord
	IsMedia    bool
	Ready      bool
	GameServer *domain.GameServer
}

// InstanceState holds the instance this process serves. Only the lifecycle manager writes it, and
// only by replacing whole fields; readers get copies.
type InstanceState struct {
	mu         sync.RWMutex
	instance   *domain.InstanceRecord
	gameServer *domain.GameServer
	ready      bool
	readyCh    chan struct{}
	failedCh   chan struct{}
}

// ErrInitializationFailed is returned by WaitReady when the initialization it waited on failed.
var ErrInitializationFailed = errors.New("instance initialization failed")

// NewInstanceState creates an empty (uninitialized) state.
func NewInstanceState() *InstanceState {
	return &InstanceState{readyCh: make(chan struct{}), failedCh: make(chan struct{})}
}

// Snapshot returns a copy of the current state.
func (s *InstanceState) Snapshot() InstanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := InstanceSnapshot{Ready: s.ready}
	if s.instance != nil {
		instance := *s.instance
		snap.Instance = &instance
		snap.IsMedia = instance.IsMedia()
	}
	if s.gameServer != nil {
		gs := *s.gameServer
		snap.GameServer = &gs
	}
	return snap
}

// Instance returns a copy of the current instance record, false before initialization.
func (s *InstanceState) Instance() (domain.InstanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.instance == nil {
		return domain.InstanceRecord{}, false
	}
	return *s.instance, true
}

// InstanceID returns the current instance id or "".
func (s *InstanceState) InstanceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.instance == nil {
		return ""
	}
	return s.instance.ID
}

// IsReady reports whether the session finished loading.
func (s *InstanceState) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// GameServer returns a copy of the orchestrator's game server object, false when unknown.
func (s *InstanceState) GameServer() (domain.GameServer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gameServer == nil {
		return domain.GameServer{}, false
	}
	return *s.gameServer, true
}

// SetInstance replaces the instance record.
func (s *InstanceState) SetInstance(instance domain.InstanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance = &instance
}

// SetGameServer replaces the game server object.
func (s *InstanceState) SetGameServer(gs domain.GameServer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameServer = &gs
}

// MarkReady flags the session as ready and releases every WaitReady. Calling it again is a no-op.
func (s *InstanceState) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return
	}
	s.ready = true
	close(s.readyCh)
}

// WaitReady blocks until MarkReady, FailInitialization or ctx is done.
func (s *InstanceState) WaitReady(ctx context.Context) error {
	s.mu.RLock()
	ready, failed := s.readyCh, s.failedCh
	s.mu.RUnlock()

	select {
	case <-ready:
		return nil
	case <-failed:
		return ErrInitializationFailed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FailInitialization releases every pending WaitReady with ErrInitializationFailed. Later
// waiters wait for the next attempt.
func (s *InstanceState) FailInitialization() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.failedCh)
	s.failedCh = make(chan struct{})
}

// Clear drops the instance and readiness. The ready channel is only replaced once it was closed,
// so waiters that never saw MarkReady are released by the next one.
func (s *InstanceState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance = nil
	if s.ready {
		s.ready = false
		s.readyCh = make(chan struct{})
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceState_Lifecycle(t *testing.T) {
	s := NewInstanceState()

	_, ok := s.Instance()
	assert.False(t, ok)
	assert.Equal(t, "", s.InstanceID())
	assert.Equal(t, InstanceSnapshot{}, s.Snapshot())

	s.SetInstance(domain.InstanceRecord{ID: "inst-1", ChannelID: helpers.Ptr("ch-1")})
	s.SetGameServer(domain.GameServer{ObjectMeta: domain.GameServerMeta{Name: "gs-1"}})

	snap := s.Snapshot()
	require.NotNil(t, snap.Instance)
	assert.Equal(t, "inst-1", snap.Instance.ID)
	assert.True(t, snap.IsMedia)
	assert.False(t, snap.Ready)
	require.NotNil(t, snap.GameServer)
	assert.Equal(t, "gs-1", snap.GameServer.ObjectMeta.Name)

	s.MarkReady()
	s.MarkReady()
	assert.True(t, s.IsReady())

	s.Clear()
	assert.False(t, s.IsReady())
	_, ok = s.Instance()
	assert.False(t, ok)
	gs, ok := s.GameServer()
	assert.True(t, ok)
	assert.Equal(t, "gs-1", gs.ObjectMeta.Name)
}

func TestInstanceState_SnapshotIsACopy(t *testing.T) {
	s := NewInstanceState()
	s.SetInstance(domain.InstanceRecord{ID: "inst-1", RoomCode: "abc"})

	snap := s.Snapshot()
	snap.Instance.RoomCode = "changed"

	got, _ := s.Instance()
	assert.Equal(t, "abc", got.RoomCode)
}

func TestInstanceState_WaitReady(t *testing.T) {
	s := NewInstanceState()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitReady(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() {
		done <- s.WaitReady(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	s.MarkReady()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not return after MarkReady")
	}

	assert.NoError(t, s.WaitReady(context.Background()))
}

func TestInstanceState_ClearBeforeReadyKeepsWaiters(t *testing.T) {
	s := NewInstanceState()
	s.SetInstance(domain.InstanceRecord{ID: "inst-1"})

	done := make(chan error, 1)
	go func() {
		done <- s.WaitReady(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	s.Clear()
	s.SetInstance(domain.InstanceRecord{ID: "inst-1"})
	s.MarkReady()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitReady missed MarkReady after Clear")
	}

	s.Clear()
	assert.False(t, s.IsReady())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitReady(ctx), context.DeadlineExceeded)
}

func TestInstanceState_FailInitialization(t *testing.T) {
	s := NewInstanceState()

	done := make(chan error, 1)
	go func() {
		done <- s.WaitReady(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	s.FailInitialization()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInitializationFailed)
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not return after FailInitialization")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitReady(ctx), context.DeadlineExceeded)
}

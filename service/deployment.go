package service

import (
	"context"
	"fmt"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
)

// deploymentPolicy is the only place where clustered and local deployments differ.
type deploymentPolicy interface {
	// needsFreshAllocation reports whether an uninitialized process may adopt an instance now.
	needsFreshAllocation(gs domain.GameServer) bool
	// podName is recorded on the instance record when it is adopted or refreshed.
	podName(gs domain.GameServer) string
	// targetsOtherSession reports whether req asks for a session this process cannot host
	// next to the current one.
	targetsOtherSession(instance domain.InstanceRecord, req domain.ConnectionRequest) bool
	// finishShutdown runs after the instance record was ended.
	finishShutdown(ctx context.Context, m *LifecycleManager) error
}

func newDeploymentPolicy(mode domain.DeploymentMode) deploymentPolicy {
	switch mode {
	case domain.DeploymentClustered:
		return clusteredPolicy{}
	case domain.DeploymentLocal:
		return localPolicy{}
	default:
		panic(fmt.Sprintf("service.deployment.go: unknown deployment mode %q", mode))
	}
}

// clusteredPolicy: the orchestrator runs one process per session and tears it down on shutdown.
type clusteredPolicy struct{}

func (clusteredPolicy) needsFreshAllocation(gs domain.GameServer) bool {
	return gs.Status.State == domain.GameServerReady
}

func (clusteredPolicy) podName(gs domain.GameServer) string {
	return gs.ObjectMeta.Name
}

func (clusteredPolicy) targetsOtherSession(domain.InstanceRecord, domain.ConnectionRequest) bool {
	return false
}

func (clusteredPolicy) finishShutdown(ctx context.Context, m *LifecycleManager) error {
	m.teardown()
	if err := m.orchestrator.Shutdown(ctx); err != nil {
		return NewOrchestrationRaceError("orchestrator shutdown", err)
	}
	return nil
}

// localPolicy: one process serves one session at a time and is respawned for the next one.
type localPolicy struct{}

func (localPolicy) needsFreshAllocation(domain.GameServer) bool {
	return true
}

func (localPolicy) podName(domain.GameServer) string {
	return domain.LocalPodName
}

func (localPolicy) targetsOtherSession(instance domain.InstanceRecord, req domain.ConnectionRequest) bool {
	if helpers.Value(req.InstanceID) != instance.ID {
		return true
	}
	if !helpers.EqualOptional(req.LocationID, instance.LocationID) || !helpers.EqualOptional(req.ChannelID, instance.ChannelID) {
		return true
	}
	return req.RoomCode != nil && *req.RoomCode != instance.RoomCode
}

func (localPolicy) finishShutdown(ctx context.Context, m *LifecycleManager) error {
	m.restarter.Restart(ctx, func(context.Context) {
		m.teardown()
	})
	return nil
}

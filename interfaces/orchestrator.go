package interfaces

import (
	"context"

	"myinstanceserver/domain"
)

// Orchestrator is the cluster orchestration client of this process (Agones SDK in the cluster,
// a stand-in locally). Only the lifecycle manager calls it.
//
//go:generate moq -stub -out mock/orchestrator.go -pkg mock . Orchestrator
type Orchestrator interface {
	// Allocate marks this game server allocated. Called on every admission as a keepalive.
	Allocate(ctx context.Context) error

	// GetGameServer returns this game server's name, state and address.
	GetGameServer(ctx context.Context) (domain.GameServer, error)

	// Shutdown asks the orchestrator to tear this game server down.
	Shutdown(ctx context.Context) error
}

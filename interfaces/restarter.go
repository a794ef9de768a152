package interfaces

import "context"

// Restarter recycles the process in local deployments, where one process serves one session.
//
//go:generate moq -stub -out mock/restarter.go -pkg mock . Restarter
type Restarter interface {
	// Restart runs cleanup and then respawns the process. Only the first call has effect.
	Restart(ctx context.Context, cleanup func(ctx context.Context))
}

package domain

// LifecycleState is the state of the instance lifecycle state machine.
type LifecycleState string

const (
	StateUninitialized  LifecycleState = "uninitialized"
	StateInitializing   LifecycleState = "initializing"
	StateLoadingSession LifecycleState = "loading_session"
	StateReady          LifecycleState = "ready"
	StateShuttingDown   LifecycleState = "shutting_down"
)

// DeploymentMode selects clustered (orchestrator-managed) or local (single process) behaviour.
type DeploymentMode string

const (
	DeploymentClustered DeploymentMode = "clustered"
	DeploymentLocal     DeploymentMode = "local"
)

// LocalPodName is the pod name recorded on instances served outside the cluster.
const LocalPodName = "local"

package domain

// Game server states reported by the orchestrator.
const (
	GameServerReady     = "Ready"
	GameServerAllocated = "Allocated"
	GameServerShutdown  = "Shutdown"
)

// GameServer is the orchestrator's view of this process.
type GameServer struct {
	ObjectMeta GameServerMeta   `json:"object_meta"`
	Status     GameServerStatus `json:"status"`
}

// GameServerMeta holds the game server (pod) name.
type GameServerMeta struct {
	Name string `json:"name"`
}

// GameServerStatus holds lifecycle state and the public address of the game server.
type GameServerStatus struct {
	State   string           `json:"state"`
	Address string           `json:"address"`
	Ports   []GameServerPort `json:"ports"`
}

// GameServerPort is one exposed port.
type GameServerPort struct {
	Name string `json:"name"`
	Port int    `json:"port"`
}

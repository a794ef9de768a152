package agones

import (
	"context"
	"net"
	"strconv"
	"sync"

	"myinstanceserver/domain"
	"myinstanceserver/interfaces"
)

// LocalOrchestrator stands in for Agones when the server runs outside the cluster. It only keeps
// the game server state in memory.
type LocalOrchestrator struct {
	mu sync.Mutex
	gs domain.GameServer
}

var _ interfaces.Orchestrator = (*LocalOrchestrator)(nil)

// NewLocalOrchestrator creates a LocalOrchestrator reporting a Ready game server at ip:port.
func NewLocalOrchestrator(ip string, port int) *LocalOrchestrator {
	return &LocalOrchestrator{gs: domain.GameServer{
		ObjectMeta: domain.GameServerMeta{Name: domain.LocalPodName},
		Status: domain.GameServerStatus{
			State:   domain.GameServerReady,
			Address: ip,
			Ports:   []domain.GameServerPort{{Name: "default", Port: port}},
		},
	}}
}

func (o *LocalOrchestrator) Allocate(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gs.Status.State = domain.GameServerAllocated
	return nil
}

func (o *LocalOrchestrator) GetGameServer(context.Context) (domain.GameServer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	gs := o.gs
	gs.Status.Ports = append([]domain.GameServerPort(nil), o.gs.Status.Ports...)
	return gs, nil
}

func (o *LocalOrchestrator) Shutdown(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gs.Status.State = domain.GameServerShutdown
	return nil
}

// LocalAddress returns "<first non-loopback IPv4>:port", falling back to 127.0.0.1.
func LocalAddress(port int) string {
	return net.JoinHostPort(LocalServerIP(), strconv.Itoa(port))
}

// LocalServerIP returns the first non-loopback IPv4 address of an interface that is up.
func LocalServerIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}

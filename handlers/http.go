// Package handlers contains the websocket connection endpoint and the admin HTTP API of the
// instance server.
package handlers

import (
	"net/http"
	"sort"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ServerInterface is the admin API described by api/instanceserver.openapi.yaml.
type ServerInterface interface {
	// (GET /healthz)
	GetHealth(ctx echo.Context) error
	// (GET /v1/instance)
	GetInstance(ctx echo.Context) error
	// (GET /v1/network-objects)
	ListNetworkObjects(ctx echo.Context) error
	// (POST /v1/network-objects)
	SpawnNetworkObject(ctx echo.Context) error
	// (DELETE /v1/network-objects/{entity_id})
	RemoveNetworkObject(ctx echo.Context, entityID string) error
	// (POST /v1/network-objects/{entity_id}/authority)
	TransferAuthority(ctx echo.Context, entityID string) error
	// (POST /v1/network-objects/{entity_id}/owner)
	TransferOwnership(ctx echo.Context, entityID string) error
}

// RegisterHandlers adds the admin API routes to e.
func RegisterHandlers(e *echo.Echo, si ServerInterface) {
	withEntity := func(h func(echo.Context, string) error) echo.HandlerFunc {
		return func(c echo.Context) error {
			entityID := c.Param("entity_id")
			if entityID == "" {
				return service.NewBadParameterError("entity_id is required", nil)
			}
			return h(c, entityID)
		}
	}

	e.GET("/healthz", si.GetHealth)
	e.GET("/v1/instance", si.GetInstance)
	e.GET("/v1/network-objects", si.ListNetworkObjects)
	e.POST("/v1/network-objects", si.SpawnNetworkObject)
	e.DELETE("/v1/network-objects/:entity_id", withEntity(si.RemoveNetworkObject))
	e.POST("/v1/network-objects/:entity_id/authority", withEntity(si.TransferAuthority))
	e.POST("/v1/network-objects/:entity_id/owner", withEntity(si.TransferOwnership))
}

// HealthResponse is the liveness answer.
type HealthResponse struct {
	Status string `json:"status"`
}

// InstanceStatusResponse describes the instance served by this process.
type InstanceStatusResponse struct {
	State      domain.LifecycleState `json:"state"`
	Ready      bool                  `json:"ready"`
	Mode       domain.DeploymentMode `json:"mode"`
	HostPeerID domain.PeerID         `json:"host_peer_id"`
	InstanceID string                `json:"instance_id,omitempty"`
	LocationID string                `json:"location_id,omitempty"`
	ChannelID  string                `json:"channel_id,omitempty"`
	RoomCode   string                `json:"room_code,omitempty"`
	PodName    string                `json:"pod_name,omitempty"`
	IsMedia    bool                  `json:"is_media,omitempty"`
	SceneID    string                `json:"scene_id,omitempty"`
	PeerCount  int                   `json:"peer_count"`
}

// SpawnRequest registers a networked object.
type SpawnRequest struct {
	EntityID      domain.EntityID `json:"entity_id"`
	OwnerID       domain.UserID   `json:"owner_id"`
	OwnerPeer     domain.PeerID   `json:"owner_peer"`
	AuthorityPeer domain.PeerID   `json:"authority_peer"`
	Components    []string        `json:"components"`
}

// TransferAuthorityRequest names the peer taking over authority.
type TransferAuthorityRequest struct {
	PeerID domain.PeerID `json:"peer_id"`
}

// TransferOwnershipRequest names the new owner and its peer.
type TransferOwnershipRequest struct {
	OwnerID   domain.UserID `json:"owner_id"`
	OwnerPeer domain.PeerID `json:"owner_peer"`
}

// HTTPServer implements ServerInterface.
type HTTPServer struct {
	lifecycle *service.LifecycleManager
	network   *service.ServerNetwork
	authority *service.NetworkObjectTable
	logger    log.Logger
}

var _ ServerInterface = (*HTTPServer)(nil)

// NewHTTPServer creates a new HTTPServer.
func NewHTTPServer(lifecycle *service.LifecycleManager, network *service.ServerNetwork, authority *service.NetworkObjectTable, logger log.Logger) *HTTPServer {
	return &HTTPServer{
		lifecycle: helpers.NilPanic(lifecycle, "handlers.http.go: lifecycle is required"),
		network:   helpers.NilPanic(network, "handlers.http.go: network is required"),
		authority: helpers.NilPanic(authority, "handlers.http.go: authority table is required"),
		logger:    log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "HTTPServer"),
	}
}

// GetHealth (GET /healthz) answers as long as the process serves HTTP.
func (h *HTTPServer) GetHealth(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// GetInstance (GET /v1/instance) reports lifecycle state and the held instance.
func (h *HTTPServer) GetInstance(ectx echo.Context) error {
	snap := h.lifecycle.Snapshot()
	resp := InstanceStatusResponse{
		State:      h.lifecycle.State(),
		Ready:      h.lifecycle.Ready(),
		Mode:       h.lifecycle.Mode(),
		HostPeerID: h.lifecycle.HostPeerID(),
		IsMedia:    snap.IsMedia,
		SceneID:    h.lifecycle.SceneID(),
		PeerCount:  h.network.PeerCount(),
	}
	if snap.Instance != nil {
		resp.InstanceID = snap.Instance.ID
		resp.LocationID = helpers.Value(snap.Instance.LocationID)
		resp.ChannelID = helpers.Value(snap.Instance.ChannelID)
		resp.RoomCode = snap.Instance.RoomCode
		resp.PodName = snap.Instance.PodName
	}
	return ectx.JSON(http.StatusOK, resp)
}

// ListNetworkObjects (GET /v1/network-objects) lists objects ordered by network id.
func (h *HTTPServer) ListNetworkObjects(ectx echo.Context) error {
	ownerID := domain.UserID(ectx.QueryParam("owner_id"))
	component := ectx.QueryParam("component")

	var objects []domain.NetworkObject
	switch {
	case ownerID != "" && component != "":
		objects = h.authority.GetOwnedObjectsWithComponent(ownerID, component)
	case ownerID != "":
		objects = h.authority.GetOwnedObjects(ownerID)
	default:
		for _, obj := range h.authority.All() {
			if component == "" || h.authority.HasComponent(obj.Entity, component) {
				objects = append(objects, obj)
			}
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].NetworkID < objects[j].NetworkID })
	if objects == nil {
		objects = []domain.NetworkObject{}
	}
	return ectx.JSON(http.StatusOK, objects)
}

// SpawnNetworkObject (POST /v1/network-objects) allocates a network id and registers the object.
// Authority defaults to the owner peer.
func (h *HTTPServer) SpawnNetworkObject(ectx echo.Context) error {
	var req SpawnRequest
	if err := ectx.Bind(&req); err != nil {
		return service.NewBadParameterError("invalid request body", err)
	}
	if req.EntityID == "" {
		req.EntityID = domain.EntityID(uuid.NewString())
	}
	if req.AuthorityPeer == "" {
		req.AuthorityPeer = req.OwnerPeer
	}
	if err := h.requirePeer(req.OwnerPeer); err != nil {
		return err
	}
	if err := h.requirePeer(req.AuthorityPeer); err != nil {
		return err
	}

	networkID := h.authority.CreateNetworkID()
	if err := h.authority.Register(req.EntityID, req.OwnerID, req.OwnerPeer, req.AuthorityPeer, networkID); err != nil {
		return err
	}
	for _, component := range req.Components {
		if err := h.authority.SetComponent(req.EntityID, component); err != nil {
			return err
		}
	}
	obj, _ := h.authority.Get(req.EntityID)
	level.Debug(h.logger).Log("msg", "network object spawned", "entity_id", obj.Entity, "network_id", obj.NetworkID, "owner_id", obj.OwnerID)
	return ectx.JSON(http.StatusCreated, obj)
}

// RemoveNetworkObject (DELETE /v1/network-objects/{entity_id}).
func (h *HTTPServer) RemoveNetworkObject(ectx echo.Context, entityID string) error {
	if !h.authority.Remove(domain.EntityID(entityID)) {
		return service.NewEntityNotFoundError("entity "+entityID+" is not registered", nil)
	}
	return ectx.NoContent(http.StatusNoContent)
}

// TransferAuthority (POST /v1/network-objects/{entity_id}/authority).
func (h *HTTPServer) TransferAuthority(ectx echo.Context, entityID string) error {
	var req TransferAuthorityRequest
	if err := ectx.Bind(&req); err != nil {
		return service.NewBadParameterError("invalid request body", err)
	}
	if err := h.requirePeer(req.PeerID); err != nil {
		return err
	}
	obj, err := h.authority.TransferAuthority(domain.EntityID(entityID), req.PeerID)
	if err != nil {
		return err
	}
	return ectx.JSON(http.StatusOK, obj)
}

// TransferOwnership (POST /v1/network-objects/{entity_id}/owner).
func (h *HTTPServer) TransferOwnership(ectx echo.Context, entityID string) error {
	var req TransferOwnershipRequest
	if err := ectx.Bind(&req); err != nil {
		return service.NewBadParameterError("invalid request body", err)
	}
	if err := h.requirePeer(req.OwnerPeer); err != nil {
		return err
	}
	obj, err := h.authority.TransferOwnership(domain.EntityID(entityID), req.OwnerID, req.OwnerPeer)
	if err != nil {
		return err
	}
	return ectx.JSON(http.StatusOK, obj)
}

// requirePeer refuses peers the server network does not know.
func (h *HTTPServer) requirePeer(peerID domain.PeerID) error {
	if _, ok := h.network.Peer(peerID); !ok {
		return service.NewBadParameterError("unknown peer "+string(peerID), nil)
	}
	return nil
}

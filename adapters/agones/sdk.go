package agones

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
	"myinstanceserver/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DefaultHealthInterval is how often the game server reports itself healthy to the sidecar.
const DefaultHealthInterval = 5 * time.Second

var emptyBody = []byte("{}")

// SDKClient talks to the Agones SDK sidecar over its REST gateway.
type SDKClient struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

var _ interfaces.Orchestrator = (*SDKClient)(nil)

// NewSDKClient creates an SDKClient for the sidecar at baseURL (for example http://localhost:9358).
func NewSDKClient(baseURL string, httpClient *http.Client, logger log.Logger) *SDKClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SDKClient{
		baseURL:    strings.TrimRight(helpers.StrPanic(baseURL, "agones.sdk.go: sdk url is required"), "/"),
		httpClient: httpClient,
		logger:     log.With(helpers.NilPanic(logger, "agones.sdk.go: logger is required"), "component", "agones"),
	}
}

func (c *SDKClient) call(ctx context.Context, method, path string, out any) error {
	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader(emptyBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Ready marks the game server ready to be allocated.
func (c *SDKClient) Ready(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/ready", nil)
}

// Allocate marks the game server allocated.
func (c *SDKClient) Allocate(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/allocate", nil)
}

// GetGameServer returns the game server as seen by the sidecar.
func (c *SDKClient) GetGameServer(ctx context.Context) (domain.GameServer, error) {
	var gs domain.GameServer
	err := c.call(ctx, http.MethodGet, "/gameserver", &gs)
	return gs, err
}

// Shutdown asks Agones to tear the game server down.
func (c *SDKClient) Shutdown(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/shutdown", nil)
}

// Health sends one health ping.
func (c *SDKClient) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/health", nil)
}

// RunHealthPings pings the sidecar every interval until ctx is done. Failed pings are logged.
func (c *SDKClient) RunHealthPings(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Health(ctx); err != nil && ctx.Err() == nil {
				level.Warn(c.logger).Log("msg", "health ping failed", "err", err)
			}
		}
	}
}

// SelfAddress is the "address:port" under which provisioning registers the instance of gs.
func SelfAddress(gs domain.GameServer) (string, error) {
	if gs.Status.Address == "" || len(gs.Status.Ports) == 0 {
		return "", service.NewBadParameterError("game server has no address or port yet", nil)
	}
	return gs.Status.Address + ":" + strconv.Itoa(gs.Status.Ports[0].Port), nil
}
